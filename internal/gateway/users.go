package gateway

import (
	"context"
	"net/http"

	"github.com/svca/portal/internal/account"
	"github.com/svca/portal/internal/apperr"
)

// ListUsers lista usuários, filtrando por nome ou e-mail quando search não é vazio.
func (c *Client) ListUsers(ctx context.Context, search string) ([]account.User, error) {
	var users []account.User
	err := c.call(ctx, "list_users", http.MethodGet, "/users", searchQuery(search), nil, &users)
	return users, err
}

// UpdateUser altera perfil, pontos e dados de contato de um usuário.
func (c *Client) UpdateUser(ctx context.Context, id int, upd account.UserUpdate) (Ack, error) {
	if id <= 0 {
		return Ack{}, apperr.Validation("Usuário inválido.")
	}
	if err := upd.Validate(); err != nil {
		return Ack{}, err
	}
	var ack Ack
	err := c.call(ctx, "update_user", http.MethodPut, idPath("/user/%d", id), nil, upd, &ack)
	return ack, err
}

// DeleteUser remove um usuário.
func (c *Client) DeleteUser(ctx context.Context, id int) (Ack, error) {
	if id <= 0 {
		return Ack{}, apperr.Validation("Usuário inválido.")
	}
	var ack Ack
	err := c.call(ctx, "delete_user", http.MethodDelete, idPath("/user/%d", id), nil, nil, &ack)
	return ack, err
}

// ListProfiles devolve os perfis atribuíveis.
func (c *Client) ListProfiles(ctx context.Context) ([]account.ProfileOption, error) {
	var out []account.ProfileOption
	err := c.call(ctx, "list_profiles", http.MethodGet, "/perfis", nil, nil, &out)
	return out, err
}

// ListRanking devolve o ranking semanal já ordenado.
func (c *Client) ListRanking(ctx context.Context) ([]account.RankingEntry, error) {
	var out []account.RankingEntry
	if err := c.call(ctx, "list_ranking", http.MethodGet, "/ranking-semanal", nil, nil, &out); err != nil {
		return nil, err
	}
	return account.SortRanking(out), nil
}
