package gateway

import (
	"context"
	"net/http"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/occurrence"
)

// ListOrganizations lista órgãos responsáveis, filtrando por search.
func (c *Client) ListOrganizations(ctx context.Context, search string) ([]occurrence.Organization, error) {
	var out []occurrence.Organization
	err := c.call(ctx, "list_organizations", http.MethodGet, "/orgaos-responsaveis", searchQuery(search), nil, &out)
	return out, err
}

// GetOrganization busca um órgão para o formulário de edição.
func (c *Client) GetOrganization(ctx context.Context, id int) (occurrence.Organization, error) {
	var out occurrence.Organization
	err := c.call(ctx, "get_organization", http.MethodGet, idPath("/orgao-responsavel/%d", id), nil, nil, &out)
	return out, err
}

// CreateOrganization cadastra um órgão.
func (c *Client) CreateOrganization(ctx context.Context, in occurrence.OrganizationInput) (Ack, error) {
	if err := in.Validate(); err != nil {
		return Ack{}, err
	}
	var ack Ack
	err := c.call(ctx, "create_organization", http.MethodPost, "/orgao-responsavel", nil, in.Normalize(), &ack)
	return ack, err
}

// UpdateOrganization altera um órgão existente.
func (c *Client) UpdateOrganization(ctx context.Context, id int, in occurrence.OrganizationInput) (Ack, error) {
	if id <= 0 {
		return Ack{}, apperr.Validation("Órgão inválido.")
	}
	if err := in.Validate(); err != nil {
		return Ack{}, err
	}
	var ack Ack
	err := c.call(ctx, "update_organization", http.MethodPut, idPath("/orgao-responsavel/%d", id), nil, in.Normalize(), &ack)
	return ack, err
}

// DeleteOrganization remove um órgão.
func (c *Client) DeleteOrganization(ctx context.Context, id int) (Ack, error) {
	var ack Ack
	err := c.call(ctx, "delete_organization", http.MethodDelete, idPath("/orgao-responsavel/%d", id), nil, nil, &ack)
	return ack, err
}
