package account

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/session"
	"github.com/svca/portal/internal/util"
)

// AvatarOptions são os avatares oferecidos na edição de conta.
var AvatarOptions = func() []string {
	out := []string{session.DefaultAvatar}
	for i := 2; i <= 14; i++ {
		out = append(out, fmt.Sprintf("/avatar%d.svg", i))
	}
	return out
}()

// ValidAvatar informa se url pertence às opções oferecidas.
func ValidAvatar(url string) bool {
	for _, opt := range AvatarOptions {
		if opt == url {
			return true
		}
	}
	return false
}

// Profile é o documento de /user-profile.
type Profile struct {
	ID        int    `json:"id"`
	FirstName string `json:"nome"`
	LastName  string `json:"sobrenome"`
	Email     string `json:"email"`
	Phone     string `json:"telefone"`
	CPF       string `json:"cpf"`
	Nickname  string `json:"apelido"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"perfil,omitempty"`
	Points    int    `json:"pontos"`
}

// DisplayName junta nome e sobrenome.
func (p Profile) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// Avatar devolve o avatar ou o padrão.
func (p Profile) Avatar() string {
	if strings.TrimSpace(p.AvatarURL) == "" {
		return session.DefaultAvatar
	}
	return p.AvatarURL
}

// ProfileUpdate é o PUT completo de /user-profile; todos os campos são reenviados.
type ProfileUpdate struct {
	FirstName      string `json:"nome"`
	LastName       string `json:"sobrenome"`
	Email          string `json:"email"`
	Phone          string `json:"telefone"`
	CPF            string `json:"cpf"`
	Nickname       string `json:"apelido"`
	AvatarURL      string `json:"avatar_url"`
	NewPassword    string `json:"nova_senha,omitempty"`
	RepeatPassword string `json:"repita_sua_senha,omitempty"`
}

// UpdateFrom preenche o formulário com o perfil atual.
func UpdateFrom(p Profile) ProfileUpdate {
	avatar := p.AvatarURL
	if !ValidAvatar(avatar) {
		avatar = AvatarOptions[0]
	}
	return ProfileUpdate{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		CPF:       p.CPF,
		Nickname:  p.Nickname,
		AvatarURL: avatar,
	}
}

// DisplayName é o nome que a sessão passa a exibir após a atualização.
func (u ProfileUpdate) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// Validate roda as regras do formulário antes de qualquer chamada.
func (u ProfileUpdate) Validate() error {
	if u.NewPassword != "" || u.RepeatPassword != "" {
		if err := passwordError(util.ValidatePasswordPair(u.NewPassword, u.RepeatPassword), "nova_senha", true); err != nil {
			return err
		}
	}
	fields := required(map[string]string{"nome": u.FirstName, "email": u.Email, "telefone": u.Phone})
	if len(fields) > 0 {
		return apperr.Validation("Por favor, preencha todos os campos obrigatórios.", fields...)
	}
	if err := util.ValidateEmail(u.Email); err != nil {
		return apperr.Validation("E-mail inválido.", apperr.FieldError{Field: "email", Message: err.Error()})
	}
	if !ValidAvatar(u.AvatarURL) {
		return apperr.Validation("Avatar inválido.", apperr.FieldError{Field: "avatar_url", Message: "opção desconhecida"})
	}
	return nil
}

// Registration é o corpo de POST /register.
type Registration struct {
	Email           string `json:"email"`
	FirstName       string `json:"nome"`
	LastName        string `json:"sobrenome"`
	Phone           string `json:"telefone"`
	Nickname        string `json:"apelido"`
	Password        string `json:"senha"`
	ConfirmPassword string `json:"confirma_senha"`
}

// Validate segue a ordem do formulário: confirmação, tamanho e obrigatórios.
func (r Registration) Validate() error {
	if err := passwordError(util.ValidatePasswordPair(r.Password, r.ConfirmPassword), "senha", false); err != nil {
		return err
	}
	fields := required(map[string]string{
		"email": r.Email, "nome": r.FirstName, "telefone": r.Phone, "apelido": r.Nickname,
	})
	if len(fields) > 0 {
		return apperr.Validation("Por favor, preencha todos os campos obrigatórios.", fields...)
	}
	if err := util.ValidateEmail(r.Email); err != nil {
		return apperr.Validation("E-mail inválido.", apperr.FieldError{Field: "email", Message: err.Error()})
	}
	return nil
}

// ValidateForgotPassword exige o e-mail cadastrado.
func ValidateForgotPassword(email string) error {
	if strings.TrimSpace(email) == "" {
		return apperr.Validation("Por favor, insira seu e-mail cadastrado.", apperr.FieldError{Field: "email", Message: "obrigatório"})
	}
	return nil
}

// PasswordReset é o corpo de POST /reset-password/{token}.
type PasswordReset struct {
	Token           string `json:"-"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_new_password"`
}

// Validate exige token, tamanho mínimo e confirmação.
func (r PasswordReset) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return apperr.Validation("Token de redefinição de senha ausente.", apperr.FieldError{Field: "token", Message: "obrigatório"})
	}
	if err := util.ValidatePassword(r.NewPassword); err != nil {
		return passwordError(err, "new_password", true)
	}
	if r.NewPassword != r.ConfirmPassword {
		return passwordError(util.ErrPasswordMismatch, "confirm_new_password", true)
	}
	return nil
}

// User é um item da administração de usuários.
type User struct {
	ID        int    `json:"id"`
	Name      string `json:"nome"`
	Email     string `json:"email"`
	Phone     string `json:"telefone"`
	Role      string `json:"perfil"`
	ProfileID int    `json:"perfil_id"`
	Points    int    `json:"pontos"`
}

// ProfileOption é um perfil de /perfis.
type ProfileOption struct {
	ID   int    `json:"id"`
	Name string `json:"nome"`
}

// UserUpdate é o corpo de PUT /user/{id}.
type UserUpdate struct {
	Name            string `json:"nome"`
	Email           string `json:"email"`
	Phone           string `json:"telefone"`
	ProfileID       int    `json:"perfil_id"`
	Points          int    `json:"pontos"`
	NewPassword     string `json:"nova_senha,omitempty"`
	ConfirmPassword string `json:"-"`
}

// UserUpdateFrom preenche o formulário de edição.
func UserUpdateFrom(u User) UserUpdate {
	return UserUpdate{Name: u.Name, Email: u.Email, Phone: u.Phone, ProfileID: u.ProfileID, Points: u.Points}
}

// Validate confere contato, perfil, pontos e a nova senha opcional.
func (u UserUpdate) Validate() error {
	if u.NewPassword != "" || u.ConfirmPassword != "" {
		if err := passwordError(util.ValidatePasswordPair(u.NewPassword, u.ConfirmPassword), "nova_senha", true); err != nil {
			return err
		}
	}
	if fields := required(map[string]string{"nome": u.Name, "email": u.Email, "telefone": u.Phone}); len(fields) > 0 {
		return apperr.Validation("Por favor, preencha todos os campos obrigatórios.", fields...)
	}
	if err := util.ValidateEmail(u.Email); err != nil {
		return apperr.Validation("E-mail inválido.", apperr.FieldError{Field: "email", Message: err.Error()})
	}
	if u.ProfileID <= 0 {
		return apperr.Validation("Selecione um perfil.", apperr.FieldError{Field: "perfil_id", Message: "obrigatório"})
	}
	if u.Points < 0 {
		return apperr.Validation("Pontos não podem ser negativos.", apperr.FieldError{Field: "pontos", Message: "negativo"})
	}
	return nil
}

// RankingEntry é uma posição do ranking semanal.
type RankingEntry struct {
	UserID    int    `json:"id"`
	Name      string `json:"nome"`
	Points    int    `json:"pontos"`
	AvatarURL string `json:"avatar_url"`
}

// SortRanking ordena por pontos decrescentes e nome, aplicando avatar padrão.
func SortRanking(entries []RankingEntry) []RankingEntry {
	out := append([]RankingEntry(nil), entries...)
	for i := range out {
		if strings.TrimSpace(out[i].AvatarURL) == "" {
			out[i].AvatarURL = session.DefaultAvatar
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func required(values map[string]string) []apperr.FieldError {
	var fields []apperr.FieldError
	for field, v := range values {
		if util.RequireString(v, field) != nil {
			fields = append(fields, apperr.FieldError{Field: field, Message: "obrigatório"})
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return fields
}

func passwordError(err error, field string, isNew bool) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, util.ErrPasswordMismatch):
		msg := "As senhas não coincidem."
		if isNew {
			msg = "As novas senhas não coincidem."
		}
		return apperr.Validation(msg, apperr.FieldError{Field: field, Message: err.Error()})
	case errors.Is(err, util.ErrPasswordShort):
		msg := "A senha deve ter pelo menos 6 caracteres."
		if isNew {
			msg = "A nova senha deve ter pelo menos 6 caracteres."
		}
		return apperr.Validation(msg, apperr.FieldError{Field: field, Message: err.Error()})
	default:
		return apperr.Validation(err.Error(), apperr.FieldError{Field: field, Message: err.Error()})
	}
}
