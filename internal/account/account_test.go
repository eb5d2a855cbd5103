package account

import (
	"errors"
	"testing"

	"github.com/svca/portal/internal/apperr"
)

func TestProfileUpdateValidate(t *testing.T) {
	base := UpdateFrom(Profile{FirstName: "Ana", LastName: "Souza", Email: "ana@svca.org", Phone: "81999990000", AvatarURL: "/avatar99.svg"})
	if base.AvatarURL != "/avatar.svg" {
		t.Fatalf("unknown avatar must fall back to the first option, got %s", base.AvatarURL)
	}

	tests := []struct {
		name string
		mut  func(*ProfileUpdate)
		msg  string
	}{
		{"ok", func(u *ProfileUpdate) {}, ""},
		{"senhas diferentes", func(u *ProfileUpdate) { u.NewPassword, u.RepeatPassword = "123456", "1234567" }, "As novas senhas não coincidem."},
		{"senha curta", func(u *ProfileUpdate) { u.NewPassword, u.RepeatPassword = "123", "123" }, "A nova senha deve ter pelo menos 6 caracteres."},
		{"sem telefone", func(u *ProfileUpdate) { u.Phone = "" }, "Por favor, preencha todos os campos obrigatórios."},
		{"avatar inválido", func(u *ProfileUpdate) { u.AvatarURL = "/x.png" }, "Avatar inválido."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := base
			tt.mut(&u)
			err := u.Validate()
			if tt.msg == "" {
				if err != nil {
					t.Fatalf("unexpected %v", err)
				}
				return
			}
			if !apperr.Is(err, apperr.KindValidation) || apperr.Message(err) != tt.msg {
				t.Fatalf("got %v, want %q", err, tt.msg)
			}
		})
	}

	if base.DisplayName() != "Ana Souza" {
		t.Fatalf("display name = %q", base.DisplayName())
	}
}

func TestRegistrationAndReset(t *testing.T) {
	reg := Registration{Email: "ana@svca.org", FirstName: "Ana", Phone: "81", Nickname: "aninha", Password: "segredo", ConfirmPassword: "segredo"}
	if err := reg.Validate(); err != nil {
		t.Fatalf("sobrenome is optional: %v", err)
	}
	reg.Nickname = ""
	if apperr.Message(reg.Validate()) != "Por favor, preencha todos os campos obrigatórios." {
		t.Fatalf("apelido is required")
	}
	reg.ConfirmPassword = "outro123"
	if apperr.Message(reg.Validate()) != "As senhas não coincidem." {
		t.Fatalf("mismatch must be reported first")
	}

	if apperr.Message(PasswordReset{NewPassword: "segredo", ConfirmPassword: "segredo"}.Validate()) != "Token de redefinição de senha ausente." {
		t.Fatal("token is required")
	}
	if err := (PasswordReset{Token: "tok", NewPassword: "segredo", ConfirmPassword: "segredo"}).Validate(); err != nil {
		t.Fatalf("unexpected %v", err)
	}
	if !apperr.Is(ValidateForgotPassword(" "), apperr.KindValidation) {
		t.Fatal("forgot password requires email")
	}
}

func TestUserUpdateValidate(t *testing.T) {
	u := UserUpdateFrom(User{ID: 3, Name: "Bia", Email: "bia@svca.org", Phone: "83988887777", ProfileID: 2, Points: 10})
	if err := u.Validate(); err != nil {
		t.Fatal(err)
	}

	blank := UserUpdate{ProfileID: 2}
	err := blank.Validate()
	var e *apperr.Error
	if !errors.As(err, &e) || len(e.Fields) != 3 {
		t.Fatalf("contact fields must be required, got %v", err)
	}
	u.NewPassword = "abcdef"
	if !apperr.Is(u.Validate(), apperr.KindValidation) {
		t.Fatal("missing confirmation must fail")
	}
	u.ConfirmPassword = "abcdef"
	if err := u.Validate(); err != nil {
		t.Fatal(err)
	}
	u.ProfileID = 0
	if !apperr.Is(u.Validate(), apperr.KindValidation) {
		t.Fatal("profile is required")
	}
}

func TestSortRanking(t *testing.T) {
	got := SortRanking([]RankingEntry{
		{UserID: 1, Name: "Caio", Points: 10},
		{UserID: 2, Name: "ana", Points: 30, AvatarURL: "/avatar4.svg"},
		{UserID: 3, Name: "Bia", Points: 10},
	})
	order := []int{got[0].UserID, got[1].UserID, got[2].UserID}
	if order[0] != 2 || order[1] != 3 || order[2] != 1 {
		t.Fatalf("order = %v", order)
	}
	if got[1].AvatarURL != "/avatar.svg" || got[0].AvatarURL != "/avatar4.svg" {
		t.Fatalf("avatars = %+v", got)
	}
}
