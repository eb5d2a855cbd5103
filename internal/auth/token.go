package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName é o cookie do portal que referencia a sessão no armazenamento.
const CookieName = "svca_portal"

const issuer = "svca-portal"

// ErrInvalidToken indica cookie adulterado, expirado ou sem sessão.
var ErrInvalidToken = errors.New("token de sessão inválido")

// Claims carrega apenas a chave da sessão. Perfil e identidade ficam no
// armazenamento, nunca no cookie.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenManager assina e valida o cookie do portal.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager cria o gerenciador com segredo HS256 e validade do cookie.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL devolve a validade aplicada aos tokens emitidos.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// NewSessionID gera uma chave aleatória de sessão.
func NewSessionID() string {
	return uuid.NewString()
}

// Issue assina um token para a sessão informada.
func (m *TokenManager) Issue(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidToken
	}
	now := m.now().UTC()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse verifica assinatura, emissor e expiração e devolve a chave da sessão.
func (m *TokenManager) Parse(tokenString string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}
