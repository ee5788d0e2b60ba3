package identity

import (
	"errors"
	"time"

	"projecthub/internal/apperr"
	"projecthub/internal/models"
	"projecthub/internal/policy"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed identity carried by bearer tokens.
type Claims struct {
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

func NewTokenService(signingKey string, ttl time.Duration) *TokenService {
	return &TokenService{signingKey: []byte(signingKey), ttl: ttl, now: time.Now}
}

func (s *TokenService) Issue(u *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.signingKey)
}

// Verify resolves a token into the actor it was issued for.
func (s *TokenService) Verify(tokenString string) (policy.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return policy.Actor{}, apperr.New(apperr.CodeUnauthorized, "Token has expired")
		}
		return policy.Actor{}, apperr.New(apperr.CodeUnauthorized, "Invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return policy.Actor{}, apperr.New(apperr.CodeUnauthorized, "Invalid token")
	}
	return policy.Actor{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}
