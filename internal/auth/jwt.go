package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const RoleProvider = "provider"

type Manager struct {
	Secret    []byte
	AccessTTL time.Duration
	Issuer    string
}

// Claims identify the provider whose calendar the bearer may manage.
type Claims struct {
	Role       string `json:"role"`
	ProviderID string `json:"providerId"`
	jwt.RegisteredClaims
}

func (m *Manager) NewAccessToken(providerID string) (string, error) {
	now := time.Now()
	ttl := m.AccessTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	claims := Claims{
		Role:       RoleProvider,
		ProviderID: providerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.Issuer,
			Subject:   providerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
}

func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	}, jwt.WithIssuer(m.Issuer))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ProviderID == "" {
		return nil, errors.New("token has no provider")
	}
	return claims, nil
}
