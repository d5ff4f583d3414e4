package security

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"claimflow/internal/common"
)

type JWTProvider struct {
	secret []byte
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

// Claims carries the authenticated subject and its role set. UserID mirrors
// the subject for older token consumers that read user_id.
type Claims struct {
	UserID string   `json:"user_id,omitempty"`
	Roles  []string `json:"roles"`
	Role   string   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Generate signs a token for the subject. The service itself accepts tokens
// minted by the identity provider and only parses; Generate serves the
// provider side of that contract and local tooling.
func (p *JWTProvider) Generate(userID common.UUID, roles []string, activeRole string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID: string(userID),
		Roles:  roles,
		Role:   strings.TrimSpace(activeRole),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, common.NewError(common.CodeInternal, "failed to sign token", err)
	}
	return signed, expiresAt, nil
}

func (p *JWTProvider) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.NewError(common.CodeUnauthorized, "unexpected signing method", nil)
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, common.NewError(common.CodeUnauthorized, "invalid token", err)
	}
	if !token.Valid {
		return nil, common.NewError(common.CodeUnauthorized, "invalid token", nil)
	}
	if claims.UserID == "" && claims.Subject != "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}
