package security

import (
	"testing"
	"time"

	"claimflow/internal/common"
)

func TestGenerateAndParseRoundTrip(t *testing.T) {
	provider := NewJWTProvider("test-secret")
	userID := common.NewUUID()

	token, expiresAt, err := provider.Generate(userID, []string{"claimant", "admin"}, "admin", time.Hour)
	if err != nil {
		t.Fatalf("expected token, got %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("expected a future expiry")
	}

	claims, err := provider.Parse(token)
	if err != nil {
		t.Fatalf("expected parse, got %v", err)
	}
	if claims.UserID != string(userID) {
		t.Fatalf("expected user id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != "admin" || len(claims.Roles) != 2 {
		t.Fatalf("expected roles carried through, got role=%q roles=%v", claims.Role, claims.Roles)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewJWTProvider("secret-a").Generate(common.NewUUID(), []string{"claimant"}, "claimant", time.Hour)
	if err != nil {
		t.Fatalf("expected token, got %v", err)
	}
	if _, err := NewJWTProvider("secret-b").Parse(token); !common.Is(err, common.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for wrong secret, got %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	provider := NewJWTProvider("test-secret")
	token, _, err := provider.Generate(common.NewUUID(), []string{"claimant"}, "claimant", -time.Minute)
	if err != nil {
		t.Fatalf("expected token, got %v", err)
	}
	if _, err := provider.Parse(token); !common.Is(err, common.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}
