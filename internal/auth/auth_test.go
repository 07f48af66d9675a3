package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	sharedauth "github.com/stewardrx/platform/internal/shared/auth"
	"github.com/stewardrx/platform/internal/shared/config"
	"github.com/stewardrx/platform/internal/shared/types"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword(hash, "correct horse battery staple") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong password") {
		t.Error("wrong password accepted")
	}
}

func TestTokenIssueAndParse(t *testing.T) {
	cfg := config.AuthConfig{
		JWTSecret:      "test-secret",
		Issuer:         "stewardrx-test",
		AccessTokenTTL: time.Hour,
	}
	issuer := NewTokenIssuer(cfg)

	user := &User{
		ID:       types.NewID(),
		Username: "jdoe",
		FullName: "Jane Doe",
		Role:     RoleClinician,
	}

	token, expiresAt, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Error("token already expired")
	}

	claims := &sharedauth.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("token invalid")
	}
	if claims.Subject != user.ID.String() {
		t.Errorf("Subject = %q, want %q", claims.Subject, user.ID)
	}
	if claims.Username != "jdoe" {
		t.Errorf("Username = %q, want jdoe", claims.Username)
	}
	if claims.Role != RoleClinician {
		t.Errorf("Role = %q, want %q", claims.Role, RoleClinician)
	}
	if claims.Issuer != "stewardrx-test" {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer(config.AuthConfig{
		JWTSecret:      "secret-a",
		Issuer:         "stewardrx-test",
		AccessTokenTTL: time.Hour,
	})

	token, _, err := issuer.Issue(&User{ID: types.NewID(), Username: "jdoe"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = jwt.ParseWithClaims(token, &sharedauth.Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte("secret-b"), nil
	})
	if err == nil {
		t.Error("token signed with secret-a verified under secret-b")
	}
}

func TestLoginRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     LoginRequest
		wantErr bool
	}{
		{"valid", LoginRequest{Username: "jdoe", Password: "pw"}, false},
		{"missing username", LoginRequest{Password: "pw"}, true},
		{"missing password", LoginRequest{Username: "jdoe"}, true},
		{"blank username", LoginRequest{Username: "  ", Password: "pw"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	valid := RegisterRequest{
		Username: "jdoe",
		Password: "longenough",
		FullName: "Jane Doe",
		Role:     RoleClinician,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"short password", RegisterRequest{Username: "jdoe", Password: "short", FullName: "Jane", Role: RoleClinician}},
		{"bad role", RegisterRequest{Username: "jdoe", Password: "longenough", FullName: "Jane", Role: "superuser"}},
		{"missing full name", RegisterRequest{Username: "jdoe", Password: "longenough", Role: RoleAdmin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
