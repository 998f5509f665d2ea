package auth_test

import (
	"errors"
	"testing"

	"zkpoker-client/internal/config"
	"zkpoker-client/pkg/auth"
)

func setupConfig() {
	config.GlobalConfig = &config.Config{JWT: config.JWTConfig{Secret: "test-secret", Expire: 1}}
}

func TestPlayerTokenRoundTrip(t *testing.T) {
	setupConfig()

	token, err := auth.GeneratePlayerToken("0xABCDEF0000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	claims, err := auth.ParsePlayerToken(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.Address != "0xabcdef0000000000000000000000000000000001" {
		t.Fatalf("unexpected address %s", claims.Address)
	}
}

func TestSpectatorTokenCannotAct(t *testing.T) {
	setupConfig()

	token, err := auth.GenerateSpectatorToken("0x0000000000000000000000000000000000000002")
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if _, err := auth.ParsePlayerToken(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := auth.ParseToken(token); err != nil {
		t.Fatalf("spectator token should still parse: %v", err)
	}
}
