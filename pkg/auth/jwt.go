package auth

import (
	"errors"
	"strings"
	"time"

	"zkpoker-client/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

const (
	ScopePlayer    = "player"
	ScopeSpectator = "spectator"
)

// Claims binds a bridge session to the signing address it acts for.
type Claims struct {
	Address string `json:"address"`
	Scope   string `json:"scope"`
	jwt.RegisteredClaims
}

func GeneratePlayerToken(address string) (string, error) {
	return generateToken(address, ScopePlayer)
}

func GenerateSpectatorToken(address string) (string, error) {
	return generateToken(address, ScopeSpectator)
}

func generateToken(address, scope string) (string, error) {
	duration := time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour
	claims := Claims{
		Address: strings.ToLower(address),
		Scope:   scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   scope,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.GlobalConfig.JWT.Secret))
}

func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.GlobalConfig.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParsePlayerToken accepts only tokens allowed to sign transactions.
func ParsePlayerToken(tokenString string) (*Claims, error) {
	claims, err := ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Scope != ScopePlayer {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
