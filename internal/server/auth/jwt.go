// Package auth issues and verifies the relay's HS256 access tokens.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the account a token was issued to.
type Claims struct {
	jwt.RegisteredClaims
	AccountID  string `json:"aid"`
	Identifier string `json:"idf"`
}

// Principal is the caller resolved from a valid token.
type Principal struct {
	AccountID  string
	Identifier string
}

func GenerateToken(p Principal, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.AccountID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		AccountID:  p.AccountID,
		Identifier: p.Identifier,
	})

	return token.SignedString(secretKey)
}

// ParseToken validates tokenString. Expired tokens yield
// common.ErrTokenExpired; anything else invalid yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, common.ErrTokenExpired
		}
		return Principal{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.AccountID == "" {
		return Principal{}, common.ErrInvalidToken
	}

	return Principal{AccountID: claims.AccountID, Identifier: claims.Identifier}, nil
}
