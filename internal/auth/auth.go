// Package auth handles the bearer tokens exchanged with the KIT8 API.
//
// The client side only ever inspects tokens (ParseClaims); it never verifies signatures, that is
// the server's job. The signing and verification helpers are used by the fake API in kit8test.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const TokenIssuerName = "KIT8"

// ErrNotJWT is returned by ParseClaims when the stored token is an opaque string.
var ErrNotJWT = errors.New("token is not a JWT")

// Claims carried in KIT8 access tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Expired reports whether the token has an expiry that is not after now.
// Tokens without an exp claim never expire from the client's point of view.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}

// ParseClaims decodes the claims of a JWT without checking its signature or expiry.
func ParseClaims(token string) (*Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}
	return claims, nil
}

// GenerateAccessToken creates a JWT signed with HS256 using the supplied secret
func GenerateAccessToken(subject, email, name, secret string, expiresIn time.Duration) (string, error) {
	issuedAt := time.Now()

	claims := &Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuerName,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(expiresIn)),
			Subject:   subject,
		},
	}

	signedAccessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("could not sign JWT: %v", err)
	}
	return signedAccessToken, nil
}

// ValidateJWT validates a JWT using the supplied secret and returns its claims
func ValidateJWT(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid or expired token: %v", err)
	}

	return claims, nil
}

var bearerRe = regexp.MustCompile(`^\s*(?i)\bbearer\b\s*([^\s]+)\s*$`)

// BearerTokenFromHeader returns the token from an "Authorization: Bearer {token}" header
func BearerTokenFromHeader(headers http.Header) (string, error) {
	authorizationHeaderValue := headers.Get("Authorization")
	if authorizationHeaderValue == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	bearerToken := bearerRe.ReplaceAllString(authorizationHeaderValue, "$1")

	if bearerToken == authorizationHeaderValue {
		return "", fmt.Errorf(`authorization header format must be Bearer {token}`)
	}

	return bearerToken, nil
}

func HashPassword(password string) (string, error) {
	dat, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	return string(dat), nil
}

func CheckPasswordHash(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
