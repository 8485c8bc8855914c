package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExtractToken extracts the JWT token from an Authorization header value.
// Supports "Bearer <token>" format.
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("empty authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty token")
	}

	return token, nil
}

// IdentityClaims are the claims of a visitor identity token.
// The subject is carried in "sub"; older tokens use "user_id" instead.
type IdentityClaims struct {
	UserID   string                 `json:"user_id,omitempty"`
	Persona  string                 `json:"persona"`
	Name     string                 `json:"name,omitempty"`
	Language string                 `json:"language,omitempty"`
	Traits   map[string]interface{} `json:"traits,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns "sub", falling back to "user_id"
func (c *IdentityClaims) SubjectID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

// IdentityTokens signs and verifies identity tokens with a shared secret
type IdentityTokens struct {
	SecretKey []byte
	Method    jwt.SigningMethod
	Expiry    time.Duration // Default: 12 hours
}

// NewIdentityTokens creates a token helper for an HMAC algorithm (HS256, HS384 or HS512)
func NewIdentityTokens(secretKey, algorithm string, expiry time.Duration) (*IdentityTokens, error) {
	if secretKey == "" {
		return nil, errors.New("JWT secret key cannot be empty")
	}

	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported JWT algorithm %q: a shared-secret (HS*) algorithm is required", algorithm)
	}

	if expiry == 0 {
		expiry = 12 * time.Hour
	}

	return &IdentityTokens{
		SecretKey: []byte(secretKey),
		Method:    method,
		Expiry:    expiry,
	}, nil
}

// Generate signs claims, filling in the registered time claims
func (a *IdentityTokens) Generate(claims IdentityClaims) (string, error) {
	tokenID, err := generateTokenID()
	if err != nil {
		return "", fmt.Errorf("failed to generate token ID: %w", err)
	}

	now := time.Now()
	claims.ID = tokenID
	claims.Issuer = "aeterna"
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.Expiry))

	signed, err := jwt.NewWithClaims(a.Method, claims).SignedString(a.SecretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign identity token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature, algorithm and expiry of tokenString
func (a *IdentityTokens) Parse(tokenString string) (*IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.SecretKey, nil
	}, jwt.WithValidMethods([]string{a.Method.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func generateTokenID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
