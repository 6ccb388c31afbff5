package auth

import (
	"crypto/rsa"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired indicates the token passed its natural expiry.
	ErrTokenExpired = errors.New("auth: token has expired")
	// ErrTokenMalformed indicates the presented string is not a token.
	ErrTokenMalformed = errors.New("auth: token is malformed")
	// ErrTokenInvalid indicates signature or claim validation failed.
	ErrTokenInvalid = errors.New("auth: token is invalid")
)

// Claims is the signed token payload. UserID is carried as a string so the
// wire shape stays stable regardless of the credential store's id type.
type Claims struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	jwt.RegisteredClaims
}

// TokenManager signs and parses RS256 session tokens.
type TokenManager struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiresIn  time.Duration
}

// NewTokenManager parses the PEM key pair. The private key may be empty for
// verify-only deployments such as standalone guards.
func NewTokenManager(privatePEM, publicPEM []byte, expiresIn time.Duration) (*TokenManager, error) {
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, err
	}
	m := &TokenManager{publicKey: publicKey, expiresIn: expiresIn}
	if len(privatePEM) > 0 {
		privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
		if err != nil {
			return nil, err
		}
		m.privateKey = privateKey
	}
	return m, nil
}

// Generate signs a token over {userId, userName}.
func (m *TokenManager) Generate(userID int64, userName string) (string, error) {
	if m.privateKey == nil {
		return "", errors.New("auth: token manager has no signing key")
	}
	now := time.Now()
	claims := Claims{
		UserID:   strconv.FormatInt(userID, 10),
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userName,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiresIn)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(m.privateKey)
}

// Parse validates the signature and returns the claims.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return m.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ExpiresIn returns the configured session lifetime.
func (m *TokenManager) ExpiresIn() time.Duration {
	return m.expiresIn
}
