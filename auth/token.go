package auth

import (
	"direct-chat/domain"
	chaterrors "direct-chat/errors"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "direct-chat"

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HS256 tokens with a single shared secret.
// It is the credential verification service of the WebSocket handshake.
type JWTManager struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewJWTManager(secret []byte, duration time.Duration) *JWTManager {
	return &JWTManager{secret: secret, duration: duration, now: time.Now}
}

// GenerateToken creates a signed JWT for a specific user.
func (m *JWTManager) GenerateToken(userID domain.UserID, roles []string) (string, error) {
	now := m.now()
	claims := &CustomClaims{
		UserID: string(userID),
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
func (m *JWTManager) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", chaterrors.ErrAuthentication, chaterrors.ErrExpiredToken)
		}
		return nil, fmt.Errorf("%w: %w: %v", chaterrors.ErrAuthentication, chaterrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %w", chaterrors.ErrAuthentication, chaterrors.ErrInvalidToken)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: %w: user_id", chaterrors.ErrAuthentication, chaterrors.ErrMissingClaim)
	}
	return claims, nil
}

// Verify implements contract.TokenVerifier.
func (m *JWTManager) Verify(tokenString string) (domain.UserID, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	return domain.UserID(claims.UserID), nil
}
