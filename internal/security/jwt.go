package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
)

var ErrInvalidSubject = errors.New("invalid token subject")

// Claims carry the user id as subject and the attendance role. Credential
// checks happen upstream; whoever holds a valid token is trusted.
type Claims struct {
	TokenType string      `json:"token_type"`
	Role      domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (domain.UserID, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidSubject
	}
	return domain.UserID(id), nil
}

type JWTManager struct {
	issuer   string
	audience string
	secret   []byte
	now      func() time.Time
}

func NewJWTManager(issuer, audience, secret string) *JWTManager {
	return &JWTManager{
		issuer:   issuer,
		audience: audience,
		secret:   []byte(secret),
		now:      time.Now,
	}
}

func (m *JWTManager) SignAccessToken(userID domain.UserID, role domain.Role, ttl time.Duration) (string, error) {
	return m.SignAccessTokenWithJTI(userID, role, ttl, uuid.NewString())
}

func (m *JWTManager) SignAccessTokenWithJTI(userID domain.UserID, role domain.Role, ttl time.Duration, jti string) (string, error) {
	if userID == 0 {
		return "", ErrInvalidSubject
	}
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", role)
	}
	if jti == "" {
		jti = uuid.NewString()
	}
	now := m.now()
	claims := Claims{
		TokenType: "access",
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Audience:  []string{m.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *JWTManager) ParseAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithAudience(m.audience), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != "access" {
		return nil, fmt.Errorf("unexpected token type: %s", claims.TokenType)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
