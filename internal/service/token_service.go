package service

import (
	"errors"
	"fmt"
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type markers carried in the "type" claim.
const (
	TokenTypeMerchantAccess = "merchant_access"
	TokenTypeAdminAccess    = "admin_access"
	TokenTypeAdminRefresh   = "admin_refresh"
)

var errWrongTokenType = errors.New("unexpected token type")

// JWTTokenService implements ports.TokenService using HS256 JWT.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewJWTTokenService creates a new merchant JWT token service.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate creates a signed JWT for the given merchant.
func (s *JWTTokenService) Generate(merchantID uuid.UUID, email string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":   merchantID.String(),
		"email": email,
		"type":  TokenTypeMerchantAccess,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
		"iss":   s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate parses and validates a merchant JWT, returning the claims.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, hmacKey(s.secret), jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if typ, _ := claims["type"].(string); typ != TokenTypeMerchantAccess {
		return nil, errWrongTokenType
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("missing subject claim")
	}

	merchantID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid merchant ID in token: %w", err)
	}

	email, _ := claims["email"].(string)

	return &ports.TokenClaims{
		MerchantID: merchantID,
		Email:      email,
	}, nil
}

// adminClaims is the payload of admin access and refresh tokens.
type adminClaims struct {
	jwt.RegisteredClaims
	Email     string           `json:"email"`
	Role      domain.AdminRole `json:"role"`
	Type      string           `json:"type"`
	SessionID string           `json:"sid,omitempty"`
}

// AdminJWTTokenService implements ports.AdminTokenService. Access and
// refresh tokens are signed with distinct secrets.
type AdminJWTTokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// NewAdminJWTTokenService creates an admin token service.
func NewAdminJWTTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, issuer string) *AdminJWTTokenService {
	return &AdminJWTTokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        issuer,
	}
}

// GenerateAccess signs an access token bound to sessionID and returns its TTL.
func (s *AdminJWTTokenService) GenerateAccess(user *domain.AdminUser, sessionID uuid.UUID) (string, time.Duration, error) {
	now := time.Now()
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		Email:     user.Email,
		Role:      user.Role,
		Type:      TokenTypeAdminAccess,
		SessionID: sessionID.String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", 0, fmt.Errorf("signing access token: %w", err)
	}
	return signed, s.accessTTL, nil
}

// GenerateRefresh signs a refresh token. Each token carries a unique jti so
// two logins in the same second never collide on the session lookup.
func (s *AdminJWTTokenService) GenerateRefresh(user *domain.AdminUser) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.refreshTTL)
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
		Role:  user.Role,
		Type:  TokenTypeAdminRefresh,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing refresh token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccess parses an admin access token.
func (s *AdminJWTTokenService) ValidateAccess(tokenString string) (*ports.AdminClaims, error) {
	claims, err := s.parse(tokenString, s.accessSecret, TokenTypeAdminAccess)
	if err != nil {
		return nil, err
	}
	sid, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID in token: %w", err)
	}
	out := toAdminClaims(claims)
	out.SessionID = sid
	return out, nil
}

// ValidateRefresh parses an admin refresh token.
func (s *AdminJWTTokenService) ValidateRefresh(tokenString string) (*ports.AdminClaims, error) {
	claims, err := s.parse(tokenString, s.refreshSecret, TokenTypeAdminRefresh)
	if err != nil {
		return nil, err
	}
	return toAdminClaims(claims), nil
}

func (s *AdminJWTTokenService) parse(tokenString string, secret []byte, wantType string) (*adminClaims, error) {
	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, hmacKey(secret), jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Type != wantType {
		return nil, errWrongTokenType
	}
	return claims, nil
}

func toAdminClaims(c *adminClaims) *ports.AdminClaims {
	userID, _ := uuid.Parse(c.Subject)
	return &ports.AdminClaims{
		UserID:    userID,
		Email:     c.Email,
		Role:      c.Role,
		TokenType: c.Type,
	}
}

func hmacKey(secret []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}
}
