package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-lms-payments/app/types"
)

const (
	RoleAdmin = "admin"

	adminRefContextKey = "admin_ref"
)

var (
	ErrAdminAuthNotConfigured = errors.New("admin authentication is not configured")
	ErrInvalidAdminToken      = errors.New("invalid admin token")
)

var jwtSigningMethod = jwt.SigningMethodHS256

// AdminClaims identifies an operator. Subject is the admin reference recorded
// on manual confirmations.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AdminTokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewAdminTokens(secret string, ttl time.Duration, issuer string) *AdminTokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AdminTokens{
		secret: []byte(strings.TrimSpace(secret)),
		ttl:    ttl,
		issuer: strings.TrimSpace(issuer),
	}
}

func (a *AdminTokens) Configured() bool {
	return a != nil && len(a.secret) > 0
}

func (a *AdminTokens) Issue(subject string, now time.Time) (string, error) {
	if !a.Configured() {
		return "", ErrAdminAuthNotConfigured
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("subject is required")
	}

	claims := AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func (a *AdminTokens) Parse(raw string) (*AdminClaims, error) {
	if !a.Configured() {
		return nil, ErrAdminAuthNotConfigured
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}), jwt.WithExpirationRequired()}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAdminToken, err)
	}
	if claims.Role != RoleAdmin || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidAdminToken
	}
	return claims, nil
}

// RequireAdmin rejects requests without a valid admin bearer token and stores
// the admin reference on the echo context.
func (a *AdminTokens) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "admin token required"})
			}

			claims, err := a.Parse(strings.TrimSpace(raw))
			if err != nil {
				if errors.Is(err, ErrAdminAuthNotConfigured) {
					return c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "admin access is disabled"})
				}
				return c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "invalid admin token"})
			}

			c.Set(adminRefContextKey, strings.TrimSpace(claims.Subject))
			return next(c)
		}
	}
}

func AdminRefFromContext(c echo.Context) string {
	if v, ok := c.Get(adminRefContextKey).(string); ok {
		return v
	}
	return ""
}
