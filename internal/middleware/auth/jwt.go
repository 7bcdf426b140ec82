package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthUser represents an authenticated user from JWT
type AuthUser struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

const (
	userContextKey = "authenticated_user"

	// RoleAdmin gates the manual-review endpoints.
	RoleAdmin = "admin"
)

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	Secret    string
	Logger    *zap.Logger
	SkipPaths []string // Paths to skip JWT validation
}

// JWTMiddleware creates a middleware that validates bearer tokens issued by
// the marketplace auth service and stores the caller identity on the context.
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, skipPath := range config.SkipPaths {
				if strings.HasPrefix(path, skipPath) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				config.Logger.Warn("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Authorization header required",
					"code":  "MISSING_AUTH_HEADER",
				})
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid authorization header format. Expected: Bearer <token>",
					"code":  "INVALID_AUTH_FORMAT",
				})
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(config.Secret), nil
			})

			if err != nil || !token.Valid {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid or expired token",
					"code":  "INVALID_TOKEN",
				})
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid token claims",
					"code":  "INVALID_TOKEN",
				})
			}

			user := &AuthUser{}
			if sub, ok := claims["sub"].(string); ok {
				user.UserID = sub
			}
			if email, ok := claims["email"].(string); ok {
				user.Email = email
			}
			if role, ok := claims["role"].(string); ok {
				user.Role = role
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// RequireAuth returns the authenticated user. On failure the 401 response is
// already written; the returned error just stops the handler.
func RequireAuth(c echo.Context) (*AuthUser, error) {
	user, ok := c.Get(userContextKey).(*AuthUser)
	if !ok || user == nil || user.UserID == "" {
		if err := c.JSON(http.StatusUnauthorized, echo.Map{
			"error": "Authentication required",
			"code":  "UNAUTHENTICATED",
		}); err != nil {
			return nil, err
		}
		return nil, echo.ErrUnauthorized
	}
	return user, nil
}

// RequireAdmin returns the authenticated admin. On failure the 403 response
// is already written; the returned error just stops the handler.
func RequireAdmin(c echo.Context) (*AuthUser, error) {
	user, err := RequireAuth(c)
	if err != nil {
		return nil, err
	}
	if user.Role != RoleAdmin {
		if err := c.JSON(http.StatusForbidden, echo.Map{
			"error": "Admin role required",
			"code":  "FORBIDDEN",
		}); err != nil {
			return nil, err
		}
		return nil, echo.ErrForbidden
	}
	return user, nil
}
