package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-live/core"
)

const tokenContextKey = "userToken"

// Claims represents the authorization claims transmitted via a JWT.
// The subject is the user id.
type Claims struct {
	jwt.StandardClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

func NewClaims(conf *core.Config, userID, name, role string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   userID,
			Audience:  "Academia",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name: name,
		Role: role,
	}
}

// newJWTConfig returns the JWT auth middleware config. Tokens are looked up in
// tokenLookup ("header:Authorization", "query:token"...).
func newJWTConfig(secretKey, tokenLookup string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(secretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
		TokenLookup:   tokenLookup,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(secretKey string, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		for _, role := range roles {
			if claims.Role == role {
				return true
			}
		}
	}
	return false
}
