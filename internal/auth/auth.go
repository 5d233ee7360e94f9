package auth

import (
	"context"
	"fmt"

	"github.com/fitclub/billing/internal/config"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/golang-jwt/jwt/v4"
)

// Claims are the identity fields read from a member token
type Claims struct {
	UserID string
}

// Provider verifies member tokens. Tokens are issued by the identity service.
type Provider interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

type jwtAuth struct {
	AuthConfig config.AuthConfig
}

func NewProvider(cfg *config.Configuration) Provider {
	return &jwtAuth{
		AuthConfig: cfg.Auth,
	}
}

func (a *jwtAuth) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ierr.NewError("unexpected signing method").
				WithHint(fmt.Sprintf("unexpected signing method: %v", token.Header["alg"])).
				Mark(ierr.ErrUnauthorized)
		}
		return []byte(a.AuthConfig.Secret), nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid or expired token").
			Mark(ierr.ErrUnauthorized)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid token claims").
			Mark(ierr.ErrUnauthorized)
	}

	// identity service tokens carry user_id, third party ones only sub
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if userID == "" {
		return nil, ierr.NewError("token missing user ID").
			WithHint("Token missing user ID").
			Mark(ierr.ErrUnauthorized)
	}

	return &Claims{UserID: userID}, nil
}
