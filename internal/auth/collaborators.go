package auth

import (
	"context"

	"github.com/medrex/clinic-portal/pkg/types"
)

// AuthClient exchanges credentials with the backend
type AuthClient interface {
	Login(ctx context.Context, creds types.Credentials) (*types.LoginResult, error)
	Logout(ctx context.Context) error
}

// PermissionClient fetches the permission names granted to a user
type PermissionClient interface {
	GetUserPermissions(ctx context.Context, userID string) ([]string, error)
}

// TokenSink receives the credential for outbound requests. An empty token
// removes it.
type TokenSink interface {
	SetToken(token string)
}

// Navigator issues abstract "navigate to path" requests
type Navigator interface {
	Navigate(ctx context.Context, path string) error
}
