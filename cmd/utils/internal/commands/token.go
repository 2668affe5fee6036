package commands

import (
	"fmt"
	"time"

	"github.com/appetiteclub/tableflow/pkg/auth"
)

const DefaultTokenTTL = 12 * time.Hour

// Token mints a development bearer token for role, signed with the secret
// the services verify against.
func Token(secret, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("auth.jwt.secret is not set")
	}

	r, ok := auth.ParseRole(role)
	if !ok {
		return "", fmt.Errorf("unknown role %q", role)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return auth.NewVerifier(secret).Issue(auth.Principal{
		UserID: "dev-" + string(r),
		Name:   "Dev " + string(r),
		Role:   r,
	}, ttl)
}
