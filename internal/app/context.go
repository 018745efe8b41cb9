package app

import (
	"context"
	"errors"
	"os"
	"strings"

	"fieldlens/internal/domain"
	"fieldlens/internal/engine"
	"fieldlens/internal/repo"
)

// ResolveReporter picks the acting user for CLI commands and ensures a user
// row exists, registering one on the fly if missing. Preference order:
// explicit override, FIELDLENS_REPORTER, then the OS username as a local
// fallback identity.
func ResolveReporter(ctx context.Context, override string, eng engine.Engine) (domain.User, error) {
	email := strings.TrimSpace(override)
	if email == "" {
		email = strings.TrimSpace(os.Getenv("FIELDLENS_REPORTER"))
	}
	if email == "" {
		if name := localUsername(); name != "" {
			email = name + "@localhost"
		}
	}
	if email == "" {
		return domain.User{}, errors.New("reporter not specified; use --reporter or FIELDLENS_REPORTER")
	}
	u, err := eng.Repo.GetUserByEmail(ctx, strings.ToLower(email))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	return eng.RegisterUser(ctx, email, "", "")
}

func localUsername() string {
	for _, key := range []string{"USER", "USERNAME"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
