package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/backend"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
)

// ErrNoToken is returned by a StaticToken holding an empty value.
var ErrNoToken = errors.New("no backend token configured")

var _ ports.TokenSource = StaticToken("")

// StaticToken is a token issued out of band and read from configuration.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	v := strings.TrimSpace(string(t))
	if v == "" {
		return "", ErrNoToken
	}
	return v, nil
}

// DefaultLoginAttempts is the attempt budget when none is configured.
const DefaultLoginAttempts = 5

// LoginWithRetry asks src for a token up to attempts times. Business logic
// errors are logged as warnings and other errors as errors; both are retried.
// Context cancellation stops immediately.
func LoginWithRetry(ctx context.Context, src ports.TokenSource, attempts int, logger ports.Logger) (string, error) {
	if attempts < 1 {
		attempts = DefaultLoginAttempts
	}
	var lastErr error
	for i := range attempts {
		token, err := src.Token(ctx)
		if err == nil {
			logger.Info("login succeeded", "attempt", i+1)
			return token, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err

		var ble *backend.BusinessLogicError
		if errors.As(err, &ble) {
			logger.Warn("login rejected", "attempt", i+1, "error", err)
		} else {
			logger.Error("login failed", "attempt", i+1, "error", err)
		}
	}
	return "", fmt.Errorf("login failed after %d attempts: %w", attempts, lastErr)
}
