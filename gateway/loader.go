package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"checkout-service/apperrors"
	"checkout-service/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProviderFactory constructs the provider client. It is called until it
// succeeds once.
type ProviderFactory func(ctx context.Context) (Provider, error)

// Check is a readiness check run before the factory.
type Check func(ctx context.Context) error

// Loader loads the payment SDK at most once. Concurrent first calls share
// one load. A failed load is not remembered, so the next attempt retries.
type Loader struct {
	factory ProviderFactory
	checks  []Check
	timeout time.Duration

	group singleflight.Group
	mu    sync.RWMutex
	ready Provider
}

func NewLoader(factory ProviderFactory, checks ...Check) *Loader {
	return &Loader{factory: factory, checks: checks, timeout: 10 * time.Second}
}

// Ensure returns the loaded provider. Errors are apperrors.ErrSDKUnavailable.
func (l *Loader) Ensure(ctx context.Context) (Provider, error) {
	if p := l.loaded(); p != nil {
		return p, nil
	}

	v, err, _ := l.group.Do("sdk", func() (interface{}, error) {
		if p := l.loaded(); p != nil {
			return p, nil
		}

		loadCtx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()

		for _, check := range l.checks {
			if err := check(loadCtx); err != nil {
				return nil, err
			}
		}
		p, err := l.factory(loadCtx)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.ready = p
		l.mu.Unlock()
		logger.Info(ctx, "payment SDK loaded", zap.String("provider", p.Name()))
		return p, nil
	})
	if err != nil {
		logger.Error(ctx, "payment SDK load failed", err)
		return nil, apperrors.Wrap(apperrors.ErrSDKUnavailable, err)
	}
	return v.(Provider), nil
}

func (l *Loader) loaded() Provider {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ready
}

// Loaded reports whether a load has succeeded.
func (l *Loader) Loaded() bool {
	return l.loaded() != nil
}

// ScriptCheck checks that the hosted checkout script answers.
func ScriptCheck(client *http.Client, url string) Check {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("checkout script unreachable: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("checkout script returned %d", resp.StatusCode)
		}
		return nil
	}
}
