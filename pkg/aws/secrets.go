package aws

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// DefaultCredentialTTL bounds how long a gateway key stays cached. A gateway
// load retried after that reads the rotated key.
const DefaultCredentialTTL = 15 * time.Minute

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type credential struct {
	value   string
	fetched time.Time
}

// GatewayCredentials resolves payment gateway key secrets stored in Secrets
// Manager. It satisfies gateway.SecretSource for the Razorpay factory.
type GatewayCredentials struct {
	client secretsAPI
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]credential
}

func NewGatewayCredentials(cfg sdkaws.Config, ttl time.Duration) *GatewayCredentials {
	return newGatewayCredentials(secretsmanager.NewFromConfig(cfg), ttl)
}

func newGatewayCredentials(client secretsAPI, ttl time.Duration) *GatewayCredentials {
	if ttl <= 0 {
		ttl = DefaultCredentialTTL
	}
	return &GatewayCredentials{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]credential),
	}
}

// GetSecret returns the key secret stored under name, trimmed of the
// whitespace console edits tend to leave behind. An empty secret is an error.
func (g *GatewayCredentials) GetSecret(ctx context.Context, name string) (string, error) {
	if v, ok := g.cached(name); ok {
		return v, nil
	}

	out, err := g.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to get gateway credential %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("gateway credential %s has no string value", name)
	}
	value := strings.TrimSpace(*out.SecretString)
	if value == "" {
		return "", fmt.Errorf("gateway credential %s is empty", name)
	}

	g.mu.Lock()
	g.cache[name] = credential{value: value, fetched: g.now()}
	g.mu.Unlock()

	return value, nil
}

func (g *GatewayCredentials) cached(name string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.cache[name]
	if !ok || g.now().Sub(c.fetched) >= g.ttl {
		return "", false
	}
	return c.value, true
}
