package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultEnvKey is the environment variable holding the upstream credential.
const DefaultEnvKey = "OPENAI_API_KEY"

// ErrNotConfigured means no credential is available. It is a deployment
// error, never a client error.
var ErrNotConfigured = errors.New("credentials: upstream API key not configured")

// Provider yields the upstream credential. Implementations are asked on every
// request and must not cache the value in package state.
type Provider interface {
	APIKey(ctx context.Context) (string, error)
}

// EnvProvider reads the credential from the process environment on each call.
type EnvProvider struct {
	key    string
	lookup func(string) (string, bool)
}

// NewEnvProvider returns a provider for the named variable; an empty name
// falls back to DefaultEnvKey.
func NewEnvProvider(key string) *EnvProvider {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultEnvKey
	}
	return &EnvProvider{key: key, lookup: os.LookupEnv}
}

func (p *EnvProvider) APIKey(_ context.Context) (string, error) {
	v, ok := p.lookup(p.key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", ErrNotConfigured
	}
	return strings.TrimSpace(v), nil
}

// Getter is satisfied by paramstore.Client.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// tokenPayload is the JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

// ParamStoreProvider reads the credential from SSM on each call. The stored
// value is either a JSON object {"token": "..."} or the bare key.
type ParamStoreProvider struct {
	getter   Getter
	name     string
	notFound error
}

// NewParamStoreProvider reads <paramPrefix>/open-ai-token. notFound is the
// sentinel the getter wraps for a missing parameter; it may be nil.
func NewParamStoreProvider(getter Getter, paramPrefix string, notFound error) (*ParamStoreProvider, error) {
	if getter == nil {
		return nil, errors.New("credentials: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("credentials: parameter prefix must not be empty")
	}
	return &ParamStoreProvider{
		getter:   getter,
		name:     paramPrefix + "/open-ai-token",
		notFound: notFound,
	}, nil
}

func (p *ParamStoreProvider) APIKey(ctx context.Context) (string, error) {
	raw, err := p.getter.GetParameter(ctx, p.name)
	if err != nil {
		if p.notFound != nil && errors.Is(err, p.notFound) {
			return "", fmt.Errorf("%w: %v", ErrNotConfigured, err)
		}
		return "", fmt.Errorf("credentials: fetch token from paramstore: %w", err)
	}
	token, err := parseToken(raw)
	if err != nil {
		return "", err
	}
	return token, nil
}

func parseToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNotConfigured
	}
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("credentials: unmarshal paramstore token value as JSON: %w", err)
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", ErrNotConfigured
	}
	return strings.TrimSpace(tp.Token), nil
}
