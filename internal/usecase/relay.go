package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"prompt-gateway/internal/credentials"
	"prompt-gateway/internal/integrations/openai"
)

const (
	DefaultModel     = "gpt-4o"
	DefaultMaxTokens = 300
)

// MessagePolicy selects how inbound messages are checked before forwarding.
type MessagePolicy string

const (
	// PolicyPassThrough forwards messages untouched and leaves validation to
	// the upstream, which reports problems in its own error response.
	PolicyPassThrough MessagePolicy = "passthrough"
	// PolicyStrict rejects messages without a known role and a string content.
	PolicyStrict MessagePolicy = "strict"
)

// ParseMessagePolicy maps a configuration value to a policy. Empty means
// PolicyPassThrough.
func ParseMessagePolicy(s string) (MessagePolicy, error) {
	switch MessagePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyPassThrough:
		return PolicyPassThrough, nil
	case PolicyStrict:
		return PolicyStrict, nil
	}
	return "", fmt.Errorf("usecase: unknown message policy %q", s)
}

type CredentialProvider interface {
	APIKey(ctx context.Context) (string, error)
}

type Upstream interface {
	Forward(ctx context.Context, apiKey string, body []byte) (openai.Relay, error)
}

type PromptLookup interface {
	Lookup(id string) (string, bool)
}

// Config holds the deploy-time relay settings. None of them can be changed
// by a client request.
type Config struct {
	Model     string
	MaxTokens int
	Policy    MessagePolicy
}

type RelayService struct {
	creds     CredentialProvider
	upstream  Upstream
	prompts   PromptLookup
	model     string
	maxTokens int
	policy    MessagePolicy
}

// RelayInput is the inbound body as the transport delivered it. Base64 marks
// a body that still has to be decoded; decoding happens after the credential
// check so that a missing key is always reported first.
type RelayInput struct {
	Body   []byte
	Base64 bool
}

var utf8BOM = []byte("\xEF\xBB\xBF")

// RelayOutput is the upstream answer to send back verbatim, plus facts about
// the request for logging.
type RelayOutput struct {
	StatusCode int
	Body       []byte
	PromptID   string
	Injected   bool
}

func NewRelayService(creds CredentialProvider, upstream Upstream, prompts PromptLookup, cfg Config) (*RelayService, error) {
	if creds == nil {
		return nil, errors.New("usecase: credential provider must not be nil")
	}
	if upstream == nil {
		return nil, errors.New("usecase: upstream must not be nil")
	}
	if prompts == nil {
		return nil, errors.New("usecase: prompt lookup must not be nil")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyPassThrough
	}
	if policy != PolicyPassThrough && policy != PolicyStrict {
		return nil, fmt.Errorf("usecase: unknown message policy %q", policy)
	}
	return &RelayService{
		creds:     creds,
		upstream:  upstream,
		prompts:   prompts,
		model:     model,
		maxTokens: maxTokens,
		policy:    policy,
	}, nil
}

// Relay validates one inbound body, injects the server-held system prompt
// when prompt_id matches, and forwards the result upstream exactly once.
// Every failure detected locally is returned as *Error.
func (s *RelayService) Relay(ctx context.Context, in RelayInput) (RelayOutput, error) {
	apiKey, err := s.creds.APIKey(ctx)
	if err != nil {
		if errors.Is(err, credentials.ErrNotConfigured) {
			return RelayOutput{}, newError(ErrorNotConfigured, msgNotConfigured, err)
		}
		return RelayOutput{}, newError(ErrorInternal, msgCredentialLoad, err)
	}

	raw := in.Body
	if in.Base64 {
		decoded, err := base64.StdEncoding.DecodeString(string(raw))
		if err != nil {
			return RelayOutput{}, newError(ErrorInvalidInput, msgInvalidJSON, err)
		}
		raw = decoded
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if !json.Valid(raw) {
		return RelayOutput{}, newError(ErrorInvalidInput, msgInvalidJSON, nil)
	}
	body, err := decodeObject(raw)
	if err != nil {
		return RelayOutput{}, newError(ErrorInvalidInput, msgMissingMessages, err)
	}
	messages, ok := messagesArray(body)
	if !ok {
		return RelayOutput{}, newError(ErrorInvalidInput, msgMissingMessages, nil)
	}
	if s.policy == PolicyStrict {
		if idx, reason, bad := invalidMessage(messages); bad {
			e := newError(ErrorInvalidInput, fmt.Sprintf(msgInvalidMessageAt, idx), nil)
			e.Details = reason
			return RelayOutput{}, e
		}
	}

	out := RelayOutput{PromptID: promptID(body)}
	if text, ok := s.prompts.Lookup(out.PromptID); ok {
		sys, err := systemPrompt(text)
		if err != nil {
			return RelayOutput{}, newError(ErrorInternal, msgEncodeUpstream, err)
		}
		messages = append([]json.RawMessage{sys}, messages...)
		out.Injected = true
	}

	payload, err := upstreamBody(body, s.model, s.maxTokens, messages)
	if err != nil {
		return RelayOutput{}, newError(ErrorInternal, msgEncodeUpstream, err)
	}

	relay, err := s.upstream.Forward(ctx, apiKey, payload)
	if err != nil {
		e := newError(ErrorUpstreamUnreachable, msgUpstream, err)
		e.Details = err.Error()
		return RelayOutput{}, e
	}

	out.StatusCode = relay.StatusCode
	if out.StatusCode == 0 {
		out.StatusCode = http.StatusBadGateway
	}
	out.Body = relay.Body
	return out, nil
}
