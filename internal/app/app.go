package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"prompt-gateway/internal/credentials"
	"prompt-gateway/internal/integrations/openai"
	"prompt-gateway/internal/integrations/paramstore"
	"prompt-gateway/internal/prompts"
	"prompt-gateway/internal/repository"
	"prompt-gateway/internal/usecase"
)

const (
	SourceEnv = "env"
	SourceSSM = "ssm"
)

// Config is the deploy-time configuration shared by the Lambda and the
// development server.
type Config struct {
	CredentialSource string
	CredentialEnvKey string
	ParamPrefix      string
	PromptParameter  string
	PromptTable      string
	BaseURL          string
	Model            string
	MaxTokens        int
	Policy           usecase.MessagePolicy
}

// ConfigFromEnv reads Config through getenv, normally os.Getenv. The
// credential itself is not read here; it is fetched per request.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		CredentialSource: strings.ToLower(envString(getenv, "CREDENTIAL_SOURCE", SourceEnv)),
		CredentialEnvKey: credentials.DefaultEnvKey,
		ParamPrefix:      strings.TrimSpace(getenv("PARAM_PREFIX")),
		PromptParameter:  strings.TrimSpace(getenv("PROMPT_PARAMETER")),
		PromptTable:      strings.TrimSpace(getenv("PROMPT_TABLE")),
		BaseURL:          envString(getenv, "OPENAI_BASE_URL", ""),
		Model:            envString(getenv, "OPENAI_MODEL", usecase.DefaultModel),
		MaxTokens:        envInt(getenv, "MAX_TOKENS", usecase.DefaultMaxTokens),
	}

	switch cfg.CredentialSource {
	case SourceEnv:
	case SourceSSM:
		if cfg.ParamPrefix == "" {
			return Config{}, errors.New("app: PARAM_PREFIX is required when CREDENTIAL_SOURCE=ssm")
		}
	default:
		return Config{}, fmt.Errorf("app: unknown CREDENTIAL_SOURCE %q", cfg.CredentialSource)
	}

	policy, err := usecase.ParseMessagePolicy(getenv("MESSAGE_VALIDATION"))
	if err != nil {
		return Config{}, fmt.Errorf("app: MESSAGE_VALIDATION: %w", err)
	}
	cfg.Policy = policy
	return cfg, nil
}

// LogLevel maps LOG_LEVEL to a slog level; anything but "debug" is info.
func LogLevel(s string) slog.Level {
	if strings.EqualFold(strings.TrimSpace(s), "debug") {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// ParamGetter is satisfied by *paramstore.Client.
type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// PromptLister is satisfied by *repository.PromptTable.
type PromptLister interface {
	ListPrompts(ctx context.Context) (map[string]string, error)
}

// Factory creates the AWS-backed collaborators. Build only asks for the ones
// the configuration enables.
type Factory interface {
	ParamStore(ctx context.Context) (ParamGetter, error)
	PromptTable(ctx context.Context, tableName string) (PromptLister, error)
}

// Build loads the prompt registry and wires the relay service.
func Build(ctx context.Context, cfg Config, f Factory) (*usecase.RelayService, error) {
	var params ParamGetter
	if cfg.CredentialSource == SourceSSM || cfg.PromptParameter != "" {
		p, err := f.ParamStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: create paramstore client: %w", err)
		}
		params = p
	}

	var creds usecase.CredentialProvider
	if cfg.CredentialSource == SourceSSM {
		p, err := credentials.NewParamStoreProvider(params, cfg.ParamPrefix, paramstore.ErrNotFound)
		if err != nil {
			return nil, fmt.Errorf("app: create credential provider: %w", err)
		}
		creds = p
	} else {
		creds = credentials.NewEnvProvider(cfg.CredentialEnvKey)
	}

	table, err := loadPrompts(ctx, cfg, params, f)
	if err != nil {
		return nil, err
	}
	registry := prompts.New(table)
	slog.Info("prompt registry loaded", "prompts", registry.Len(), "credential_source", cfg.CredentialSource)

	var opts []openai.Option
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	return usecase.NewRelayService(creds, openai.NewClient(opts...), registry, usecase.Config{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Policy:    cfg.Policy,
	})
}

func loadPrompts(ctx context.Context, cfg Config, params ParamGetter, f Factory) (map[string]string, error) {
	var overlays []map[string]string

	if cfg.PromptParameter != "" {
		raw, err := params.GetParameter(ctx, cfg.PromptParameter)
		if err != nil {
			return nil, fmt.Errorf("app: load prompt parameter: %w", err)
		}
		table, err := prompts.ParseTable(raw)
		if err != nil {
			return nil, fmt.Errorf("app: prompt parameter %q: %w", cfg.PromptParameter, err)
		}
		overlays = append(overlays, table)
	}

	if cfg.PromptTable != "" {
		lister, err := f.PromptTable(ctx, cfg.PromptTable)
		if err != nil {
			return nil, fmt.Errorf("app: create prompt table client: %w", err)
		}
		table, err := lister.ListPrompts(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: load prompt table: %w", err)
		}
		if err := prompts.Validate(table); err != nil {
			return nil, fmt.Errorf("app: prompt table %q: %w", cfg.PromptTable, err)
		}
		overlays = append(overlays, table)
	}

	return prompts.Merge(prompts.Default(), overlays...), nil
}

// AWSFactory builds SSM and DynamoDB clients from the default AWS config,
// loading it at most once.
type AWSFactory struct {
	cfg *aws.Config
}

func (f *AWSFactory) awsConfig(ctx context.Context) (aws.Config, error) {
	if f.cfg != nil {
		return *f.cfg, nil
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
	}
	f.cfg = &cfg
	return cfg, nil
}

func (f *AWSFactory) ParamStore(ctx context.Context) (ParamGetter, error) {
	cfg, err := f.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	return paramstore.New(awsssm.NewFromConfig(cfg))
}

func (f *AWSFactory) PromptTable(ctx context.Context, tableName string) (PromptLister, error) {
	cfg, err := f.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	return repository.New(awsdynamodb.NewFromConfig(cfg), tableName)
}

func envString(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(getenv func(string) string, key string, def int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
