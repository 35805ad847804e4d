package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"prompt-gateway/internal/prompts"
	"prompt-gateway/internal/usecase"
)

func getenvFrom(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := ConfigFromEnv(getenvFrom(nil))
	require.NoError(t, err)
	require.Equal(t, SourceEnv, cfg.CredentialSource)
	require.Equal(t, "OPENAI_API_KEY", cfg.CredentialEnvKey)
	require.Equal(t, usecase.DefaultModel, cfg.Model)
	require.Equal(t, usecase.DefaultMaxTokens, cfg.MaxTokens)
	require.Equal(t, usecase.PolicyPassThrough, cfg.Policy)
	require.Empty(t, cfg.BaseURL)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	cfg, err := ConfigFromEnv(getenvFrom(map[string]string{
		"CREDENTIAL_SOURCE":  "SSM",
		"PARAM_PREFIX":       "/gateway",
		"PROMPT_PARAMETER":   "/gateway/prompts",
		"PROMPT_TABLE":       "gateway-prompts",
		"OPENAI_BASE_URL":    "http://localhost:4010/v1",
		"OPENAI_MODEL":       "gpt-4o-mini",
		"MAX_TOKENS":         "512",
		"MESSAGE_VALIDATION": "strict",
	}))
	require.NoError(t, err)
	require.Equal(t, Config{
		CredentialSource: SourceSSM,
		CredentialEnvKey: "OPENAI_API_KEY",
		ParamPrefix:      "/gateway",
		PromptParameter:  "/gateway/prompts",
		PromptTable:      "gateway-prompts",
		BaseURL:          "http://localhost:4010/v1",
		Model:            "gpt-4o-mini",
		MaxTokens:        512,
		Policy:           usecase.PolicyStrict,
	}, cfg)
}

func TestConfigFromEnv_BadMaxTokensFallsBack(t *testing.T) {
	for _, v := range []string{"lots", "-1", "0"} {
		cfg, err := ConfigFromEnv(getenvFrom(map[string]string{"MAX_TOKENS": v}))
		require.NoError(t, err)
		require.Equal(t, usecase.DefaultMaxTokens, cfg.MaxTokens, "MAX_TOKENS=%s", v)
	}
}

func TestConfigFromEnv_Errors(t *testing.T) {
	cases := []struct {
		name string
		vals map[string]string
		want string
	}{
		{name: "unknown source", vals: map[string]string{"CREDENTIAL_SOURCE": "vault"}, want: "CREDENTIAL_SOURCE"},
		{name: "ssm without prefix", vals: map[string]string{"CREDENTIAL_SOURCE": "ssm"}, want: "PARAM_PREFIX"},
		{name: "bad policy", vals: map[string]string{"MESSAGE_VALIDATION": "lenient"}, want: "MESSAGE_VALIDATION"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ConfigFromEnv(getenvFrom(tc.vals))
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, LogLevel("DEBUG"))
	require.Equal(t, slog.LevelInfo, LogLevel(""))
	require.Equal(t, slog.LevelInfo, LogLevel("verbose"))
}

type fakeParams struct {
	vals map[string]string
	err  error
}

func (f *fakeParams) GetParameter(_ context.Context, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.vals[name], nil
}

type fakeLister struct {
	table map[string]string
	err   error
}

func (f *fakeLister) ListPrompts(_ context.Context) (map[string]string, error) {
	return f.table, f.err
}

type fakeFactory struct {
	params      *fakeParams
	lister      *fakeLister
	paramsCalls int
	tableCalls  int
	tableName   string
}

func (f *fakeFactory) ParamStore(_ context.Context) (ParamGetter, error) {
	f.paramsCalls++
	if f.params == nil {
		return nil, errors.New("no ssm")
	}
	return f.params, nil
}

func (f *fakeFactory) PromptTable(_ context.Context, tableName string) (PromptLister, error) {
	f.tableCalls++
	f.tableName = tableName
	if f.lister == nil {
		return nil, errors.New("no dynamodb")
	}
	return f.lister, nil
}

func TestBuild_EnvOnlyTouchesNoAWS(t *testing.T) {
	f := &fakeFactory{}
	svc, err := Build(context.Background(), Config{CredentialSource: SourceEnv, CredentialEnvKey: "OPENAI_API_KEY"}, f)
	require.NoError(t, err)
	require.NotNil(t, svc)
	require.Zero(t, f.paramsCalls)
	require.Zero(t, f.tableCalls)
}

func TestBuild_SSMCredential(t *testing.T) {
	f := &fakeFactory{params: &fakeParams{vals: map[string]string{"/gateway/open-ai-token": `{"token":"sk"}`}}}
	_, err := Build(context.Background(), Config{CredentialSource: SourceSSM, ParamPrefix: "/gateway"}, f)
	require.NoError(t, err)
	require.Equal(t, 1, f.paramsCalls)
}

func TestBuild_FactoryError(t *testing.T) {
	_, err := Build(context.Background(), Config{CredentialSource: SourceSSM, ParamPrefix: "/gateway"}, &fakeFactory{})
	require.ErrorContains(t, err, "no ssm")
}

func TestLoadPrompts_Layers(t *testing.T) {
	params := &fakeParams{vals: map[string]string{"/gateway/prompts": `{"pmpt_a":"from ssm","pmpt_b":"from ssm"}`}}
	f := &fakeFactory{lister: &fakeLister{table: map[string]string{"pmpt_b": "from table"}}}
	cfg := Config{PromptParameter: "/gateway/prompts", PromptTable: "gateway-prompts"}

	table, err := loadPrompts(context.Background(), cfg, params, f)
	require.NoError(t, err)
	require.Equal(t, "from ssm", table["pmpt_a"])
	require.Equal(t, "from table", table["pmpt_b"])
	require.Contains(t, table, prompts.BrandAdvisorPromptID)
	require.Equal(t, "gateway-prompts", f.tableName)
}

func TestLoadPrompts_DefaultsOnly(t *testing.T) {
	table, err := loadPrompts(context.Background(), Config{}, nil, &fakeFactory{})
	require.NoError(t, err)
	require.Equal(t, prompts.Default(), table)
}

func TestLoadPrompts_Errors(t *testing.T) {
	cases := []struct {
		name   string
		cfg    Config
		params *fakeParams
		f      *fakeFactory
		want   string
	}{
		{
			name:   "parameter fetch",
			cfg:    Config{PromptParameter: "/p"},
			params: &fakeParams{err: errors.New("throttled")},
			f:      &fakeFactory{},
			want:   "throttled",
		},
		{
			name:   "parameter malformed",
			cfg:    Config{PromptParameter: "/p"},
			params: &fakeParams{vals: map[string]string{"/p": "nope"}},
			f:      &fakeFactory{},
			want:   "decode table",
		},
		{
			name: "table scan",
			cfg:  Config{PromptTable: "t"},
			f:    &fakeFactory{lister: &fakeLister{err: errors.New("scan failed")}},
			want: "scan failed",
		},
		{
			name: "table blank prompt",
			cfg:  Config{PromptTable: "t"},
			f:    &fakeFactory{lister: &fakeLister{table: map[string]string{"pmpt_a": " "}}},
			want: "empty prompt text",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var params ParamGetter
			if tc.params != nil {
				params = tc.params
			}
			_, err := loadPrompts(context.Background(), tc.cfg, params, tc.f)
			require.ErrorContains(t, err, tc.want)
		})
	}
}
