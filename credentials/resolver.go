package credentials

import (
	"fmt"
	"os"
	"strings"
)

// DefaultEnvVars maps provider names to their default environment variable names.
// The first variable with a non-empty value wins.
var DefaultEnvVars = map[string][]string{
	"anthropic":  {"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"},
	"openai":     {"OPENAI_API_KEY", "OPENAI_TOKEN"},
	"elevenlabs": {"ELEVENLABS_API_KEY", "XI_API_KEY"},
}

// ProviderHeaderConfig maps provider names to their API key header configuration.
var ProviderHeaderConfig = map[string]struct {
	HeaderName string
	Prefix     string
}{
	"anthropic":  {HeaderName: "X-API-Key", Prefix: ""},
	"openai":     {HeaderName: "Authorization", Prefix: "Bearer "},
	"elevenlabs": {HeaderName: "xi-api-key", Prefix: ""},
}

// ResolverConfig holds configuration for credential resolution.
type ResolverConfig struct {
	// Provider is the provider name (anthropic, openai, elevenlabs).
	Provider string

	// APIKey is an explicit key value; takes precedence over everything else.
	APIKey string

	// KeyFile is a path to a file holding the key.
	KeyFile string

	// KeyEnv is the name of an environment variable holding the key.
	KeyEnv string
}

// Resolve resolves an API key credential according to the chain:
// explicit value, key file, named environment variable, then the provider's
// default environment variables. A provider without any key resolves to a
// NoOpCredential; callers decide whether that is acceptable.
func Resolve(cfg ResolverConfig) (Credential, error) {
	apiKey, err := findAPIKey(cfg)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return &NoOpCredential{}, nil
	}
	return ForProvider(cfg.Provider, apiKey), nil
}

// ForProvider builds an APIKeyCredential using the provider's header scheme
// from ProviderHeaderConfig, so adapters never hardcode header names. An
// unknown provider gets the default bearer scheme.
func ForProvider(providerName, apiKey string) *APIKeyCredential {
	headerCfg, ok := ProviderHeaderConfig[providerName]
	if !ok {
		return NewAPIKeyCredential(apiKey)
	}
	return NewAPIKeyCredential(apiKey,
		WithHeaderName(headerCfg.HeaderName),
		WithPrefix(headerCfg.Prefix),
	)
}

func findAPIKey(cfg ResolverConfig) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}

	if cfg.KeyFile != "" {
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read credential file %s: %w", cfg.KeyFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if cfg.KeyEnv != "" {
		return strings.TrimSpace(os.Getenv(cfg.KeyEnv)), nil
	}

	for _, envVar := range DefaultEnvVars[cfg.Provider] {
		if value := strings.TrimSpace(os.Getenv(envVar)); value != "" {
			return value, nil
		}
	}

	return "", nil
}
