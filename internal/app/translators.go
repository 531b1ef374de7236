package app

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// TranslatorChain is the optional YAML file that replaces the env-built
// provider chain. Gateway settings left empty keep their env values.
//
//	timeout_ms: 3000
//	parallel: true
//	translators:
//	  - kind: libretranslate
//	    endpoint: https://libre.internal/translate
//	    api_key: ${LIBRE_KEY}
//	  - kind: openai
//	    api_key: ${OPENAI_API_KEY}
//	    model: ${OPENAI_MODEL:-gpt-4o-mini}
type TranslatorChain struct {
	TimeoutMS   int                `yaml:"timeout_ms"`
	Parallel    *bool              `yaml:"parallel"`
	RatePerSec  float64            `yaml:"rate_per_sec"`
	Translators []TranslatorConfig `yaml:"translators"`
}

func LoadTranslatorChain(path string) (TranslatorChain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TranslatorChain{}, fmt.Errorf("read translator config: %w", err)
	}
	var chain TranslatorChain
	if err := yaml.Unmarshal(expandEnvVars(data), &chain); err != nil {
		return TranslatorChain{}, fmt.Errorf("parse translator config: %w", err)
	}
	for i := range chain.Translators {
		entry := &chain.Translators[i]
		entry.Kind = strings.ToLower(strings.TrimSpace(entry.Kind))
		if err := entry.validate(); err != nil {
			return TranslatorChain{}, fmt.Errorf("translators[%d]: %w", i, err)
		}
	}
	if len(chain.Translators) == 0 {
		return TranslatorChain{}, fmt.Errorf("translator config %s lists no translators", path)
	}
	return chain, nil
}

// Apply overrides cfg's translation settings with the file's.
func (c TranslatorChain) Apply(cfg *Config) {
	cfg.Translators = c.Translators
	if c.TimeoutMS > 0 {
		cfg.TranslateTimeout = TranslatorConfig{Timeout: c.TimeoutMS}.TimeoutDuration()
	}
	if c.Parallel != nil {
		cfg.TranslateParallel = *c.Parallel
	}
	if c.RatePerSec > 0 {
		cfg.TranslateRatePerSec = c.RatePerSec
	}
}

func (t TranslatorConfig) validate() error {
	switch t.Kind {
	case TranslatorDeepLX, TranslatorLibreTranslate:
		if strings.TrimSpace(t.Endpoint) == "" {
			return fmt.Errorf("%s requires endpoint", t.Kind)
		}
	case TranslatorMyMemory, TranslatorGoogle:
	case TranslatorOpenAI:
		if strings.TrimSpace(t.APIKey) == "" {
			return fmt.Errorf("%s requires api_key", t.Kind)
		}
	default:
		return fmt.Errorf("unknown translator kind %q", t.Kind)
	}
	return nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default}.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, fallback, hasDefault := strings.Cut(expr, ":-")
		value := os.Getenv(name)
		if value == "" && hasDefault {
			value = fallback
		}
		return []byte(value)
	})
}
