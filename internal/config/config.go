package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"depwatch/internal/core/errors"
	"depwatch/internal/deprecated"
)

type Config struct {
	Paths   []string `toml:"paths"`
	Disable []string `toml:"disable"` // diagnostic kinds switched off

	Exclude       Exclude       `toml:"exclude"`
	Watch         Watch         `toml:"watch"`
	Rules         Rules         `toml:"rules"`
	Output        Output        `toml:"output"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce Duration `toml:"debounce"`
}

// Duration decodes TOML strings like "500ms" via time.ParseDuration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Rules is the sole source of deprecation facts; every section empty
// means nothing is deprecated.
type Rules struct {
	Methods   []string            `toml:"methods"`
	Arguments []ArgumentRule      `toml:"arguments"`
	Modules   []string            `toml:"modules"`
	Classes   map[string][]string `toml:"classes"`
}

// ArgumentRule marks one argument of a method as deprecated. A missing
// position means keyword-only.
type ArgumentRule struct {
	Method   string `toml:"method"`
	Name     string `toml:"name"`
	Position *int   `toml:"position"`
}

type Output struct {
	TSV   string `toml:"tsv"`
	SARIF string `toml:"sarif"`
}

type History struct {
	Path string `toml:"path"`
}

type Observability struct {
	Addr         string `toml:"addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Default debounce if not set
	if cfg.Watch.Debounce.Duration == 0 {
		cfg.Watch.Debounce.Duration = 500 * time.Millisecond
	}

	if len(cfg.Paths) == 0 {
		cfg.Paths = []string{"."}
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	known := map[string]bool{
		string(deprecated.DeprecatedMethod):   true,
		string(deprecated.DeprecatedArgument): true,
		string(deprecated.DeprecatedModule):   true,
		string(deprecated.DeprecatedClass):    true,
	}
	for _, kind := range c.Disable {
		if !known[kind] {
			return errors.AddContext(
				errors.New(errors.CodeValidationError, "unknown diagnostic kind in disable list"),
				errors.CtxRule, kind)
		}
	}

	for _, rule := range c.Rules.Arguments {
		if rule.Method == "" || rule.Name == "" {
			return errors.New(errors.CodeValidationError, "argument rule needs both method and name")
		}
		if rule.Position != nil && *rule.Position < 0 {
			return errors.AddContext(
				errors.New(errors.CodeValidationError, fmt.Sprintf("argument rule %s.%s: negative position", rule.Method, rule.Name)),
				errors.CtxRule, rule.Method)
		}
	}
	return nil
}

// Registry converts the rule sections into the checker's registry form.
func (c *Config) Registry() *deprecated.RuleRegistry {
	arguments := make(map[string][]deprecated.ArgumentSpec, len(c.Rules.Arguments))
	for _, rule := range c.Rules.Arguments {
		arguments[rule.Method] = append(arguments[rule.Method], deprecated.ArgumentSpec{
			Position: rule.Position,
			Name:     rule.Name,
		})
	}

	return deprecated.NewRuleRegistry(c.Rules.Methods, arguments, c.Rules.Modules, c.Rules.Classes)
}
