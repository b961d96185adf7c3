// Package config loads the ankipack command configuration from a YAML file,
// ANKIPACK_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ANKIPACK_"

// Deck names the decks created from the sources.
type Deck struct {
	Name        string `koanf:"name" json:"name" validate:"required" jsonschema:"description=Parent deck name; each source becomes a subdeck"`
	ID          int64  `koanf:"id" json:"id" validate:"gt=0" jsonschema:"description=Id of the first deck; later sources count up from it"`
	Description string `koanf:"description" json:"description,omitempty" jsonschema:"description=Deck description"`
}

// Config is the complete command configuration.
type Config struct {
	Output        string   `koanf:"output" json:"output" validate:"required" jsonschema:"description=Path of the .apkg file to write"`
	Deck          Deck     `koanf:"deck" json:"deck" jsonschema:"description=Deck naming"`
	SchemaVersion int      `koanf:"schema_version" json:"schema_version,omitempty" validate:"gte=0" jsonschema:"description=Collection schema version; 0 selects 11,minimum=0"`
	Sources       []string `koanf:"sources" json:"sources" validate:"min=1,dive,required" jsonschema:"description=Local directories or git URLs holding markdown cards"`
	ReposDir      string   `koanf:"repos_dir" json:"repos_dir,omitempty" validate:"required" jsonschema:"description=Directory holding working copies of git sources"`
	Media         []string `koanf:"media" json:"media,omitempty" validate:"dive,required" jsonschema:"description=Media files to embed"`
	Timestamp     float64  `koanf:"timestamp" json:"timestamp,omitempty" validate:"gte=0" jsonschema:"description=Write time in seconds since the epoch; 0 uses the current time"`
	LogLevel      string   `koanf:"log_level" json:"log_level,omitempty" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`

	// PrintSchema asks for the configuration JSON Schema instead of a run.
	PrintSchema bool `koanf:"print_schema" json:"-"`
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// flagKeys maps command-line flag names to configuration keys. Flags
// without a key, such as --config, are not configuration values.
var flagKeys = map[string]string{
	"output":           "output",
	"deck-name":        "deck.name",
	"deck-id":          "deck.id",
	"deck-description": "deck.description",
	"schema-version":   "schema_version",
	"source":           "sources",
	"repos-dir":        "repos_dir",
	"media":            "media",
	"timestamp":        "timestamp",
	"log-level":        "log_level",
	"print-schema":     "print_schema",
}

// envKeys maps environment variable names, without EnvPrefix, to
// configuration keys.
var envKeys = map[string]string{
	"OUTPUT":           "output",
	"DECK_NAME":        "deck.name",
	"DECK_ID":          "deck.id",
	"DECK_DESCRIPTION": "deck.description",
	"SCHEMA_VERSION":   "schema_version",
	"SOURCES":          "sources",
	"REPOS_DIR":        "repos_dir",
	"MEDIA":            "media",
	"TIMESTAMP":        "timestamp",
	"LOG_LEVEL":        "log_level",
}

// listKeys are split on commas when read from the environment.
var listKeys = map[string]bool{"sources": true, "media": true}

// NewFlagSet returns the command-line flags understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "YAML configuration file")
	fs.StringP("output", "o", "", "Path of the .apkg file to write")
	fs.String("deck-name", "Knol", "Parent deck name")
	fs.Int64("deck-id", 1700000000000, "Id of the first deck")
	fs.String("deck-description", "", "Deck description")
	fs.Int("schema-version", 0, "Collection schema version (0 selects 11)")
	fs.StringSliceP("source", "s", nil, "Local directory or git URL holding markdown cards (repeatable)")
	fs.String("repos-dir", "repos", "Directory holding working copies of git sources")
	fs.StringSlice("media", nil, "Media file to embed (repeatable)")
	fs.Float64("timestamp", 0, "Write time in seconds since the epoch (0 uses the current time)")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.Bool("print-schema", false, "Print the configuration JSON Schema and exit")
	return fs
}

// Load parses args and merges the configuration sources. The returned
// configuration is validated unless PrintSchema is set.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("ankipack")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unknown arguments: %v", fs.Args())
	}

	k := koanf.New(".")
	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.PrintSchema {
		return &cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envValue(name, value string) (string, interface{}) {
	key, ok := envKeys[strings.TrimPrefix(name, EnvPrefix)]
	if !ok {
		return "", nil
	}
	if listKeys[key] {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return key, items
	}
	return key, value
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint and reports all failures at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed on %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Schema returns the JSON Schema of the configuration file.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s := r.Reflect(&Config{})
	s.Title = "ankipack configuration"
	return json.MarshalIndent(s, "", "  ")
}

// WriteSchema prints the JSON Schema to stdout.
func WriteSchema() error {
	data, err := Schema()
	if err != nil {
		return fmt.Errorf("failed to build config schema: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
