package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Directory string  `mapstructure:"directory" yaml:"directory" validate:"required"` // Library root that imports move into
		Library   string  `mapstructure:"library" yaml:"library" validate:"required"`     // Path of the sqlite library database
		Import    Import  `mapstructure:"import" yaml:"import"`
		List      List    `mapstructure:"list" yaml:"list"`
		Catalog   Catalog `mapstructure:"catalog" yaml:"catalog"`
		Server    Server  `mapstructure:"server" yaml:"server"`
		Log       Log     `mapstructure:"log" yaml:"log"`
	}

	// Import is the parameter object handed to the import pipeline.
	Import struct {
		Hash           bool          `mapstructure:"hash" yaml:"hash"`
		Relocate       bool          `mapstructure:"relocate" yaml:"relocate"` // Move instead of copy
		Overwrite      bool          `mapstructure:"overwrite" yaml:"overwrite"`
		Prune          bool          `mapstructure:"prune" yaml:"prune"` // Remove emptied source directories after relocating
		Fetch          bool          `mapstructure:"fetch" yaml:"fetch"` // Reconcile against the catalog by default
		Workers        int           `mapstructure:"workers" yaml:"workers" validate:"min=1,max=64"`
		CatalogTimeout time.Duration `mapstructure:"catalog_timeout" yaml:"catalog_timeout" validate:"min=0"`
		Replacements   []Replacement `mapstructure:"replacements" yaml:"replacements,omitempty" validate:"dive"`
	}

	// Replacement is one configured sanitizer rule. An empty list selects
	// the built-in rules.
	Replacement struct {
		Pattern     string `mapstructure:"pattern" yaml:"pattern" validate:"required"`
		Replacement string `mapstructure:"replacement" yaml:"replacement"`
	}

	List struct {
		ISBN  bool `mapstructure:"isbn" yaml:"isbn"`   // Show the isbn column
		Table bool `mapstructure:"table" yaml:"table"` // Render as a table instead of one line per book
	}

	Catalog struct {
		BaseURL           string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
		APIKey            string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
		Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
		RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gt=0"`
	}

	Server struct {
		Host     string `mapstructure:"host" yaml:"host"`
		Port     int    `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
		Inbox    string `mapstructure:"inbox" yaml:"inbox,omitempty"`       // Directory imported on Schedule; disabled when empty
		Schedule string `mapstructure:"schedule" yaml:"schedule,omitempty"` // Cron format: "*/15 * * * *" = every 15 minutes
		Token    string `mapstructure:"token" yaml:"token,omitempty"`       // Bearer token required by /api routes when set
	}

	Log struct {
		Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
		Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	}
)

// Default returns the configuration used when neither a file nor the
// environment set a value.
func Default() Config {
	directory := "Books"
	if home, err := os.UserHomeDir(); err == nil {
		directory = filepath.Join(home, "Books")
	}

	return Config{
		Directory: directory,
		Library:   DefaultLibraryName,
		Import: Import{
			Workers:        4,
			CatalogTimeout: 10 * time.Second,
		},
		Catalog: Catalog{
			BaseURL:           DefaultCatalogURL,
			Timeout:           10 * time.Second,
			RequestsPerSecond: 1,
		},
		Server: Server{
			Host:     "127.0.0.1",
			Port:     8188,
			Schedule: "*/15 * * * *",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the location of the configuration file,
// $XDG_CONFIG_HOME/roots/config.yaml on Linux.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, AppName, FileName), nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("directory", d.Directory)
	v.SetDefault("library", d.Library)

	v.SetDefault("import.hash", d.Import.Hash)
	v.SetDefault("import.relocate", d.Import.Relocate)
	v.SetDefault("import.overwrite", d.Import.Overwrite)
	v.SetDefault("import.prune", d.Import.Prune)
	v.SetDefault("import.fetch", d.Import.Fetch)
	v.SetDefault("import.workers", d.Import.Workers)
	v.SetDefault("import.catalog_timeout", d.Import.CatalogTimeout)

	v.SetDefault("list.isbn", d.List.ISBN)
	v.SetDefault("list.table", d.List.Table)

	v.SetDefault("catalog.base_url", d.Catalog.BaseURL)
	v.SetDefault("catalog.api_key", d.Catalog.APIKey)
	v.SetDefault("catalog.timeout", d.Catalog.Timeout)
	v.SetDefault("catalog.requests_per_second", d.Catalog.RequestsPerSecond)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.inbox", d.Server.Inbox)
	v.SetDefault("server.schedule", d.Server.Schedule)
	v.SetDefault("server.token", d.Server.Token)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the configuration file at path, overlays ROOTS_* environment
// variables and validates the result. A missing file is not an error. An
// empty path selects DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Directory = expandHome(cfg.Directory)
	cfg.Library = expandHome(cfg.Library)
	cfg.Server.Inbox = expandHome(cfg.Server.Inbox)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and that every replacement pattern
// compiles.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	for i, r := range c.Import.Replacements {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("invalid config: import.replacements[%d]: %w", i, err)
		}
	}
	return nil
}

// LibraryPath returns the database location, resolving a relative Library
// against Directory.
func (c *Config) LibraryPath() string {
	if filepath.IsAbs(c.Library) {
		return c.Library
	}
	return filepath.Join(c.Directory, c.Library)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
