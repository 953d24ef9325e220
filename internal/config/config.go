package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultPath is the settings file read when BLOCKYWEB_CONFIG is unset.
const DefaultPath = "config.yaml"

const envPrefix = "BLOCKYWEB_"

// Config is built once at startup and shared read-only by every component.
type Config struct {
	// BlockyAPIURL is the upstream API base, always ending in "/".
	BlockyAPIURL string `koanf:"blocky_api_url" validate:"required,url,startswith=http"`

	// BlockyAllowedPath is the allow-list file appended to by the add action.
	BlockyAllowedPath string `koanf:"blocky_allowed_path" validate:"required"`

	// Host is the external admin host name. Empty means use the address
	// of the connection the request arrived on.
	Host string `koanf:"blocky_web_server_host"`

	Listen         string        `koanf:"listen" validate:"required"`
	BaseDir        string        `koanf:"base_dir"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
	Env            string        `koanf:"env" validate:"required,oneof=dev prod"`
	LogLevel       string        `koanf:"log_level" validate:"required,oneof=debug info warn error"`
}

// StaticDir is where /static assets are served from.
func (c *Config) StaticDir() string {
	return filepath.Join(c.BaseDir, "static")
}

var defaults = Config{
	Listen:         ":80",
	RequestTimeout: 10 * time.Second,
	Env:            "prod",
	LogLevel:       "info",
}

// ConfigurationError reports a settings problem that must abort startup.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v (ensure the settings file is properly filled out)", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Path returns the settings file location, honouring BLOCKYWEB_CONFIG.
func Path() string {
	if p, ok := os.LookupEnv(envPrefix + "CONFIG"); ok && p != "" {
		return p
	}
	return DefaultPath
}

// Load reads defaults, then the YAML file at path, then BLOCKYWEB_*
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	fail := func(err error) (*Config, error) {
		return nil, &ConfigurationError{Path: path, Err: err}
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return fail(fmt.Errorf("load defaults: %w", err))
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fail(fmt.Errorf("read settings file: %w", err))
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, envPrefix)), strings.TrimSpace(value)
		},
	}), nil); err != nil {
		return fail(fmt.Errorf("load env: %w", err))
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return fail(fmt.Errorf("decode settings: %w", err))
	}

	cfg.BlockyAPIURL = strings.TrimSpace(cfg.BlockyAPIURL)
	cfg.BlockyAllowedPath = strings.TrimSpace(cfg.BlockyAllowedPath)
	cfg.Host = strings.TrimSpace(cfg.Host)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fail(fmt.Errorf("%s failed %q validation", keyName(fe.StructField()), fe.Tag()))
		}
		return fail(err)
	}

	if !strings.HasSuffix(cfg.BlockyAPIURL, "/") {
		cfg.BlockyAPIURL += "/"
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = resolveBaseDir()
	}

	return &cfg, nil
}

// keyName maps a struct field back to its settings key for error messages.
func keyName(field string) string {
	switch field {
	case "BlockyAPIURL":
		return "blocky_api_url"
	case "BlockyAllowedPath":
		return "blocky_allowed_path"
	case "RequestTimeout":
		return "request_timeout"
	case "LogLevel":
		return "log_level"
	}
	return strings.ToLower(field)
}

// resolveBaseDir prefers the executable's directory and falls back to the
// working directory when no static assets sit next to the binary.
func resolveBaseDir() string {
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		if st, err := os.Stat(filepath.Join(dir, "static")); err == nil && st.IsDir() {
			return dir
		}
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
