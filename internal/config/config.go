// Package config loads the tracker configuration.
//
// Site coordinates, the workstation sequence and the poll interval live in a
// YAML file validated against an embedded CUE schema. Credentials are never
// stored in the file: they come from the environment (YBS_USERNAME /
// YBS_PASSWORD), with a .env file honored when present.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Config is the parsed and validated configuration.
type Config struct {
	BaseURL      string   `yaml:"base_url"`
	LoginPath    string   `yaml:"login_path"`
	ManagePath   string   `yaml:"manage_path"`
	OrderMarker  string   `yaml:"order_marker"`
	Workstations []string `yaml:"workstations"`
	PollInterval string   `yaml:"poll_interval"`
	Database     string   `yaml:"database"`
}

// Credentials are the site login secrets, sourced from the environment.
type Credentials struct {
	Username string
	Password string
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{
		BaseURL:     "https://www.ybsnow.com",
		LoginPath:   "/login.html",
		ManagePath:  "/manage.html",
		OrderMarker: "YBS",
		Workstations: []string{
			"Indigo", "Laminate", "Die Cutting ABG", "Machine Glue", "Shipping",
		},
		PollInterval: "5m",
		Database:     "ordertrack.db",
	}
}

// Load reads the YAML file at path, validates it against the embedded CUE
// schema, and returns the result. Fields omitted from the file keep their
// defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate unifies the configuration with the embedded CUE schema and
// reports the first constraint violation.
func Validate(cfg Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup #Config: %w", err)
	}

	val := ctx.Encode(asSchemaValue(cfg))
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}

// asSchemaValue maps Config onto the schema's field names. CUE encodes Go
// structs by exported field name, so the yaml-tagged names are applied by
// hand here.
func asSchemaValue(cfg Config) map[string]any {
	stations := make([]any, len(cfg.Workstations))
	for i, s := range cfg.Workstations {
		stations[i] = s
	}
	return map[string]any{
		"base_url":      cfg.BaseURL,
		"login_path":    cfg.LoginPath,
		"manage_path":   cfg.ManagePath,
		"order_marker":  cfg.OrderMarker,
		"workstations":  stations,
		"poll_interval": cfg.PollInterval,
		"database":      cfg.Database,
	}
}

// Interval parses the poll interval. Validate has already constrained the
// format, so failures here indicate a schema/parser mismatch.
func (c Config) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("parse poll_interval: %w", err)
	}
	return d, nil
}

// LoadCredentials reads the site credentials from the environment, loading a
// .env file first when one exists in the working directory. Missing
// credentials are an error for commands that reach the network.
func LoadCredentials() (Credentials, error) {
	// Ignore a missing .env; plain environment variables still apply.
	_ = godotenv.Load()

	creds := Credentials{
		Username: os.Getenv("YBS_USERNAME"),
		Password: os.Getenv("YBS_PASSWORD"),
	}
	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, fmt.Errorf("YBS_USERNAME and YBS_PASSWORD must be set (environment or .env)")
	}
	return creds, nil
}
