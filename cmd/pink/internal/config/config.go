// Package config resolves the optional pink.yaml project configuration.
//
// Priority order for every setting: environment (including a project .env
// file) > pink.yaml > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the project root.
const FileName = "pink.yaml"

// Default values applied by Resolve.
const (
	DefaultCacheSize     = 128
	DefaultMaxIterations = 10000
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "auto"
)

// Config represents the optional pink.yaml configuration.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Components ComponentsConfig `yaml:"components"`
	Log        LogConfig        `yaml:"log"`
	Globals    map[string]any   `yaml:"globals,omitempty"`
}

// EngineConfig contains runtime settings.
type EngineConfig struct {
	Version       string `yaml:"version,omitempty"`
	MaxIterations int    `yaml:"maxIterations,omitempty"`
}

// ComponentsConfig locates component fragments.
type ComponentsConfig struct {
	Dir       string   `yaml:"dir,omitempty"`
	URL       string   `yaml:"url,omitempty"`
	CacheSize int      `yaml:"cacheSize,omitempty"`
	S3        S3Config `yaml:"s3"`
}

// S3Config locates fragments in an S3-compatible bucket.
type S3Config struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"accessKey,omitempty"`
	SecretKey string `yaml:"secretKey,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	UseSSL    *bool  `yaml:"useSSL,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root          string
	ModulePath    string
	EngineVersion string
	MaxIterations int
	ComponentsDir string
	ComponentsURL string
	CacheSize     int
	S3            *S3Resolved
	LogLevel      string
	LogFormat     string
	Globals       map[string]any
}

// S3Resolved is set when a bucket is configured.
type S3Resolved struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Remote reports whether any network fragment source is configured.
func (r *Resolved) Remote() bool {
	return r.ComponentsURL != "" || r.S3 != nil
}

// LoadOptional reads the configuration at path, or pink.yaml in dir when
// path is empty. A missing default file yields an empty configuration; a
// missing explicit file is an error.
func LoadOptional(dir, path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, FileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration data.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return &cfg, nil
}

// Resolve loads dir/.env and the configuration file, then applies
// environment overrides and defaults.
func Resolve(dir, path string) (*Resolved, error) {
	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}

	cfg, err := LoadOptional(dir, path)
	if err != nil {
		return nil, err
	}

	modulePath, err := modulePath(dir)
	if err != nil {
		return nil, err
	}

	engineVersion := strings.TrimSpace(cfg.Engine.Version)
	if engineVersion == "" {
		engineVersion = "latest"
	}
	if err := validateEngineVersion(engineVersion); err != nil {
		return nil, err
	}

	maxIterations := cfg.Engine.MaxIterations
	if maxIterations == 0 {
		maxIterations = DefaultMaxIterations
	}

	componentsDir := firstNonEmpty(os.Getenv("PINK_COMPONENTS_DIR"), cfg.Components.Dir)
	if componentsDir != "" && !filepath.IsAbs(componentsDir) {
		componentsDir = filepath.Join(dir, componentsDir)
	}

	cacheSize := cfg.Components.CacheSize
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}

	s3, err := resolveS3(cfg.Components.S3)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		Root:          dir,
		ModulePath:    modulePath,
		EngineVersion: engineVersion,
		MaxIterations: maxIterations,
		ComponentsDir: componentsDir,
		ComponentsURL: firstNonEmpty(os.Getenv("PINK_COMPONENTS_URL"), cfg.Components.URL),
		CacheSize:     cacheSize,
		S3:            s3,
		LogLevel:      firstNonEmpty(os.Getenv("PINK_LOG_LEVEL"), cfg.Log.Level, DefaultLogLevel),
		LogFormat:     firstNonEmpty(os.Getenv("PINK_LOG_FORMAT"), cfg.Log.Format, DefaultLogFormat),
		Globals:       cfg.Globals,
	}, nil
}

// FindProjectRoot walks up from start to the nearest directory holding
// pink.yaml or go.mod. It returns start when neither is found.
func FindProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for cur := dir; ; {
		for _, marker := range []string{FileName, "go.mod"} {
			if _, err := os.Stat(filepath.Join(cur, marker)); err == nil {
				return cur, nil
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir, nil
		}
		cur = parent
	}
}

func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// modulePath returns the module path of dir/go.mod, or "" when there is none.
func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func validateEngineVersion(v string) error {
	if v == "latest" {
		return nil
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("engine.version must be \"latest\" or a semantic version (got %q)", v)
	}
	return nil
}

func resolveS3(cfg S3Config) (*S3Resolved, error) {
	bucket := firstNonEmpty(os.Getenv("PINK_S3_BUCKET"), cfg.Bucket)
	if bucket == "" {
		return nil, nil
	}
	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}
	if raw := strings.TrimSpace(os.Getenv("PINK_S3_USE_SSL")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("PINK_S3_USE_SSL: %w", err)
		}
		useSSL = v
	}
	endpoint := firstNonEmpty(os.Getenv("PINK_S3_ENDPOINT"), cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("components.s3.endpoint is required when a bucket is set")
	}
	return &S3Resolved{
		Endpoint:  endpoint,
		Region:    firstNonEmpty(os.Getenv("PINK_S3_REGION"), cfg.Region, "us-east-1"),
		AccessKey: firstNonEmpty(os.Getenv("PINK_S3_ACCESS_KEY"), cfg.AccessKey),
		SecretKey: firstNonEmpty(os.Getenv("PINK_S3_SECRET_KEY"), cfg.SecretKey),
		Bucket:    bucket,
		Prefix:    firstNonEmpty(os.Getenv("PINK_S3_PREFIX"), cfg.Prefix),
		UseSSL:    useSSL,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
