// File: internal/config/config.go
// Brief: Layered configuration for stackguard.

// Package config defines stackguard's settings and loads them through Viper:
// built-in defaults, then a config file, then STACKGUARD_* environment
// variables. Command-line flags are bound on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/stackguard/internal/changeset"
	"github.com/example/stackguard/internal/check"
	"github.com/example/stackguard/internal/declarations"
	"github.com/example/stackguard/internal/directory"
	"github.com/example/stackguard/internal/secretstore"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "STACKGUARD"
	ConfigEnvVar   = "STACKGUARD_CONFIG"
	repoConfigName = ".stackguard"
)

// Keys names the declaration keys read from diffs and files.
type Keys struct {
	StackName  string `mapstructure:"stackName"`
	OwnerEmail string `mapstructure:"ownerEmail"`
}

// Files configures the extension whitelist.
type Files struct {
	ConfigDir         string   `mapstructure:"configDir"`
	AllowedExtensions []string `mapstructure:"allowedExtensions"`
}

// Scan configures the local declaration walk.
type Scan struct {
	Exclude []string `mapstructure:"exclude"`
}

// AWS selects the region and profile for CloudFormation.
type AWS struct {
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// Config is the fully resolved configuration.
type Config struct {
	Keys      Keys               `mapstructure:"keys"`
	Files     Files              `mapstructure:"files"`
	Scan      Scan               `mapstructure:"scan"`
	AWS       AWS                `mapstructure:"aws"`
	Directory directory.Config   `mapstructure:"directory"`
	Secrets   secretstore.Config `mapstructure:"secrets"`
	// Source is the config file that was read, if any.
	Source string `mapstructure:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Keys:      Keys{StackName: changeset.DefaultStackNameKey, OwnerEmail: changeset.DefaultOwnerEmailKey},
		Files:     Files{ConfigDir: "config", AllowedExtensions: append([]string(nil), check.DefaultAllowedExtensions...)},
		Scan:      Scan{Exclude: append([]string(nil), declarations.DefaultExcludes...)},
		Directory: directory.DefaultConfig(),
		Secrets:   secretstore.DefaultConfig(),
	}
}

// NewViper returns a Viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	def := Default()
	v.SetDefault("keys.stackName", def.Keys.StackName)
	v.SetDefault("keys.ownerEmail", def.Keys.OwnerEmail)
	v.SetDefault("files.configDir", def.Files.ConfigDir)
	v.SetDefault("files.allowedExtensions", def.Files.AllowedExtensions)
	v.SetDefault("scan.exclude", def.Scan.Exclude)
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("directory.provider", def.Directory.Provider)
	v.SetDefault("directory.url", "")
	v.SetDefault("directory.emailParam", def.Directory.EmailParam)
	v.SetDefault("directory.idField", def.Directory.IDField)
	v.SetDefault("directory.authScheme", def.Directory.AuthScheme)
	v.SetDefault("directory.apiKey", "")
	v.SetDefault("secrets.defaultProvider", def.Secrets.DefaultProvider)
	v.SetDefault("secrets.providers", map[string]interface{}{"ssm": map[string]interface{}{"type": "ssm"}})
	return v
}

// Load reads configuration. explicitPath wins over STACKGUARD_CONFIG, which
// wins over .stackguard.yaml in repoRoot and config.yaml in the user config
// directories. A missing file is only an error when named explicitly.
func Load(v *viper.Viper, explicitPath, repoRoot string) (Config, error) {
	if v == nil {
		v = NewViper()
	}
	path := strings.TrimSpace(explicitPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(ConfigEnvVar))
	}
	strict := path != ""
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return Config{}, fmt.Errorf("expand config path %s: %w", path, err)
		}
		v.SetConfigFile(expanded)
	} else if repoFile := findRepoConfig(repoRoot); repoFile != "" {
		v.SetConfigFile(repoFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range SearchDirs() {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if strict || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no run could succeed with. Directory settings are
// checked separately because only remote mode needs them.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Keys.StackName) == "" {
		return fmt.Errorf("keys.stackName must not be empty")
	}
	if strings.TrimSpace(c.Keys.OwnerEmail) == "" {
		return fmt.Errorf("keys.ownerEmail must not be empty")
	}
	for _, ext := range c.Files.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("files.allowedExtensions entry %q must start with a dot", ext)
		}
	}
	return nil
}

// ChangesetKeys converts the key settings for the extractor.
func (c Config) ChangesetKeys() changeset.Keys {
	return changeset.Keys{StackName: c.Keys.StackName, OwnerEmail: c.Keys.OwnerEmail}
}

// SearchDirs lists user-level config directories in lookup order.
func SearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "stackguard"))
	}
	if home, err := homedir.Dir(); err == nil && home != "" {
		add(filepath.Join(home, ".config", "stackguard"))
		add(filepath.Join(home, ".stackguard"))
	}
	return dirs
}

func findRepoConfig(repoRoot string) string {
	if repoRoot == "" {
		return ""
	}
	for _, ext := range []string{".yaml", ".yml"} {
		candidate := filepath.Join(repoRoot, repoConfigName+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
