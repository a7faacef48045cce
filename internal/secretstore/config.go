package secretstore

// Config describes available secret providers.
type Config struct {
	DefaultProvider string                    `yaml:"defaultProvider,omitempty" json:"defaultProvider,omitempty" mapstructure:"defaultProvider"`
	Providers       map[string]ProviderConfig `yaml:"providers,omitempty" json:"providers,omitempty" mapstructure:"providers"`
}

// ProviderConfig captures provider-specific settings. Only the fields relevant
// to Type are read.
type ProviderConfig struct {
	Type string `yaml:"type,omitempty" json:"type,omitempty" mapstructure:"type"`

	// file: YAML document path. ssm: name prefix prepended to every lookup.
	Path string `yaml:"path,omitempty" json:"path,omitempty" mapstructure:"path"`

	// ssm
	Region  string `yaml:"region,omitempty" json:"region,omitempty" mapstructure:"region"`
	Profile string `yaml:"profile,omitempty" json:"profile,omitempty" mapstructure:"profile"`

	// env: prefix prepended to the upper-cased variable name.
	Prefix string `yaml:"prefix,omitempty" json:"prefix,omitempty" mapstructure:"prefix"`

	// vault
	Address        string `yaml:"address,omitempty" json:"address,omitempty" mapstructure:"address"`
	Token          string `yaml:"token,omitempty" json:"token,omitempty" mapstructure:"token"`
	Namespace      string `yaml:"namespace,omitempty" json:"namespace,omitempty" mapstructure:"namespace"`
	Mount          string `yaml:"mount,omitempty" json:"mount,omitempty" mapstructure:"mount"`
	KVVersion      int    `yaml:"kvVersion,omitempty" json:"kvVersion,omitempty" mapstructure:"kvVersion"`
	Key            string `yaml:"key,omitempty" json:"key,omitempty" mapstructure:"key"`
	AuthMethod     string `yaml:"authMethod,omitempty" json:"authMethod,omitempty" mapstructure:"authMethod"`
	AuthMount      string `yaml:"authMount,omitempty" json:"authMount,omitempty" mapstructure:"authMount"`
	RoleID         string `yaml:"roleId,omitempty" json:"roleId,omitempty" mapstructure:"roleId"`
	SecretID       string `yaml:"secretId,omitempty" json:"secretId,omitempty" mapstructure:"secretId"`
	AWSRole        string `yaml:"awsRole,omitempty" json:"awsRole,omitempty" mapstructure:"awsRole"`
	AWSHeaderValue string `yaml:"awsHeaderValue,omitempty" json:"awsHeaderValue,omitempty" mapstructure:"awsHeaderValue"`
}

// DefaultConfig is a single SSM Parameter Store provider named "ssm".
func DefaultConfig() Config {
	return Config{
		DefaultProvider: "ssm",
		Providers: map[string]ProviderConfig{
			"ssm": {Type: "ssm"},
		},
	}
}

// Empty reports whether the configuration declares any providers or defaults.
func (c Config) Empty() bool {
	return c.DefaultProvider == "" && len(c.Providers) == 0
}
