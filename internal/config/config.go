package config

// Config holds the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Directory DirectoryConfig `yaml:"directory"`
	SASL      SASLConfig      `yaml:"sasl"`
	Logging   LogConfig       `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Address        string   `yaml:"address" default:":10389"`
	ServerName     string   `yaml:"serverName" default:"localhost"`
	MaxConnections int      `yaml:"maxConnections" default:"1000"`
	ReadTimeout    Duration `yaml:"readTimeout"`
	WriteTimeout   Duration `yaml:"writeTimeout" default:"30s"`
	AllowAnonymous bool     `yaml:"allowAnonymous" default:"true"`
}

// DirectoryConfig holds the in-memory directory contents.
type DirectoryConfig struct {
	BaseDN  string        `yaml:"baseDN" default:"dc=example,dc=com"`
	Entries []EntryConfig `yaml:"entries"`
}

// EntryConfig describes one entry loaded into the directory at startup.
type EntryConfig struct {
	DN         string              `yaml:"dn"`
	Attributes map[string][]string `yaml:"attributes"`
}

// SASLConfig holds SASL bind configuration.
type SASLConfig struct {
	Mechanisms         []string `yaml:"mechanisms" default:"[\"CRAM-MD5\"]"`
	Protocol           string   `yaml:"protocol" default:"ldap"`
	UserIDAttribute    string   `yaml:"userIDAttribute" default:"uid"`
	PasswordAttribute  string   `yaml:"passwordAttribute" default:"userPassword"`
	SessionIdleTimeout Duration `yaml:"sessionIdleTimeout" default:"5m"`
	SweepInterval      Duration `yaml:"sweepInterval" default:"1m"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"text"`
	Output string `yaml:"output" default:"stdout"`
}

// MetricsConfig holds Prometheus exposition configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address" default:":9090"`
	Path    string `yaml:"path" default:"/metrics"`
}
