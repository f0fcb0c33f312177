package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "MOODNEST"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabasePath    = "moodnest.db"
	defaultLogLevel        = "info"
	defaultCookieName      = "moodnest_session"
	defaultSessionIssuer   = "moodnest-auth"
	defaultAPIBaseURL      = "http://127.0.0.1:8080"
	defaultQueuePath       = "moodnest-queue.json"
	defaultTransportKind   = "tcp"
	defaultProbeIntervalMS = 15000
)

// ServerConfig captures runtime configuration for the API server.
type ServerConfig struct {
	HTTPAddress       string
	DatabasePath      string
	LogLevel          string
	SessionSigningKey string
	SessionCookieName string
	SessionIssuer     string
}

// AgentConfig captures runtime configuration for the sync agent.
type AgentConfig struct {
	APIBaseURL        string
	QueuePath         string
	QueueMaxBytes     int
	TransportKind     string
	SocketPath        string
	SessionToken      string
	SessionCookieName string
	ProbeInterval     time.Duration
	LogLevel          string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("session.cookie_name", defaultCookieName)
	configViper.SetDefault("session.issuer", defaultSessionIssuer)
	configViper.SetDefault("api.base_url", defaultAPIBaseURL)
	configViper.SetDefault("queue.path", defaultQueuePath)
	configViper.SetDefault("queue.max_bytes", 0)
	configViper.SetDefault("transport.kind", defaultTransportKind)
	configViper.SetDefault("transport.socket_path", "")
	configViper.SetDefault("connectivity.probe_interval_ms", defaultProbeIntervalMS)
}

// LoadServer parses API server configuration from viper.
func LoadServer(configViper *viper.Viper) (ServerConfig, error) {
	cfg := ServerConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		DatabasePath:      configViper.GetString("database.path"),
		LogLevel:          configViper.GetString("log.level"),
		SessionSigningKey: configViper.GetString("session.signing_secret"),
		SessionCookieName: configViper.GetString("session.cookie_name"),
		SessionIssuer:     configViper.GetString("session.issuer"),
	}

	if err := cfg.validate(); err != nil {
		return ServerConfig{}, err
	}

	return cfg, nil
}

func (c ServerConfig) validate() error {
	if strings.TrimSpace(c.SessionSigningKey) == "" {
		return fmt.Errorf("session.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	return nil
}

// LoadAgent parses sync agent configuration from viper.
func LoadAgent(configViper *viper.Viper) (AgentConfig, error) {
	cfg := AgentConfig{
		APIBaseURL:        configViper.GetString("api.base_url"),
		QueuePath:         configViper.GetString("queue.path"),
		QueueMaxBytes:     configViper.GetInt("queue.max_bytes"),
		TransportKind:     configViper.GetString("transport.kind"),
		SocketPath:        configViper.GetString("transport.socket_path"),
		SessionToken:      configViper.GetString("session.token"),
		SessionCookieName: configViper.GetString("session.cookie_name"),
		ProbeInterval:     time.Duration(configViper.GetInt("connectivity.probe_interval_ms")) * time.Millisecond,
		LogLevel:          configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AgentConfig{}, err
	}

	return cfg, nil
}

func (c AgentConfig) validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if strings.TrimSpace(c.QueuePath) == "" {
		return fmt.Errorf("queue.path is required")
	}
	if c.TransportKind == "unix" && strings.TrimSpace(c.SocketPath) == "" {
		return fmt.Errorf("transport.socket_path is required for the unix transport")
	}
	return nil
}
