package config

import (
	"time"

	"github.com/zoom-oss/rtms-ingestion/pkg/stream"
	"github.com/zoom-oss/rtms-ingestion/pkg/wire"
)

// Credential is the clientId/clientSecret/secretToken triple used to
// sign handshakes and validate webhooks for one product.
type Credential struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	SecretToken  string `yaml:"secret_token" validate:"required"`
}

// toStream converts a config Credential to the stream package's copy
// of the same triple, keeping the wire-facing packages free of a
// dependency on pkg/config.
func (c Credential) toStream() stream.Credential {
	return stream.Credential{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		SecretToken:  c.SecretToken,
	}
}

// DatabaseConfig carries the Postgres connection parameters read from
// YAML, mirroring database.Config's fields under snake_case keys.
type DatabaseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Database string `yaml:"database" validate:"required"`
	SSLMode  string `yaml:"ssl_mode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// AdapterConfig points at the optional out-of-process services the
// narrow adapter interfaces (Summariser, ChunkWriter, Broadcaster,
// Searcher) may be backed by.
type AdapterConfig struct {
	// SummariserBaseURL, when set, configures an adapters.HTTPSummariser
	// against an OpenAI-compatible chat/completions endpoint.
	SummariserBaseURL string        `yaml:"summariser_base_url"`
	SummariserModel   string        `yaml:"summariser_model"`
	SummariserTimeout time.Duration `yaml:"summariser_timeout"`

	// BroadcasterDSN is the dedicated (non-pooled) Postgres connection
	// string the Hub uses for LISTEN/NOTIFY fan-out.
	BroadcasterDSN string `yaml:"broadcaster_dsn"`

	// SearchEmbeddingURL is read from configuration but not consulted:
	// search always uses the Store's lexical full-text search.
	SearchEmbeddingURL string `yaml:"search_embedding_url"`
}

// Config is the fully resolved, validated process configuration.
type Config struct {
	Credentials       map[stream.ProductKind]Credential `yaml:"credentials"`
	DefaultCredential *Credential                        `yaml:"default_credential"`

	MediaMask     wire.Mask `yaml:"-"`
	MediaMaskRaw  []string  `yaml:"media_mask"`
	FillerEnabled bool      `yaml:"filler_enabled"`

	LogLevel LogLevel `yaml:"log_level"`
	HTTPAddr string   `yaml:"http_addr" validate:"required"`

	Database DatabaseConfig `yaml:"database"`
	Adapters AdapterConfig  `yaml:"adapters"`

	ReconnectDebounce time.Duration `yaml:"reconnect_debounce"`
	KeepAliveTimeout  time.Duration `yaml:"keep_alive_timeout"`
	StreamHistorySize int           `yaml:"stream_history_size"`
}

// Resolve looks up the credential for product, falling back to the
// "meeting" credential and then to the "default" shorthand when no
// product-specific entry exists.
func (c *Config) Resolve(product stream.ProductKind) (stream.Credential, bool) {
	if cred, ok := c.Credentials[product]; ok {
		return cred.toStream(), true
	}
	if cred, ok := c.Credentials[stream.ProductMeeting]; ok {
		return cred.toStream(), true
	}
	if c.DefaultCredential != nil {
		return c.DefaultCredential.toStream(), true
	}
	return stream.Credential{}, false
}

// ResolveDefault returns the "default" shorthand credential, falling
// back to an arbitrary configured product credential when no default
// shorthand is set. Used by the webhook handler to find the secret
// token for the one synchronous path (endpoint.url_validation) that
// names no product of its own.
func (c *Config) ResolveDefault() (stream.Credential, bool) {
	if c.DefaultCredential != nil {
		return c.DefaultCredential.toStream(), true
	}
	for _, cred := range c.Credentials {
		return cred.toStream(), true
	}
	return stream.Credential{}, false
}
