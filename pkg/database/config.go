package database

import "time"

// Config holds the Postgres connection and pool parameters. Populated
// by pkg/config from the YAML+env configuration file rather than read
// directly from the environment here.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// SearchPath, if set, scopes every pooled connection to a specific
	// schema. Empty means the server's default search_path. Used by
	// dbtest to give each test its own isolated schema.
	SearchPath string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 10
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = 15 * time.Minute
	}
	return c
}

// Validate checks the configuration for obviously invalid combinations.
func (c Config) Validate() error {
	if c.Database == "" {
		return errRequired("database")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errExceeds("max_idle_conns", "max_open_conns")
	}
	if c.MaxOpenConns < 1 {
		return errRequired("max_open_conns must be at least 1")
	}
	return nil
}

func errRequired(field string) error {
	return &configError{field: field, reason: "is required"}
}

func errExceeds(field, other string) error {
	return &configError{field: field, reason: "cannot exceed " + other}
}

type configError struct {
	field  string
	reason string
}

func (e *configError) Error() string {
	return "database: " + e.field + " " + e.reason
}
