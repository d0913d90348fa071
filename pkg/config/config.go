package config

import "github.com/zoom-oss/rtms-ingestion/pkg/database"

// ToDatabaseConfig projects the YAML-sourced DatabaseConfig onto the
// database package's own Config type, keeping pkg/database free of any
// dependency on pkg/config.
func (c *Config) ToDatabaseConfig() database.Config {
	return database.Config{
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.User,
		Password:        c.Database.Password,
		Database:        c.Database.Database,
		SSLMode:         c.Database.SSLMode,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
	}
}
