package database

import (
	"fmt"
	"time"
)

// Config holds sqlite connection settings for a project's studio.db.
type Config struct {
	// Path is the absolute filesystem path to the sqlite file, typically
	// <project>/.opencode-studio/studio.db.
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns sane pool settings for a single-process, single-user
// local sqlite database at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    1, // sqlite serializes writers; one connection avoids SQLITE_BUSY
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}
}

// Validate checks that the configuration can be used to open a connection.
func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("max idle conns (%d) cannot exceed max open conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("max open conns must be at least 1")
	}
	return nil
}
