package store

import (
	"strings"
	"testing"
)

func TestConfigApplyDefaults(t *testing.T) {
	t.Run("empty config uses sqlite", func(t *testing.T) {
		config := &Config{}
		config.ApplyDefaults()

		if config.Type != DatabaseTypeSQLite {
			t.Errorf("expected sqlite, got %s", config.Type)
		}
		if config.SQLite.Path == "" {
			t.Error("expected default sqlite path")
		}
		if !strings.Contains(config.SQLite.Path, "markhive") {
			t.Errorf("expected path under markhive data dir, got %s", config.SQLite.Path)
		}
	})

	t.Run("postgres defaults", func(t *testing.T) {
		config := &Config{Type: DatabaseTypePostgres}
		config.ApplyDefaults()

		if config.Postgres.Port != 5432 {
			t.Errorf("expected port 5432, got %d", config.Postgres.Port)
		}
		if config.Postgres.SSLMode != "disable" {
			t.Errorf("expected sslmode disable, got %s", config.Postgres.SSLMode)
		}
		if config.Postgres.MaxOpenConns == 0 {
			t.Error("expected non-zero max open conns")
		}
	})

	t.Run("explicit sqlite path preserved", func(t *testing.T) {
		config := &Config{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: "/tmp/x.db"}}
		config.ApplyDefaults()

		if config.SQLite.Path != "/tmp/x.db" {
			t.Errorf("expected path preserved, got %s", config.SQLite.Path)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"sqlite with path", Config{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: ":memory:"}}, false},
		{"sqlite without path", Config{Type: DatabaseTypeSQLite}, true},
		{"postgres missing host", Config{Type: DatabaseTypePostgres, Postgres: PostgresConfig{Database: "d", User: "u"}}, true},
		{"postgres missing database", Config{Type: DatabaseTypePostgres, Postgres: PostgresConfig{Host: "h", User: "u"}}, true},
		{"postgres complete", Config{Type: DatabaseTypePostgres, Postgres: PostgresConfig{Host: "h", Database: "d", User: "u"}}, false},
		{"unknown type", Config{Type: "mysql"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
