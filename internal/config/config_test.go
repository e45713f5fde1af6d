package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Weaviate.Endpoint != "http://weaviate:8080" {
		t.Errorf("endpoint = %q", cfg.Weaviate.Endpoint)
	}
	if cfg.Weaviate.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Weaviate.Timeout)
	}
	if cfg.DB.Host != "db" || cfg.DB.Port != 5432 || cfg.DB.Database != "dify" {
		t.Errorf("db defaults = %+v", cfg.DB)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Weaviate.Endpoint != DefaultWeaviateEndpoint {
		t.Errorf("endpoint = %q", cfg.Weaviate.Endpoint)
	}
	if cfg.Weaviate.APIKey != "" {
		t.Errorf("api key = %q, want empty", cfg.Weaviate.APIKey)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("WEAVIATE_ENDPOINT", "http://localhost:8080")
	t.Setenv("WEAVIATE_API_KEY", "secret")
	t.Setenv("DIFY_DB_HOST", "pg.internal")
	t.Setenv("DIFY_DB_PORT", "5433")
	t.Setenv("DIFY_DB_NAME", "dify_prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Weaviate.Endpoint != "http://localhost:8080" {
		t.Errorf("endpoint = %q", cfg.Weaviate.Endpoint)
	}
	if cfg.Weaviate.APIKey != "secret" {
		t.Errorf("api key = %q", cfg.Weaviate.APIKey)
	}
	if cfg.DB.Host != "pg.internal" || cfg.DB.Port != 5433 || cfg.DB.Database != "dify_prod" {
		t.Errorf("db = %+v", cfg.DB)
	}
}

func TestDifyPrefixedVariableWins(t *testing.T) {
	t.Setenv("DIFY_DB_HOST", "dify-db")
	t.Setenv("DB_HOST", "plain-db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DB.Host != "dify-db" {
		t.Errorf("host = %q, want dify-db", cfg.DB.Host)
	}
}

func TestDSN(t *testing.T) {
	db := DBConfig{
		Host: "db", Port: 5432, User: "postgres",
		Password: "pw", Database: "dify", SSLMode: "disable",
	}
	want := "host=db port=5432 user=postgres password=pw dbname=dify sslmode=disable"
	if got := db.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
