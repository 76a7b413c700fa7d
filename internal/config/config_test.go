package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	for _, key := range []string{"PORT", "ALLOWED_ORIGINS", "ITEM_ID_PREFIX", "BULK_ITEM_ID_PREFIX", "INVOICE_PREFIX", "SEQUENCE_MODE", "CATALOG_CACHE_TTL_SECONDS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Address())
	}
	if cfg.ItemIDPrefix != "NE-" || cfg.BulkItemIDPrefix != "N" || cfg.InvoicePrefix != "INV-" {
		t.Fatalf("unexpected prefixes: %+v", cfg)
	}
	if cfg.SequenceMode != "count" {
		t.Fatalf("expected count sequence mode, got %q", cfg.SequenceMode)
	}
	if cfg.CatalogCacheTTLSeconds != 30 {
		t.Fatalf("expected cache ttl 30, got %d", cfg.CatalogCacheTTLSeconds)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://127.0.0.1:3000" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("port: \"9000\"\ninvoice_prefix: \"BILL-\"\nsequence_mode: atomic\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("INVOICE_PREFIX", "")
	t.Setenv("SEQUENCE_MODE", "")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example, https://admin.example ,")

	cfg := Load()
	if cfg.Port != "7070" {
		t.Fatalf("expected env port to win, got %s", cfg.Port)
	}
	if cfg.InvoicePrefix != "BILL-" {
		t.Fatalf("expected file invoice prefix, got %s", cfg.InvoicePrefix)
	}
	if cfg.SequenceMode != "atomic" {
		t.Fatalf("expected atomic mode from file, got %s", cfg.SequenceMode)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://admin.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}
