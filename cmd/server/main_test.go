package main

import (
	"bytes"
	"strings"
	"testing"

	"opticpos/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		AuthSecret:       "0123456789abcdef0123456789abcdef",
		SequenceMode:     "count",
		InvoicePrefix:    "INV-",
		ItemIDPrefix:     "NE-",
		BulkItemIDPrefix: "N",
	}
}

func TestValidateConfigRejectsWeakSecret(t *testing.T) {
	cfg := validConfig()
	cfg.AuthSecret = "short"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected short AUTH_SECRET to be rejected")
	}
}

func TestValidateConfigRejectsUnknownSequenceMode(t *testing.T) {
	cfg := validConfig()
	cfg.SequenceMode = "random"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected unknown SEQUENCE_MODE to be rejected")
	}
}

func TestValidateConfigRejectsSharedItemPrefixes(t *testing.T) {
	cfg := validConfig()
	cfg.BulkItemIDPrefix = cfg.ItemIDPrefix
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected identical item prefixes to be rejected")
	}
}

func TestValidateConfigAcceptsStrongValues(t *testing.T) {
	for _, mode := range []string{"", "count", "atomic"} {
		cfg := validConfig()
		cfg.SequenceMode = mode
		if err := validateConfig(cfg); err != nil {
			t.Fatalf("expected mode %q to pass, got %v", mode, err)
		}
	}
}

func TestCommandsAreRegistered(t *testing.T) {
	for _, name := range []string{"serve", "migrate", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected %s command, got %v err=%v", name, cmd, err)
		}
	}
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("expected %q, got %q", version, out.String())
	}
}
