package internal

import (
	"strings"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Docs.Root == "" || cfg.Snapshot.Path == "" || cfg.SQLite.Path == "" {
		t.Errorf("defaults missing paths: %+v", cfg)
	}
}

func TestDocsConfig_WorkersBounds(t *testing.T) {
	cfg := DocsConfig{Root: "./docs", Workers: 0}
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero workers should pass (scanner supplies the default): %v", err)
	}
	cfg.Workers = 65
	if err := cfg.Validate(); err == nil {
		t.Error("workers above the cap should fail")
	}
}

func TestDocsConfig_RootRequired(t *testing.T) {
	cfg := DocsConfig{Workers: 4}
	if err := cfg.Validate(); err == nil {
		t.Error("empty root should fail")
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	cfg := HTTPConfig{Port: 8080}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid port should pass: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Errorf("Address = %q", cfg.Address())
	}
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("out-of-range port should fail")
	}
}

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_SectionValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}

	cfg = NewDefaultConfig()
	cfg.Snapshot.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch snapshot error")
	}
}
