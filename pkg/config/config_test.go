package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type testConf struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

type validatedConf struct {
	Port int `yaml:"port"`
}

func (c *validatedConf) Validate() error {
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_CONF_NAME", "expanded")
	path := writeConf(t, "name: ${TEST_CONF_NAME}\nport: 8080\n")

	var c testConf
	if err := Load(path, &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "expanded" || c.Port != 8080 {
		t.Errorf("conf = %+v", c)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var c testConf
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml"), &c); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_ValidatorFailure(t *testing.T) {
	path := writeConf(t, "port: -1\n")
	var c validatedConf
	if err := Load(path, &c); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadIfPresent_MissingKeepsDefaults(t *testing.T) {
	c := validatedConf{Port: 9090}
	if err := LoadIfPresent(filepath.Join(t.TempDir(), "absent.yaml"), &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Port != 9090 {
		t.Errorf("Port = %d, defaults must survive", c.Port)
	}
}

func TestLoadIfPresent_MissingStillValidates(t *testing.T) {
	c := validatedConf{Port: 0}
	if err := LoadIfPresent(filepath.Join(t.TempDir(), "absent.yaml"), &c); err == nil {
		t.Error("expected validation error on defaults")
	}
}

func TestLoadIfPresent_PresentLoads(t *testing.T) {
	path := writeConf(t, "port: 7070\n")
	c := validatedConf{Port: 9090}
	if err := LoadIfPresent(path, &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Port != 7070 {
		t.Errorf("Port = %d, want 7070", c.Port)
	}
}
