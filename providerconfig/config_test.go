package providerconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesPoolSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "provider.json")
	body := `{"schema":"pool","target_pools":4,"target_density":2,"log_level":"debug"}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schema != SchemaPool || cfg.TargetPools != 4 || cfg.TargetDensity != 2 || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected config: %#v", cfg)
	}
}

func TestLoadRejectsUnknownSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "provider.json")
	if err := os.WriteFile(path, []byte(`{"schema":"bogus"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unrecognized schema name")
	}
}

func TestDefaultIsPerModel(t *testing.T) {
	d := Default()
	if d.Schema != SchemaPerModel {
		t.Fatalf("expected SchemaPerModel, got %v", d.Schema)
	}
}
