package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRespondersConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responders.json")
	content := `{
		"name": "test-bootstrap",
		"version": "1.0.0",
		"responders": [
			{"identifier": "cisco-intersight", "address": "http://localhost:8002", "capability": "device management", "version": "1.2.0"},
			{"identifier": "service-catalog", "address": "agent.responder.service_catalog.v1", "capability": "service discovery", "version": "1.0.3"}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("bootstrap:loader_test - write file: %v", err)
	}

	cfg, err := LoadRespondersConfig(path)
	if err != nil {
		t.Fatalf("bootstrap:loader_test - unexpected error: %v", err)
	}
	if cfg.Name != "test-bootstrap" {
		t.Errorf("bootstrap:loader_test - Name = %q, want test-bootstrap", cfg.Name)
	}
	if len(cfg.Responders) != 2 {
		t.Fatalf("bootstrap:loader_test - got %d responders, want 2", len(cfg.Responders))
	}
	if cfg.Responders[0].Identifier != "cisco-intersight" {
		t.Errorf("bootstrap:loader_test - first responder = %q, want cisco-intersight", cfg.Responders[0].Identifier)
	}
}

func TestLoadRespondersConfig_MissingFileFallsBackToDefault(t *testing.T) {
	os.Unsetenv("RESPONDERS_FILE")

	cfg, err := LoadRespondersConfig(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("bootstrap:loader_test - unexpected error: %v", err)
	}
	if len(cfg.Responders) != 2 {
		t.Fatalf("bootstrap:loader_test - default config has %d responders, want 2", len(cfg.Responders))
	}
	if cfg.Responders[0].Identifier != "cisco-intersight" || cfg.Responders[1].Identifier != "service-catalog" {
		t.Errorf("bootstrap:loader_test - unexpected default responders %q, %q",
			cfg.Responders[0].Identifier, cfg.Responders[1].Identifier)
	}
}

func TestLoadRespondersConfig_InvalidJSONFallsThrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("bootstrap:loader_test - write file: %v", err)
	}

	cfg, err := LoadRespondersConfig(path)
	if err != nil {
		t.Fatalf("bootstrap:loader_test - unexpected error: %v", err)
	}
	// Broken file is skipped, defaults are returned
	if len(cfg.Responders) == 0 {
		t.Fatal("bootstrap:loader_test - expected default responders")
	}
}

func TestRespondersConfig_Validate(t *testing.T) {
	tests := []struct {
		name       string
		cfg        RespondersConfig
		constraint string
		wantErr    bool
	}{
		{
			name:       "valid",
			cfg:        *GetDefaultRespondersConfig(),
			constraint: "^1.0",
			wantErr:    false,
		},
		{
			name:       "no responders",
			cfg:        RespondersConfig{},
			constraint: "^1.0",
			wantErr:    true,
		},
		{
			name: "missing identifier",
			cfg: RespondersConfig{Responders: []ResponderBootstrap{
				{Address: "http://a", Capability: "x"},
			}},
			wantErr: true,
		},
		{
			name: "missing address",
			cfg: RespondersConfig{Responders: []ResponderBootstrap{
				{Identifier: "a", Capability: "x"},
			}},
			wantErr: true,
		},
		{
			name: "missing capability",
			cfg: RespondersConfig{Responders: []ResponderBootstrap{
				{Identifier: "a", Address: "http://a"},
			}},
			wantErr: true,
		},
		{
			name: "invalid version",
			cfg: RespondersConfig{Responders: []ResponderBootstrap{
				{Identifier: "a", Address: "http://a", Capability: "x", Version: "not-a-version"},
			}},
			constraint: "^1.0",
			wantErr:    true,
		},
		{
			name: "version outside constraint",
			cfg: RespondersConfig{Responders: []ResponderBootstrap{
				{Identifier: "a", Address: "http://a", Capability: "x", Version: "2.0.0"},
			}},
			constraint: "^1.0",
			wantErr:    true,
		},
		{
			name: "version gate skipped without constraint",
			cfg: RespondersConfig{Responders: []ResponderBootstrap{
				{Identifier: "a", Address: "http://a", Capability: "x", Version: "2.0.0"},
			}},
			constraint: "",
			wantErr:    false,
		},
		{
			name: "no declared version passes gate",
			cfg: RespondersConfig{Responders: []ResponderBootstrap{
				{Identifier: "a", Address: "http://a", Capability: "x"},
			}},
			constraint: "^1.0",
			wantErr:    false,
		},
		{
			name:       "invalid constraint",
			cfg:        *GetDefaultRespondersConfig(),
			constraint: "not a constraint",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(tt.constraint)
			if (err != nil) != tt.wantErr {
				t.Errorf("bootstrap:loader_test - Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRespondersConfig_DescriptorsPreserveOrder(t *testing.T) {
	cfg := GetDefaultRespondersConfig()
	descs := cfg.Descriptors()

	if len(descs) != len(cfg.Responders) {
		t.Fatalf("bootstrap:loader_test - got %d descriptors, want %d", len(descs), len(cfg.Responders))
	}
	for i, d := range descs {
		if d.Identifier != cfg.Responders[i].Identifier {
			t.Errorf("bootstrap:loader_test - descriptor %d = %q, want %q", i, d.Identifier, cfg.Responders[i].Identifier)
		}
	}
}
