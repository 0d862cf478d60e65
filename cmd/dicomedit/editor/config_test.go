package editor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrsinham/dicomedit/internal/bulkedit"
	"github.com/mrsinham/dicomedit/internal/model"
)

func TestLoadFromYAML_ValidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "dicomedit.yaml")
	content := `
log_level: debug
log_file: /tmp/dicomedit.log
visibility: disabled
presets:
  - name: anonymize
    tag_path: PatientName
    value: ANON
    mode: set
  - name: drop-comments
    tag_path: PatientComments
    mode: delete
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadFromYAML(configPath)
	if err != nil {
		t.Fatalf("LoadFromYAML failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if v, _ := cfg.VisibilityPolicy(); v != model.VisibilityDisabled {
		t.Errorf("VisibilityPolicy = %v, want disabled", v)
	}
	if len(cfg.Presets) != 2 {
		t.Fatalf("got %d presets, want 2", len(cfg.Presets))
	}

	p, ok := cfg.Preset("ANONYMIZE")
	if !ok {
		t.Fatal("preset lookup should ignore case")
	}
	req, err := p.Request()
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	want := bulkedit.Request{TagPath: "PatientName", Value: "ANON", Mode: bulkedit.ModeSet}
	if req != want {
		t.Errorf("Request = %+v, want %+v", req, want)
	}
}

func TestLoadFromYAML_NonExistentFile(t *testing.T) {
	_, err := LoadFromYAML("/non/existent/path/dicomedit.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadFromYAML_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "syntax", content: "presets: [unclosed"},
		{name: "visibility", content: "visibility: faded"},
		{
			name:    "study date preset",
			content: "presets:\n  - {name: redate, tag_path: \"0008,0020\", value: \"20240101\", mode: set}",
			wantErr: bulkedit.ErrForbiddenTag,
		},
		{
			name:    "empty path",
			content: "presets:\n  - {name: nothing, mode: delete}",
			wantErr: bulkedit.ErrEmptyTagPath,
		},
		{name: "unknown mode", content: "presets:\n  - {name: x, tag_path: PatientName, mode: append}"},
		{name: "duplicate", content: "presets:\n  - {name: x, tag_path: PatientName, mode: delete}\n  - {name: X, tag_path: PatientID, mode: delete}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "dicomedit.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}
			_, err := LoadFromYAML(configPath)
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveToYAML_AndLoadBack(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "dicomedit.yaml")

	cfg := &Config{LogLevel: "warn", Visibility: "hidden"}
	cfg.PutPreset(PresetFromRequest("issuer", bulkedit.Request{
		TagPath: "OtherPatientIDsSequence[*].IssuerOfPatientID",
		Value:   "HOSP",
		Mode:    bulkedit.ModeSetExisting,
	}))
	cfg.PutPreset(PresetFromRequest("Issuer", bulkedit.Request{
		TagPath: "OtherPatientIDsSequence[*].IssuerOfPatientID",
		Value:   "OTHER",
		Mode:    bulkedit.ModeSetExisting,
	}))
	if len(cfg.Presets) != 1 {
		t.Fatalf("PutPreset should replace by name, got %d presets", len(cfg.Presets))
	}

	if err := SaveToYAML(cfg, configPath); err != nil {
		t.Fatalf("SaveToYAML failed: %v", err)
	}
	loaded, err := LoadFromYAML(configPath)
	if err != nil {
		t.Fatalf("LoadFromYAML failed: %v", err)
	}
	if loaded.LogLevel != "warn" || loaded.Visibility != "hidden" {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Presets[0].Value != "OTHER" || loaded.Presets[0].Mode != "set-existing" {
		t.Errorf("preset = %+v", loaded.Presets[0])
	}
}
