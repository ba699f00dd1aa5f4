package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Fatalf("expected default listen :8080, got %q", cfg.Listen)
	}
	if cfg.RefreshSchedule != "*/15 * * * *" {
		t.Fatalf("expected default refresh schedule, got %q", cfg.RefreshSchedule)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.LogLevel)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfigFile(t, `
listen: ":9090"
timezone: "America/Regina"
database_url: "postgres://calendard@localhost/calendard"
cors_origins:
  - "http://localhost:5173"
seed_demo: true
ics_sources:
  - entity_id: calendar.team
    name: Team
    url: https://example.com/team.ics
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9090" {
		t.Fatalf("expected listen :9090, got %q", cfg.Listen)
	}
	if cfg.Timezone != "America/Regina" {
		t.Fatalf("expected timezone, got %q", cfg.Timezone)
	}
	if !cfg.SeedDemo {
		t.Fatal("expected seed_demo true")
	}
	if len(cfg.ICSSources) != 1 || cfg.ICSSources[0].EntityID != "calendar.team" {
		t.Fatalf("expected one ics source, got %+v", cfg.ICSSources)
	}

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc.String() != "America/Regina" {
		t.Fatalf("expected America/Regina, got %v", loc)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `listen: ":9090"`)
	t.Setenv("CALENDARD_LISTEN", ":7070")
	t.Setenv("CALENDARD_CORS_ORIGINS", "http://a.local, http://b.local")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":7070" {
		t.Fatalf("expected env override :7070, got %q", cfg.Listen)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.local" {
		t.Fatalf("expected split origins, got %v", cfg.CORSOrigins)
	}
}

func TestLoad_InvalidSources(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			name: "missing url",
			content: `
ics_sources:
  - entity_id: calendar.team
    name: Team
`,
		},
		{
			name: "duplicate entity",
			content: `
ics_sources:
  - entity_id: calendar.team
    url: https://example.com/a.ics
  - entity_id: calendar.team
    url: https://example.com/b.ics
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfigFile(t, tc.content)
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel("debug"); err != nil || lvl != slog.LevelDebug {
		t.Fatalf("expected debug, got %v %v", lvl, err)
	}
	if lvl, err := ParseLevel(""); err != nil || lvl != slog.LevelInfo {
		t.Fatalf("expected empty to mean info, got %v %v", lvl, err)
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	stderr := &bytes.Buffer{}
	file := &bytes.Buffer{}
	logger := SetupLoggerWithWriters(stderr, file, slog.LevelInfo)

	logger.Info("feed refreshed", "entity_id", "calendar.team")

	if !strings.Contains(stderr.String(), "feed refreshed") {
		t.Fatalf("expected text output, got %q", stderr.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", file.String(), err)
	}
	if entry["entity_id"] != "calendar.team" {
		t.Fatalf("expected entity_id attr, got %v", entry)
	}

	logger.Debug("dropped")
	if strings.Contains(stderr.String(), "dropped") {
		t.Fatal("expected debug to be filtered at info level")
	}
}
