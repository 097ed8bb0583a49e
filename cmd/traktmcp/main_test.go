package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/localrivet/traktmcp/internal/config"
	"github.com/localrivet/traktmcp/internal/tools"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestToolsCommand(t *testing.T) {
	out, err := execute(t, "tools")
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	for _, def := range tools.Catalog() {
		if !strings.Contains(out, def.Name) {
			t.Errorf("output is missing %s", def.Name)
		}
	}
}

func TestToolsCommandSchemas(t *testing.T) {
	out, err := execute(t, "tools", "--schemas")
	if err != nil {
		t.Fatalf("tools --schemas: %v", err)
	}
	var entries []struct {
		Name        string         `json:"name"`
		InputSchema map[string]any `json:"inputSchema"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(entries) != len(tools.Catalog()) {
		t.Fatalf("printed %d tools", len(entries))
	}
	for _, e := range entries {
		if e.InputSchema["type"] != "object" {
			t.Errorf("%s schema type = %v", e.Name, e.InputSchema["type"])
		}
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traktmcp.json")

	if _, err := execute(t, "init", "--config", path); err != nil {
		t.Fatalf("init: %v", err)
	}
	cfg, err := config.LoadWithPath(path)
	if err != nil {
		t.Fatalf("LoadWithPath: %v", err)
	}
	if cfg.Trakt.APIVersion != config.DefaultAPIVersion {
		t.Errorf("api version = %q", cfg.Trakt.APIVersion)
	}

	if _, err := execute(t, "init", "--config", path); err == nil {
		t.Error("init overwrote an existing file without --force")
	}
	if _, err := execute(t, "init", "--config", path, "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestJournalCommandRequiresPath(t *testing.T) {
	t.Setenv("TRAKT_JOURNAL_PATH", "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "missing.json")

	if _, err := execute(t, "journal", "--config", cfgPath); err == nil {
		t.Error("expected an error when the journal is disabled")
	}
}

func TestJournalCommandEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	out, err := execute(t, "journal", "--path", path)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if !strings.HasPrefix(out, "STARTED") {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("journal file not created: %v", err)
	}
}

func TestJournalCommandHealth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	out, err := execute(t, "journal", "--path", path, "--health")
	if err != nil {
		t.Fatalf("journal --health: %v", err)
	}
	var report struct {
		Status        string `json:"status"`
		TotalRequests int64  `json:"total_requests"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if report.Status != "healthy" || report.TotalRequests != 0 {
		t.Errorf("report = %+v", report)
	}
}

type failingStopper struct{ err error }

func (f failingStopper) Stop() error { return f.err }

func TestStopServerLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	stopServer(log, failingStopper{err: errors.New("journal close failed")})
	if out := buf.String(); !strings.Contains(out, "Failed to stop server") || !strings.Contains(out, "journal close failed") {
		t.Errorf("unexpected log output: %q", out)
	}

	buf.Reset()
	stopServer(log, failingStopper{})
	if buf.Len() != 0 {
		t.Errorf("clean stop logged %q", buf.String())
	}
}
