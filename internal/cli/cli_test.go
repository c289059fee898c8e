//go:build unix

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/procinvoke/journal"
)

func writeConfig(t *testing.T, journalEnabled bool) string {
	t.Helper()
	dir := t.TempDir()
	body := "logger:\n  level: disabled\njournal:\n"
	if journalEnabled {
		body += "  enabled: true\n  path: " + filepath.Join(dir, "journal.db") + "\n"
	} else {
		body += "  enabled: false\n"
	}
	path := filepath.Join(dir, "procinvoke.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, cfgPath string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRunStreamsOutput(t *testing.T) {
	cfg := writeConfig(t, false)
	stdout, stderr, err := execute(t, cfg, "run", "--", "sh", "-c", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "out\n" || stderr != "err\n" {
		t.Fatalf("unexpected output %q / %q", stdout, stderr)
	}
}

func TestRunBufferedJSON(t *testing.T) {
	cfg := writeConfig(t, false)
	stdout, _, err := execute(t, cfg, "--json", "run", "--output", "buffered", "--", "sh", "-c", "printf hi; printf oops >&2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var doc struct {
		ExitCode       int    `json:"exit_code"`
		Outcome        string `json:"outcome"`
		StandardOutput string `json:"standard_output"`
		StandardError  string `json:"standard_error"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if doc.ExitCode != 0 || doc.Outcome != "completed" || doc.StandardOutput != "hi" || doc.StandardError != "oops" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestRunPipedWithStdinAndEnv(t *testing.T) {
	cfg := writeConfig(t, false)
	root := NewRootCommand()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader("payload"))
	root.SetArgs([]string{"--config", cfg, "run", "-o", "piped", "-i", "-e", "GREETING=hey", "--", "sh", "-c", `printf "%s:" "$GREETING"; cat`})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != "hey:payload" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"child exit code passes through", []string{"run", "--", "sh", "-c", "exit 3"}, 3},
		{"validation disabled", []string{"run", "--validation", "none", "--", "sh", "-c", "exit 3"}, ExitSuccess},
		{"rule accepts code", []string{"run", "--validation", "none", "--rule", "ExitCode == 4", "--", "sh", "-c", "exit 4"}, ExitSuccess},
		{"rule rejects code", []string{"run", "--validation", "none", "--rule", "ExitCode == 4", "--", "sh", "-c", "exit 5"}, 5},
		{"forceful timeout", []string{"run", "--timeout", "100ms", "--mode", "forceful", "--behavior", "allow", "--", "sleep", "5"}, ExitTimedOut},
		{"suppressed timeout", []string{"run", "--timeout", "100ms", "--mode", "forceful", "--behavior", "suppress", "--", "sleep", "5"}, ExitSuccess},
		{"unknown mode", []string{"run", "--mode", "bogus", "--", "true"}, ExitInvalidInput},
		{"missing executable", []string{"run", "--", "procinvoke-no-such-binary"}, ExitNotFound},
		{"bad env assignment", []string{"run", "-e", "=x", "--", "true"}, ExitInvalidInput},
		{"bad working set size", []string{"run", "--max-working-set", "lots", "--", "true"}, ExitInvalidInput},
		{"inverted working set", []string{"run", "--min-working-set", "2GB", "--max-working-set", "1GB", "--", "true"}, ExitInvalidInput},
		{"shell with buffered output", []string{"run", "--shell", "-o", "buffered", "--", "true"}, ExitInvalidInput},
	}
	cfg := writeConfig(t, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, cfg, tt.args...)
			if got := ExitCode(err); got != tt.want {
				t.Fatalf("expected exit code %d, got %d (err %v)", tt.want, got, err)
			}
		})
	}
}

func TestHistoryRecordsRuns(t *testing.T) {
	cfg := writeConfig(t, true)
	if _, _, err := execute(t, cfg, "run", "--", "true"); err != nil {
		t.Fatalf("run true: %v", err)
	}
	if _, _, err := execute(t, cfg, "run", "--", "sh", "-c", "exit 2"); err == nil {
		t.Fatal("expected exit 2 to fail")
	}

	stdout, _, err := execute(t, cfg, "--json", "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []journal.Entry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	stdout, _, err = execute(t, cfg, "--json", "history", "--failed")
	if err != nil {
		t.Fatalf("history --failed: %v", err)
	}
	entries = nil
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if len(entries) != 1 || entries[0].ExitCode != 2 || entries[0].ErrorCode != "NOT_SUCCESSFUL" {
		t.Fatalf("unexpected failed entries %+v", entries)
	}

	stdout, _, err = execute(t, cfg, "history", "show", entries[0].ID)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	if !strings.Contains(stdout, entries[0].ID) || !strings.Contains(stdout, "Exit code:") {
		t.Fatalf("unexpected show output %q", stdout)
	}

	stdout, _, err = execute(t, cfg, "history")
	if err != nil {
		t.Fatalf("history table: %v", err)
	}
	if !strings.HasPrefix(stdout, "ID") || strings.Count(stdout, "\n") != 3 {
		t.Fatalf("unexpected table %q", stdout)
	}

	stdout, _, err = execute(t, cfg, "history", "prune", "--older-than", "0s")
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	if stdout != "Pruned 2 entries\n" {
		t.Fatalf("unexpected prune output %q", stdout)
	}
}

func TestHistoryRequiresJournal(t *testing.T) {
	cfg := writeConfig(t, false)
	_, _, err := execute(t, cfg, "history")
	if ExitCode(err) != ExitInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestHistoryShowMissing(t *testing.T) {
	cfg := writeConfig(t, true)
	_, _, err := execute(t, cfg, "history", "show", "nope")
	if ExitCode(err) != ExitNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNoJournalFlag(t *testing.T) {
	cfg := writeConfig(t, true)
	if _, _, err := execute(t, cfg, "--no-journal", "run", "--", "true"); err != nil {
		t.Fatalf("run: %v", err)
	}
	stdout, _, err := execute(t, cfg, "--json", "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if strings.TrimSpace(stdout) != "[]" {
		t.Fatalf("expected an empty journal, got %q", stdout)
	}
}

func TestVersionCommand(t *testing.T) {
	cfg := writeConfig(t, false)
	stdout, _, err := execute(t, cfg, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(stdout, "procinvoke ") {
		t.Fatalf("unexpected version output %q", stdout)
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := execute(t, filepath.Join(t.TempDir(), "absent.yml"), "version")
	if err != nil {
		t.Fatalf("version should not load configuration: %v", err)
	}
	_, _, err = execute(t, filepath.Join(t.TempDir(), "absent.yml"), "run", "--", "true")
	if err == nil {
		t.Fatal("expected a missing explicit config file to fail")
	}
}

func TestHealthCommand(t *testing.T) {
	cfg := writeConfig(t, true)
	stdout, _, err := execute(t, cfg, "--json", "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	var results []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	want := map[string]string{"telemetry": "degraded", "journal": "healthy"}
	if len(results) != len(want) {
		t.Fatalf("unexpected results %+v", results)
	}
	for _, r := range results {
		if want[r.Name] != r.Status {
			t.Fatalf("unexpected results %+v", results)
		}
	}
}
