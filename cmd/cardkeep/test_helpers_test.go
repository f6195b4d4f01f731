package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "cardkeep", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, base)

	return &cliTestEnv{configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path, base string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
catalog_db = %q
collections_dir = %q
staging_dir = %q
log_dir = %q

[logging]
level = "error"
format = "console"
`,
		filepath.Join(base, "catalog.db"),
		filepath.Join(base, "collections"),
		filepath.Join(base, "staging"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
