package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testEnv is an isolated settings store and configuration file.
type testEnv struct {
	dir        string
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, ".blockphrase")
	content := "store: sqlite\ndbDir: " + filepath.Join(dir, "db") + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return &testEnv{dir: dir, configPath: configPath}
}

// run executes the root command with args followed by the test config flag.
func (e *testEnv) run(t *testing.T, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(append(args, "-c", e.configPath))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mustRun is run that fails the test on error.
func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()

	stdout, stderr, err := e.run(t, nil, args...)
	if err != nil {
		t.Fatalf("%s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return stdout
}

func (e *testEnv) writePage(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
