package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// cliHarness runs tracker commands against one temporary database.
type cliHarness struct {
	t      *testing.T
	dbPath string
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()
	// Keep a developer's real config and dotenv out of the run.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	return &cliHarness{t: t, dbPath: filepath.Join(t.TempDir(), "tracker.db")}
}

// run executes one command line and returns its output.
func (h *cliHarness) run(args ...string) (string, error) {
	return h.runWithInput("", args...)
}

func (h *cliHarness) runWithInput(stdin string, args ...string) (string, error) {
	h.t.Helper()
	viper.Reset()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--db", h.dbPath, "--log-level", "error"}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// mustRun fails the test if the command fails.
func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "tracker %s\n%s", strings.Join(args, " "), out)
	return out
}
