package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	chdir(t, t.TempDir())

	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "i18ncheck v1\n", out)
}

func TestVersionFlag(t *testing.T) {
	out, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "v1")
}

func TestHelpListsCommands(t *testing.T) {
	out, _, err := run(t, "--help")
	require.NoError(t, err)
	for _, want := range []string{"check", "serve", "version", "--base-url", "--alt-lang"} {
		assert.Contains(t, out, want)
	}
}

func TestInvalidConfigurationFails(t *testing.T) {
	_, stderr, err := run(t, "check", "--base-url", "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, stderr, "Error:")
}

func TestSameLanguagesRejected(t *testing.T) {
	_, _, err := run(t, "--default-lang", "en", "--alt-lang", "en")
	assert.Error(t, err)
}

func TestMissingExplicitConfigFile(t *testing.T) {
	_, _, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestUnreachableRemoteBrowserFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, stderr, err := run(t, "check", "--browser-url", "http://"+addr, "--log-format", "json")
	require.Error(t, err)
	assert.Contains(t, stderr, `"msg":"command failed"`)
}

func TestServeSelfCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if os.Getenv("CHROME_BIN") == "" {
		if _, found := launcher.LookPath(); !found {
			t.Skip("no Chrome/Chromium executable available")
		}
	}

	dir := t.TempDir()
	_, stderr, err := run(t, "serve", "--check", "--port", "0", "--no-sandbox", "--artifact-dir", dir)
	require.NoError(t, err, stderr)

	for _, name := range []string{"verification_ja.png", "verification_en.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestServeSelfCheckMissingSwitcher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if os.Getenv("CHROME_BIN") == "" {
		if _, found := launcher.LookPath(); !found {
			t.Skip("no Chrome/Chromium executable available")
		}
	}

	_, _, err := run(t, "serve", "--check", "--port", "0", "--no-sandbox",
		"--disable-switcher", "--action-timeout", "2s", "--artifact-dir", t.TempDir())
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
