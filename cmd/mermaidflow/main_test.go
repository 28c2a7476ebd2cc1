package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mermaidflow/internal/repair"
)

func TestReadMarkup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.mmd")
	require.NoError(t, os.WriteFile(path, []byte("graph TD\n  A-->B"), 0o644))

	cmd := &cobra.Command{}
	got, err := readMarkup(cmd, path)
	require.NoError(t, err)
	assert.Equal(t, "graph TD\n  A-->B", got)

	cmd.SetIn(strings.NewReader("pie\n  \"a\": 1"))
	got, err = readMarkup(cmd, "-")
	require.NoError(t, err)
	assert.Equal(t, "pie\n  \"a\": 1", got)

	_, err = readMarkup(cmd, filepath.Join(t.TempDir(), "missing.mmd"))
	assert.Error(t, err)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "flow", baseName("diagrams/flow.mmd"))
	assert.Equal(t, "", baseName("-"))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "mermaidflow dev")
}

func TestCheckKey(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	ok := repair.KeyValidatorFunc(func(context.Context) error { return nil })
	require.NoError(t, checkKey(context.Background(), cmd, ok))
	assert.Equal(t, "api key ok\n", out.String())

	bad := repair.KeyValidatorFunc(func(context.Context) error {
		return errors.New("API key not valid. Please pass a valid API key.")
	})
	err := checkKey(context.Background(), cmd, bad)
	var rerr *repair.Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, repair.KindInvalidKey, rerr.Kind)
}

func TestFixValidateKeyRejectsFileArg(t *testing.T) {
	require.NoError(t, fixCmd.Flags().Set("validate-key", "true"))
	defer func() { _ = fixCmd.Flags().Set("validate-key", "false") }()

	assert.Error(t, fixCmd.Args(fixCmd, []string{"flow.mmd"}))
	assert.NoError(t, fixCmd.Args(fixCmd, nil))
}
