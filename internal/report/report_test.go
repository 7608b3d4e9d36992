package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engerrors "github.com/arkilian/tpchq5/internal/errors"
	"github.com/arkilian/tpchq5/internal/query/aggregator"
	"github.com/arkilian/tpchq5/internal/storage"
)

func TestFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Format(&buf, []aggregator.Result{
		{Nation: "INDIA", Revenue: 1900},
		{Nation: "CHINA", Revenue: 12.346},
		{Nation: "JAPAN", Revenue: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, "n_name|revenue\nINDIA|1900.00\nCHINA|12.35\nJAPAN|0.00\n", buf.String())
}

func TestWriter_India(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q5.txt")
	var stdout bytes.Buffer

	err := NewWriter(&stdout, nil).Write(path, []aggregator.Result{{Nation: "INDIA", Revenue: 1900}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "n_name|revenue\nINDIA|1900.00\n", string(data))
	assert.Equal(t, string(data), stdout.String())
}

func TestWriter_SortsDescending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q5.txt")
	results := []aggregator.Result{
		{Nation: "CHINA", Revenue: 100.5},
		{Nation: "INDONESIA", Revenue: 9000},
		{Nation: "VIETNAM", Revenue: 450.25},
	}

	require.NoError(t, NewWriter(nil, nil).Write(path, results))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, []string{Header, "INDONESIA|9000.00", "VIETNAM|450.25", "CHINA|100.50"}, lines)
	assert.Equal(t, "CHINA", results[0].Nation, "input is not reordered")
}

func TestWriter_EmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q5.txt")
	require.NoError(t, NewWriter(nil, nil).Write(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "n_name|revenue\n", string(data))
}

func TestWriter_OpenFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "q5.txt")
	var stdout bytes.Buffer

	err := NewWriter(&stdout, nil).Write(path, []aggregator.Result{{Nation: "INDIA", Revenue: 1}})
	require.Error(t, err)
	assert.Equal(t, engerrors.CodeOutputWriteFailed, engerrors.GetCode(err))
	assert.Contains(t, err.Error(), path)
	assert.Empty(t, stdout.String())
}

func TestPublish(t *testing.T) {
	root := t.TempDir()
	st, err := storage.NewLocalStorage(root)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "q5.txt")
	require.NoError(t, os.WriteFile(path, []byte("n_name|revenue\n"), 0644))

	require.NoError(t, Publish(context.Background(), st, path, "results/q5.txt"))
	assert.FileExists(t, filepath.Join(root, "results", "q5.txt"))

	err = Publish(context.Background(), st, filepath.Join(t.TempDir(), "nope"), "results/x.txt")
	require.Error(t, err)
	assert.Equal(t, engerrors.CodePublishFailed, engerrors.GetCode(err))
}
