package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/assetd/internal/asset"
	"github.com/l1jgo/assetd/internal/toc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRepo struct {
	ids     []string
	fail    string
	present int
}

func (r *recordingRepo) Upsert(_ context.Context, id string, _ asset.Entry) error {
	if id == r.fail {
		return errors.New("constraint violation")
	}
	r.ids = append(r.ids, id)
	return nil
}

func (r *recordingRepo) Count(context.Context) (int, error) {
	return r.present + len(r.ids), nil
}

func TestRun_ConvertsToYAML(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "toc.json")
	outPath := filepath.Join(dir, "toc.yaml")
	require.NoError(t, os.WriteFile(in, []byte(`{"assets":{"7":{"name":"sky","type":"texture","file":{"url":"sky.png"}}}}`), 0o600))

	var out bytes.Buffer
	require.NoError(t, run([]string{"yaml", in, outPath}, &out))
	assert.Contains(t, out.String(), "Wrote 1 toc entries")

	got, err := toc.LoadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, got, "7")
	assert.Equal(t, "sky.png", got["7"].File.URL)
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, run(nil, &out))
	require.Error(t, run([]string{"yaml", "only-one"}, &out))
	require.Error(t, run([]string{"import"}, &out))
	require.Error(t, run([]string{"explode"}, &out))
}

func TestUpsertAll_SortedAndStopsOnError(t *testing.T) {
	entries := asset.TOC{"b": {Name: "b"}, "a": {Name: "a"}, "c": {Name: "c"}}

	repo := &recordingRepo{}
	n, err := upsertAll(context.Background(), repo, entries)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "b", "c"}, repo.ids)

	repo = &recordingRepo{fail: "b"}
	n, err = upsertAll(context.Background(), repo, entries)
	require.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestImportEntries_ReportsStoredTotal(t *testing.T) {
	repo := &recordingRepo{present: 5}
	var out bytes.Buffer
	err := importEntries(context.Background(), repo, asset.TOC{"x": {Name: "x"}, "y": {Name: "y"}}, "toc.yaml", &out)
	require.NoError(t, err)
	assert.Equal(t, "Imported 2 toc entries from toc.yaml (7 stored)\n", out.String())

	out.Reset()
	require.Error(t, importEntries(context.Background(), &recordingRepo{fail: "x"}, asset.TOC{"x": {}}, "toc.yaml", &out))
	assert.Empty(t, out.String())
}
