package main

import (
	"context"
	"testing"

	"github.com/l1jgo/assetd/internal/asset"
	"github.com/l1jgo/assetd/internal/config"
	"github.com/l1jgo/assetd/internal/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type batchLoader struct {
	calls [][]loader.Request
}

func (b *batchLoader) RegisterHash(string, string) {}

func (b *batchLoader) Request(_ context.Context, reqs []loader.Request, _ *loader.Options) ([]loader.Resource, error) {
	b.calls = append(b.calls, reqs)
	out := make([]loader.Resource, len(reqs))
	for i, r := range reqs {
		out[i] = &loader.File{URL: r.Identifier()}
	}
	return out, nil
}

func TestPreload_OnlyFlaggedAssets(t *testing.T) {
	ld := &batchLoader{}
	reg, err := asset.NewRegistry(ld, "")
	require.NoError(t, err)
	reg.Update(asset.TOC{
		"1": {Name: "intro", Type: asset.TypeAudio, Preload: true, File: &asset.File{URL: "intro.ogg"}},
		"2": {Name: "later", Type: asset.TypeAudio, File: &asset.File{URL: "later.ogg"}},
		"3": {Name: "ui", Type: asset.TypeJSON, Preload: true, File: &asset.File{URL: "ui.json"}},
	})

	got, err := preload(context.Background(), reg)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ResourceID)
	assert.Equal(t, "3", got[1].ResourceID)
	require.Len(t, ld.calls, 1)
	assert.Len(t, ld.calls[0], 2)
	assert.Nil(t, reg.GetAssetByResourceID("2").Resource)
	assert.NotNil(t, reg.GetAssetByResourceID("3").Resource)
}

func TestPreload_NothingFlagged(t *testing.T) {
	ld := &batchLoader{}
	reg, err := asset.NewRegistry(ld, "")
	require.NoError(t, err)
	reg.Update(asset.TOC{"1": {Name: "x", Type: asset.TypeText}})

	got, err := preload(context.Background(), reg)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, ld.calls)
}

func TestNewLogger_Level(t *testing.T) {
	log, err := newLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = newLogger(config.LoggingConfig{Level: "bogus"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}
