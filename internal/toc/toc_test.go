package toc

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/assetd/internal/asset"
	"github.com/l1jgo/assetd/internal/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLoader struct{}

func (nopLoader) RegisterHash(string, string) {}

func (nopLoader) Request(context.Context, []loader.Request, *loader.Options) ([]loader.Resource, error) {
	return nil, nil
}

const yamlTOC = `
assets:
  "1001":
    name: hero
    type: model
    preload: true
    file:
      hash: 0cc175b9c0f1b6a831c399e269772661
      url: models/hero.obj
      size: 2048
    data:
      mapping:
        Skin: "1003"
  "1002":
    name: brick
    type: texture
    file:
      url: textures/brick.png
  "1003":
    name: skin
    type: material
`

const jsonTOC = `{
  "assets": {
    "1001": {
      "name": "hero",
      "type": "model",
      "preload": true,
      "file": {"hash": "0cc175b9c0f1b6a831c399e269772661", "url": "models/hero.obj", "size": 2048},
      "data": {"mapping": {"Skin": "1003"}}
    },
    "1002": {"name": "brick", "type": "texture", "file": {"url": "textures/brick.png"}},
    "1003": {"name": "skin", "type": "material"}
  }
}`

const hclTOC = `
asset "1001" {
  name    = "hero"
  type    = "model"
  preload = true
  mapping = {
    Skin = "1003"
  }
  file {
    hash = "0cc175b9c0f1b6a831c399e269772661"
    url  = "models/hero.obj"
    size = 2048
  }
}

asset "1002" {
  name = "brick"
  type = "texture"
  file {
    url = "textures/brick.png"
  }
}

asset "1003" {
  name = "skin"
  type = "material"
}
`

func checkTOC(t *testing.T, got asset.TOC) {
	t.Helper()
	require.Len(t, got, 3)

	hero := got["1001"]
	assert.Equal(t, "hero", hero.Name)
	assert.Equal(t, asset.TypeModel, hero.Type)
	assert.True(t, hero.Preload)
	require.NotNil(t, hero.File)
	assert.Equal(t, "models/hero.obj", hero.File.URL)
	assert.Equal(t, "0cc175b9c0f1b6a831c399e269772661", hero.File.Hash)
	assert.EqualValues(t, 2048, hero.File.Size)
	assert.Equal(t, map[string]any{"Skin": "1003"}, hero.Data["mapping"])

	brick := got["1002"]
	assert.Equal(t, asset.TypeTexture, brick.Type)
	assert.False(t, brick.Preload)
	assert.Equal(t, "textures/brick.png", brick.File.URL)

	skin := got["1003"]
	assert.Equal(t, asset.TypeMaterial, skin.Type)
	assert.Nil(t, skin.File)
}

func TestDecode_Formats(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"toc.yaml", yamlTOC},
		{"toc.json", jsonTOC},
		{"toc.hcl", hclTOC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.name, []byte(tt.src))
			require.NoError(t, err)
			checkTOC(t, got)
		})
	}
}

func TestDecode_RejectsUnknownType(t *testing.T) {
	_, err := Decode("toc.yaml", []byte("assets:\n  x:\n    name: a\n    type: hologram\n"))
	require.Error(t, err)

	_, err = Decode("toc.hcl", []byte("asset \"x\" {\n  name = \"a\"\n  type = \"hologram\"\n}\n"))
	require.Error(t, err)
}

func TestDecode_HCLDuplicateID(t *testing.T) {
	src := "asset \"x\" {\n  name = \"a\"\n  type = \"text\"\n}\nasset \"x\" {\n  name = \"b\"\n  type = \"text\"\n}\n"
	_, err := Decode("toc.hcl", []byte(src))
	require.ErrorContains(t, err, "duplicate")
}

func TestDecode_UnsupportedExtension(t *testing.T) {
	_, err := Decode("toc.ini", nil)
	require.Error(t, err)
}

func TestDecode_EmptyDocument(t *testing.T) {
	got, err := Decode("toc.yaml", []byte("{}"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlTOC), 0o600))

	got, err := LoadFile(path)
	require.NoError(t, err)
	checkTOC(t, got)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadFile_FeedsRegistry(t *testing.T) {
	got, err := Decode("toc.yaml", []byte(yamlTOC))
	require.NoError(t, err)

	r, err := asset.NewRegistry(nopLoader{}, "")
	require.NoError(t, err)
	r.Update(got)

	hero := r.Find("hero", asset.TypeModel)
	require.NotNil(t, hero)
	assert.Equal(t, "1001", hero.ResourceID)
	assert.Same(t, hero, r.GetAssetByURL("models/hero.obj"))
}

func TestWriteYAML_ReadsBack(t *testing.T) {
	src, err := Decode("toc.hcl", []byte(hclTOC))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, src))

	got, err := Decode("out.yaml", buf.Bytes())
	require.NoError(t, err)
	checkTOC(t, got)
}
