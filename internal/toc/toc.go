// Package toc reads asset tables of contents from YAML, JSON or HCL files.
package toc

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/l1jgo/assetd/internal/asset"
	"gopkg.in/yaml.v3"
)

// document is the YAML/JSON layout: entries keyed by resource id under "assets".
type document struct {
	Assets asset.TOC `yaml:"assets" json:"assets"`
}

type hclDocument struct {
	Assets []hclAsset `hcl:"asset,block"`
}

type hclAsset struct {
	ID      string            `hcl:"id,label"`
	Name    string            `hcl:"name"`
	Type    string            `hcl:"type"`
	Preload bool              `hcl:"preload,optional"`
	Mapping map[string]string `hcl:"mapping,optional"`
	Data    map[string]string `hcl:"data,optional"`
	File    *hclAssetFile     `hcl:"file,block"`
}

type hclAssetFile struct {
	URL      string `hcl:"url"`
	Hash     string `hcl:"hash,optional"`
	Filename string `hcl:"filename,optional"`
	Size     int64  `hcl:"size,optional"`
}

// LoadFile reads a table of contents, choosing the decoder by extension.
func LoadFile(path string) (asset.TOC, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read toc %s: %w", path, err)
	}
	return Decode(path, raw)
}

// Decode parses raw using the format implied by name's extension.
func Decode(name string, raw []byte) (asset.TOC, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		var doc document
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse toc %s: %w", name, err)
		}
		return nonNil(doc.Assets), nil
	case ".json":
		var doc document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse toc %s: %w", name, err)
		}
		return nonNil(doc.Assets), nil
	case ".hcl":
		return decodeHCL(name, raw)
	default:
		return nil, fmt.Errorf("parse toc %s: unsupported extension %q", name, ext)
	}
}

// WriteYAML encodes t in the YAML layout LoadFile reads.
func WriteYAML(w io.Writer, t asset.TOC) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Assets: nonNil(t)}); err != nil {
		return fmt.Errorf("encode toc: %w", err)
	}
	return enc.Close()
}

func decodeHCL(name string, raw []byte) (asset.TOC, error) {
	var doc hclDocument
	if err := hclsimple.Decode(name, raw, nil, &doc); err != nil {
		return nil, fmt.Errorf("parse toc %s: %w", name, err)
	}
	out := make(asset.TOC, len(doc.Assets))
	for _, a := range doc.Assets {
		typ, err := asset.ParseType(a.Type)
		if err != nil {
			return nil, fmt.Errorf("parse toc %s: asset %q: %w", name, a.ID, err)
		}
		if _, dup := out[a.ID]; dup {
			return nil, fmt.Errorf("parse toc %s: duplicate asset %q", name, a.ID)
		}
		e := asset.Entry{
			ResourceID: a.ID,
			Name:       a.Name,
			Type:       typ,
			Preload:    a.Preload,
		}
		if a.File != nil {
			e.File = &asset.File{
				URL:      a.File.URL,
				Hash:     a.File.Hash,
				Filename: a.File.Filename,
				Size:     a.File.Size,
			}
		}
		if len(a.Data) > 0 || len(a.Mapping) > 0 {
			e.Data = make(map[string]any, len(a.Data)+1)
			for k, v := range a.Data {
				e.Data[k] = v
			}
			if len(a.Mapping) > 0 {
				mapping := make(map[string]any, len(a.Mapping))
				for k, v := range a.Mapping {
					mapping[k] = v
				}
				e.Data["mapping"] = mapping
			}
		}
		out[a.ID] = e
	}
	return out, nil
}

func nonNil(t asset.TOC) asset.TOC {
	if t == nil {
		return asset.TOC{}
	}
	return t
}
