package asset

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/l1jgo/assetd/internal/loader"
)

// File is the on-disk part of an asset.
type File struct {
	Hash     string `yaml:"hash" json:"hash"`
	URL      string `yaml:"url" json:"url"`
	Filename string `yaml:"filename,omitempty" json:"filename,omitempty"`
	Size     int64  `yaml:"size,omitempty" json:"size,omitempty"`
}

// Asset describes a loadable resource. Resource is nil until a load
// completes and must only be read after the load's Future is done.
type Asset struct {
	ResourceID string
	Name       string
	Type       Type
	File       *File
	Data       map[string]any
	Preload    bool
	Resource   loader.Resource
}

// New creates an asset with a freshly generated resource id.
func New(name string, typ Type, file *File, data map[string]any) *Asset {
	return &Asset{
		ResourceID: newResourceID(),
		Name:       name,
		Type:       typ,
		File:       file,
		Data:       data,
	}
}

// Entry is one table-of-contents record.
type Entry struct {
	ResourceID string         `yaml:"resource_id,omitempty" json:"resourceId,omitempty"`
	Name       string         `yaml:"name" json:"name"`
	Type       Type           `yaml:"type" json:"type"`
	File       *File          `yaml:"file,omitempty" json:"file,omitempty"`
	Data       map[string]any `yaml:"data,omitempty" json:"data,omitempty"`
	Preload    bool           `yaml:"preload,omitempty" json:"preload,omitempty"`
}

// TOC is a table of contents keyed by resource id.
type TOC map[string]Entry

// merge copies the entry's set fields over a. ResourceID is never touched.
func (a *Asset) merge(e Entry) {
	if e.Name != "" {
		a.Name = e.Name
	}
	if e.Type != "" {
		a.Type = e.Type
	}
	if e.File != nil {
		a.File = e.File
	}
	if e.Data != nil {
		a.Data = e.Data
	}
	if e.Preload {
		a.Preload = true
	}
}

// mapping returns Data["mapping"] as a material mapping table.
func (a *Asset) mapping() map[string]string {
	out := map[string]string{}
	switch m := a.Data["mapping"].(type) {
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}

func newResourceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
