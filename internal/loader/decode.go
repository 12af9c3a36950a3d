package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/mokiat/go-data-front/decoder/obj"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for model files the loader cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported format")

const defaultMIME = "application/octet-stream"

func decodeModel(req *ModelRequest, data []byte) (*Model, error) {
	ext := extOf(req.URL)
	switch ext {
	case "obj":
		src, err := obj.NewDecoder(obj.DefaultLimits()).Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode obj %s: %w", req.URL, err)
		}
		m := &Model{
			URL:      req.URL,
			Format:   ext,
			Mapping:  req.Mapping,
			Mesh:     src,
			Vertices: len(src.Vertices),
		}
		for _, o := range src.Objects {
			for _, mesh := range o.Meshes {
				m.Meshes = append(m.Meshes, Mesh{
					Object:   o.Name,
					Material: mesh.MaterialName,
					Ref:      req.Mapping[mesh.MaterialName],
					Faces:    len(mesh.Faces),
				})
			}
		}
		return m, nil
	case "json":
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode model %s: %w", req.URL, err)
		}
		return &Model{URL: req.URL, Format: ext, Mapping: req.Mapping, Document: doc}, nil
	default:
		return nil, fmt.Errorf("decode model %s: %w: %q", req.URL, ErrUnsupportedFormat, ext)
	}
}

func decodeTexture(req *TextureRequest, data []byte) (*Texture, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", req.URL, err)
	}
	tex := req.Target
	if tex == nil {
		tex = &Texture{}
	}
	b := img.Bounds()
	tex.URL = req.URL
	tex.Format = format
	tex.Width = b.Dx()
	tex.Height = b.Dy()
	tex.Image = img
	return tex, nil
}

func decodeFile(req *FileRequest, data []byte) *File {
	return &File{URL: req.URL, MIME: mediaType(req.URL, data), Data: data}
}

// mediaType sniffs the content first and falls back to the URL extension,
// asking filetype and then the system MIME table.
func mediaType(rawURL string, data []byte) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if ext := extOf(rawURL); ext != "" {
		if kind := filetype.GetType(ext); kind != filetype.Unknown {
			return kind.MIME.Value
		}
		if t := mime.TypeByExtension("." + ext); t != "" {
			return t
		}
	}
	return defaultMIME
}

func extOf(rawURL string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(stripQuery(rawURL)), "."))
}
