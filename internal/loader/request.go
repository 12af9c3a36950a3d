package loader

import "time"

// Resource is a decoded payload produced by the loader: *Model, *Texture or *File.
type Resource any

// Request describes one resource to fetch and decode.
type Request interface {
	// Identifier is the URL the request resolves.
	Identifier() string
}

// ModelRequest loads a model file. Mapping binds mesh material names to
// material references and is never nil once built by NewModelRequest.
type ModelRequest struct {
	URL     string
	Mapping map[string]string
}

// NewModelRequest builds a ModelRequest; a nil mapping becomes an empty one.
func NewModelRequest(url string, mapping map[string]string) *ModelRequest {
	if mapping == nil {
		mapping = map[string]string{}
	}
	return &ModelRequest{URL: url, Mapping: mapping}
}

func (r *ModelRequest) Identifier() string { return r.URL }

// TextureRequest loads an image. When Target is set the decoded image is
// written into it and Target is returned as the resource.
type TextureRequest struct {
	URL    string
	Target *Texture
}

func NewTextureRequest(url string, target *Texture) *TextureRequest {
	return &TextureRequest{URL: url, Target: target}
}

func (r *TextureRequest) Identifier() string { return r.URL }

// FileRequest loads raw file contents.
type FileRequest struct {
	URL string
}

func NewFileRequest(url string) *FileRequest {
	return &FileRequest{URL: url}
}

func (r *FileRequest) Identifier() string { return r.URL }

// Options tune a single batched request.
type Options struct {
	Timeout time.Duration // overrides the loader timeout when > 0
	NoCache bool          // skip the content cache for this batch
}
