package loader

import (
	"image"

	"github.com/mokiat/go-data-front/decoder/obj"
)

// Model is a decoded model file.
type Model struct {
	URL      string
	Format   string            // "obj" or "json"
	Mapping  map[string]string // mesh material name -> material reference
	Meshes   []Mesh
	Vertices int
	Mesh     *obj.Model     // set for OBJ models
	Document map[string]any // set for JSON models
}

// Mesh is one mesh of a decoded model with its resolved material reference.
type Mesh struct {
	Object   string
	Material string // material name inside the model file
	Ref      string // Mapping[Material], empty when unmapped
	Faces    int
}

// Texture is a decoded image.
type Texture struct {
	URL    string
	Format string
	Width  int
	Height int
	Image  image.Image
}

// File is a raw file with its sniffed media type.
type File struct {
	URL  string
	MIME string
	Data []byte
}
