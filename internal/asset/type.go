package asset

import "fmt"

// Type tags what kind of resource an asset describes.
type Type string

const (
	TypeModel     Type = "model"
	TypeTexture   Type = "texture"
	TypeMaterial  Type = "material"
	TypeAnimation Type = "animation"
	TypeAudio     Type = "audio"
	TypeJSON      Type = "json"
	TypeText      Type = "text"
	TypeBinary    Type = "binary"
	TypeOther     Type = "other"
)

var knownTypes = map[Type]bool{
	TypeModel:     true,
	TypeTexture:   true,
	TypeMaterial:  true,
	TypeAnimation: true,
	TypeAudio:     true,
	TypeJSON:      true,
	TypeText:      true,
	TypeBinary:    true,
	TypeOther:     true,
}

// ParseType validates s against the known asset types. The empty string
// parses to the empty Type, meaning "unset".
func ParseType(s string) (Type, error) {
	t := Type(s)
	if s == "" || knownTypes[t] {
		return t, nil
	}
	return "", fmt.Errorf("unknown asset type %q", s)
}

func (t Type) String() string { return string(t) }

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
