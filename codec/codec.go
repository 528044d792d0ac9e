// Package codec encodes results and decodes corpora.
//
// A file's format is chosen from its extension: ".msgpack" or ".mpk" selects
// MessagePack, anything else JSON. A trailing ".zst" or ".lz4" adds
// compression on top.
package codec

import (
	"fmt"
	"path"
	"strings"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is named.
var Default Codec = JSON{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch strings.ToLower(name) {
	case "json":
		return JSON{}, true
	case "msgpack":
		return Msgpack{}, true
	default:
		return nil, false
	}
}

// ForPath returns the codec and compression implied by the extension of p.
func ForPath(p string) (Codec, Compression) {
	comp := CompressionForPath(p)
	base := p[:len(p)-len(comp.Ext())]
	switch strings.ToLower(path.Ext(base)) {
	case ".msgpack", ".mpk":
		return Msgpack{}, comp
	default:
		return JSON{}, comp
	}
}

// Encode marshals v with c and compresses the result.
func Encode(c Codec, comp Compression, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}
	data, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec %s: marshal: %w", c.Name(), err)
	}
	return Compress(data, comp)
}

// Decode decompresses data and unmarshals it into v with c.
func Decode(c Codec, comp Compression, data []byte, v any) error {
	if c == nil {
		c = Default
	}
	raw, err := Decompress(data, comp)
	if err != nil {
		return err
	}
	if err := c.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("codec %s: unmarshal: %w", c.Name(), err)
	}
	return nil
}
