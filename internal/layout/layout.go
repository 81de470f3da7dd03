// Package layout loads resolved record layouts from description files and
// interprets extracted record buffers as typed values.
//
// A description lists the packed fields of one record:
//
//	name: flimnap
//	byte_order: little
//	metadata_len: 7
//	fields:
//	  - {name: timestamp, type: uint32}
//	  - {name: q, type: float32, count: 4}
//
// A field with count N expands to N fields named q[0] … q[N-1].
package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"firestige.xyz/cobslog/internal/core"
)

// Spec is the on-disk form of a record layout.
type Spec struct {
	Name        string      `yaml:"name" toml:"name"`
	ByteOrder   string      `yaml:"byte_order" toml:"byte_order"`
	MetadataLen int         `yaml:"metadata_len" toml:"metadata_len"`
	Fields      []FieldSpec `yaml:"fields" toml:"fields"`
}

// FieldSpec is one entry of Spec.Fields.
type FieldSpec struct {
	Name  string `yaml:"name" toml:"name"`
	Type  string `yaml:"type" toml:"type"`
	Count int    `yaml:"count" toml:"count"`
}

// Format identifies a description file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the syntax from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %s", core.ErrUnsupportedLayout, path)
	}
}

// Load reads and resolves the description at path.
func Load(path string) (core.RecordLayout, Spec, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return core.RecordLayout{}, Spec{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return core.RecordLayout{}, Spec{}, fmt.Errorf("failed to read layout file %s: %w", path, err)
	}
	spec, err := Parse(data, format)
	if err != nil {
		return core.RecordLayout{}, Spec{}, fmt.Errorf("failed to parse layout file %s: %w", path, err)
	}
	l, err := spec.Resolve()
	if err != nil {
		return core.RecordLayout{}, Spec{}, fmt.Errorf("layout file %s: %w", path, err)
	}
	return l, spec, nil
}

// Parse decodes a description without resolving it.
func Parse(data []byte, format Format) (Spec, error) {
	var spec Spec
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&spec); err != nil {
			return Spec{}, err
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &spec)
		if err != nil {
			return Spec{}, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Spec{}, fmt.Errorf("unknown keys: %v", undecoded)
		}
	default:
		return Spec{}, fmt.Errorf("%w: %q", core.ErrUnsupportedLayout, format)
	}
	return spec, nil
}

// Resolve expands array fields, checks the result and returns the layout.
func (s Spec) Resolve() (core.RecordLayout, error) {
	order, err := parseByteOrder(s.ByteOrder)
	if err != nil {
		return core.RecordLayout{}, err
	}
	if s.MetadataLen < 0 {
		return core.RecordLayout{}, fmt.Errorf("%w: negative metadata_len %d", core.ErrLayoutInvalid, s.MetadataLen)
	}

	l := core.RecordLayout{Name: s.Name, ByteOrder: order}
	for i, f := range s.Fields {
		typ := core.FieldType(strings.ToLower(strings.TrimSpace(f.Type)))
		switch {
		case f.Count < 0:
			return core.RecordLayout{}, fmt.Errorf("%w: field %d has negative count", core.ErrLayoutInvalid, i)
		case f.Count == 0:
			l.Fields = append(l.Fields, core.Field{Name: f.Name, Type: typ})
		default:
			for j := 0; j < f.Count; j++ {
				l.Fields = append(l.Fields, core.Field{Name: fmt.Sprintf("%s[%d]", f.Name, j), Type: typ})
			}
		}
	}
	if err := l.Validate(); err != nil {
		return core.RecordLayout{}, err
	}
	return l, nil
}

// EffectiveMetadataLen returns MetadataLen or the device default.
func (s Spec) EffectiveMetadataLen() int {
	if s.MetadataLen == 0 {
		return core.DefaultMetadataLen
	}
	return s.MetadataLen
}

func parseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "little", "le":
		return binary.LittleEndian, nil
	case "big", "be":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("%w: unknown byte_order %q", core.ErrLayoutInvalid, s)
	}
}
