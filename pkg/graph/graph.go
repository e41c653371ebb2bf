package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/source/memory"
)

// Format is a manifest encoding.
type Format string

// Supported manifest formats.
const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension. Unknown extensions fall
// back to TOML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// =============================================================================
// Manifest Serialization API
// =============================================================================

// ReadFile reads a manifest file and builds the in-memory graph.
func ReadFile(path string) (*memory.Graph, error) {
	m, err := ReadManifestFile(path)
	if err != nil {
		return nil, err
	}
	return ToMemory(m)
}

// ReadManifestFile reads and decodes a manifest file without building a graph.
func ReadManifestFile(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, errs.Wrap(errs.ErrCodeFileNotFound, err, "manifest %s", path)
		}
		return Manifest{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f, FormatFor(path))
}

// Decode reads a manifest in the given format.
func Decode(r io.Reader, format Format) (Manifest, error) {
	var m Manifest
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&m)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&m)
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&m)
	default:
		return Manifest{}, errs.New(errs.ErrCodeUnsupported, "unsupported manifest format %q", format)
	}
	if err != nil && err != io.EOF {
		return Manifest{}, errs.Wrap(errs.ErrCodeInvalidManifest, err, "decode %s manifest", format)
	}
	return m, nil
}

// Unmarshal decodes manifest bytes in the given format.
func Unmarshal(data []byte, format Format) (Manifest, error) {
	return Decode(bytes.NewReader(data), format)
}

// Encode writes a manifest in the given format.
func Encode(w io.Writer, m Manifest, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(m); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	default:
		return errs.New(errs.ErrCodeUnsupported, "unsupported manifest format %q", format)
	}
	return nil
}

// Marshal encodes a manifest to bytes.
func Marshal(m Manifest, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes a manifest to path in the format its extension names.
// The file is created with 0644 permissions.
func WriteFile(m Manifest, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Encode(f, m, FormatFor(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
