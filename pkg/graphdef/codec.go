package graphdef

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/segmenter/pkg/errors"
)

// Format is a serialization format for graph definitions.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errs.New(errs.ErrCodeInvalidFormat, "unsupported graph file extension %q", filepath.Ext(path))
	}
}

// Read decodes a graph definition from r.
func Read(r io.Reader, format Format) (*GraphDef, error) {
	var def GraphDef
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&def)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&def)
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&def)
	default:
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unsupported format %q", format)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode %s graph", format)
	}
	return &def, nil
}

// Parse decodes a graph definition held in memory.
func Parse(data []byte, format Format) (*GraphDef, error) {
	return Read(bytes.NewReader(data), format)
}

// Import reads the graph definition file at path, choosing the format from
// its extension.
func Import(path string) (*GraphDef, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "graph file %s not found", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, format)
}

// Write encodes def to w.
func Write(w io.Writer, def *GraphDef, format Format) error {
	var err error
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(def)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err = enc.Encode(def)
		if err == nil {
			err = enc.Close()
		}
	case FormatTOML:
		err = toml.NewEncoder(w).Encode(def)
	default:
		return errs.New(errs.ErrCodeInvalidFormat, "unsupported format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Export writes def to a file at path, choosing the format from its extension.
func Export(def *GraphDef, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(f, def, format)
}
