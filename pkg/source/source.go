package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/errors"
)

// Source provides the current entity set.
type Source interface {
	Entities(ctx context.Context) ([]entity.Entity, error)
}

// Format is an entity document encoding.
type Format string

// Supported document formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the document format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported entity file %q (want .json, .yaml or .toml)", path)
	}
}

type document struct {
	Entities []entity.Entity `json:"entities" yaml:"entities" toml:"entities"`
}

// Decode reads an entity document in the given format and validates the
// resulting entity set.
func Decode(r io.Reader, format Format) ([]entity.Entity, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var entities []entity.Entity
	switch format {
	case FormatJSON:
		entities, err = decodeJSON(data)
	case FormatYAML:
		entities, err = decodeYAML(data)
	case FormatTOML:
		var doc document
		_, err = toml.Decode(string(data), &doc)
		entities = doc.Entities
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", format)
	}

	if err := entity.Validate(entities); err != nil {
		return nil, err
	}
	for _, e := range entities {
		if err := errors.ValidateEntityID(e.ID); err != nil {
			return nil, err
		}
	}
	return entities, nil
}

func decodeJSON(data []byte) ([]entity.Entity, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var list []entity.Entity
		err := json.Unmarshal(trimmed, &list)
		return list, err
	}
	var doc document
	err := json.Unmarshal(data, &doc)
	return doc.Entities, err
}

func decodeYAML(data []byte) ([]entity.Entity, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var list []entity.Entity
		err := node.Content[0].Decode(&list)
		return list, err
	}
	var doc document
	err := node.Content[0].Decode(&doc)
	return doc.Entities, err
}

// LoadFile reads and validates the entity document at path.
func LoadFile(path string) ([]entity.Entity, error) {
	if err := errors.ValidateSourceFile(path); err != nil {
		return nil, err
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "entity file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "open %s", path)
	}
	defer f.Close()

	entities, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entities, nil
}

// FileSource reads entities from a document on disk on every call.
type FileSource struct {
	Path string
}

// NewFileSource returns a source for the entity document at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Entities loads the current contents of the file.
func (s *FileSource) Entities(ctx context.Context) ([]entity.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(s.Path)
}

// Encode writes entities as a document in the given format.
func Encode(w io.Writer, entities []entity.Entity, format Format) error {
	doc := document{Entities: entities}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(doc)
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", format)
	}
}
