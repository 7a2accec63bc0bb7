package schema

import (
	"errors"
	"path/filepath"
	"strings"
)

// SourceKind tells where a catalog document was read from.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
)

// Source names the origin of a document for error messages.
type Source interface {
	Location() string
	Kind() SourceKind
}

type source struct {
	location string
	kind     SourceKind
}

func (s source) Location() string { return s.location }
func (s source) Kind() SourceKind { return s.kind }

// SourceFromFile names an on-disk document.
func SourceFromFile(path string) Source {
	return source{location: filepath.Clean(path), kind: SourceKindFile}
}

// SourceFromFS names a document inside an fs.FS.
func SourceFromFS(name string) Source {
	return source{location: name, kind: SourceKindFS}
}

// Document is a raw catalog or OpenAPI document and its origin.
type Document struct {
	source Source
	raw    []byte
}

// NewDocument copies raw. Blank documents are rejected.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if strings.TrimSpace(string(raw)) == "" {
		return Document{}, errors.New("schema: raw document is empty")
	}
	return Document{source: src, raw: append([]byte(nil), raw...)}, nil
}

// MustNewDocument is NewDocument for fixtures; it panics on error.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

func (d Document) Source() Source { return d.source }

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Location returns the origin, or "" for the zero Document.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// Format guesses the encoding from the location extension: "yaml", "json"
// or "" when unknown.
func (d Document) Format() string {
	switch strings.ToLower(filepath.Ext(d.Location())) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return ""
	}
}
