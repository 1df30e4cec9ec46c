package console

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	yamlv3 "gopkg.in/yaml.v3"
)

// Document is one declared resource: a kind plus its fields. The kind
// selects the schema that validates the fields and the platform
// collection they are written to. Apply, get, list, and delete all
// speak Documents.
type Document struct {
	Kind   string         `yaml:"kind" json:"kind"`
	Fields map[string]any `yaml:",inline" json:",inline"`
}

// Name returns the document's "name" field, or "".
func (d *Document) Name() string {
	return d.GetString("name")
}

// FullName returns the "kind/name" reference used in command output.
func (d *Document) FullName() string {
	return d.Kind + "/" + d.Name()
}

// GetString returns a string field, or "" when absent or not a string.
func (d *Document) GetString(key string) string {
	s, _ := d.Fields[key].(string)
	return s
}

// ApplyResult describes what applying one document did.
type ApplyResult struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	ID     string `json:"id"`
	Status string `json:"status"` // "created", "updated"
}

// ListOpts bounds how much a List call returns.
type ListOpts struct {
	Limit int  // max items (default 10)
	All   bool // ignore limit, return all
}

// ParseDocuments decodes a multi-document YAML stream. Empty documents
// are skipped; a document without a kind is an error naming its
// position, since apply files routinely hold many resources.
func ParseDocuments(data []byte) ([]Document, error) {
	dec := yamlv3.NewDecoder(bytes.NewReader(data))
	var docs []Document
	for i := 1; ; i++ {
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return docs, nil
			}
			return nil, fmt.Errorf("parse document %d: %w", i, err)
		}
		if raw == nil {
			continue
		}
		kind, _ := raw["kind"].(string)
		if kind == "" {
			return nil, fmt.Errorf("document %d has no kind", i)
		}
		delete(raw, "kind")
		docs = append(docs, Document{Kind: kind, Fields: raw})
	}
}

// ParseDocumentsFromFile reads path and decodes it; "-" reads stdin.
func ParseDocumentsFromFile(path string) ([]Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseDocuments(data)
}
