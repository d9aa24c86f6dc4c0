// Package parser turns raw YAML manifests into typed resource records.
package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/mchestr/kubestats/types"
)

// Parser extracts recognized Kubernetes resources from YAML files.
type Parser struct {
	registry *Registry
}

// New creates a parser over the default classifier registry.
func New() *Parser {
	return NewWithRegistry(DefaultRegistry())
}

// NewWithRegistry creates a parser over a custom classifier registry.
func NewWithRegistry(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// FileHash computes the content hash used for change detection. The hash
// covers the whole file, so every document in a multi-document file shares
// it and any edit to the file invalidates all of them.
func FileHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ParseFile parses a possibly multi-document YAML file and returns one
// ResourceData per recognized document. Documents that are empty, are not
// mappings, lack apiVersion/kind/metadata.name, or match no registered
// classifier are silently skipped. A syntax error anywhere in the file
// discards the whole file.
func (p *Parser) ParseFile(content []byte, filePath string) ([]types.ResourceData, error) {
	docs, err := decodeDocuments(content)
	if err != nil {
		return nil, fmt.Errorf("invalid yaml in %s: %w", filePath, err)
	}

	hash := FileHash(content)

	var resources []types.ResourceData
	for _, doc := range docs {
		if resource, ok := p.parseDocument(doc, filePath, hash); ok {
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

// decodeDocuments splits a file on document separators and decodes every
// document up front, so a syntax error in any of them rejects the file.
func decodeDocuments(content []byte) ([]map[string]any, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(content))

	var docs []map[string]any
	for {
		var doc any
		err := decoder.Decode(&doc)
		if err == io.EOF {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		mapping, ok := doc.(map[string]any)
		if !ok {
			// Not a mapping; a valid YAML document we have no use for.
			continue
		}
		docs = append(docs, mapping)
	}
}

// parseDocument builds a ResourceData from one decoded document, or reports
// that the document is not a resource this system tracks.
func (p *Parser) parseDocument(doc map[string]any, filePath, fileHash string) (types.ResourceData, bool) {
	apiVersion, _ := doc["apiVersion"].(string)
	kind, _ := doc["kind"].(string)
	if apiVersion == "" || kind == "" {
		return types.ResourceData{}, false
	}

	classifier, ok := p.registry.Match(apiVersion, kind)
	if !ok {
		return types.ResourceData{}, false
	}

	metadata := mapAt(doc, "metadata")
	name, _ := metadata["name"].(string)
	if name == "" {
		return types.ResourceData{}, false
	}
	namespace, _ := metadata["namespace"].(string)

	resource := types.ResourceData{
		APIVersion: apiVersion,
		Kind:       kind,
		Name:       name,
		Namespace:  namespace,
		FilePath:   filePath,
		FileHash:   fileHash,
		Body:       normalizeBody(mapAt(doc, "spec")),
	}

	if classifier.Extract != nil {
		classifier.Extract(doc, &resource)
	}
	return resource, true
}

// normalizeBody round-trips the body through JSON so its value types match
// bodies loaded back from storage: YAML integers become float64, timestamps
// become strings. Without this every unchanged numeric field in a modified
// file would diff as changed against the persisted copy.
func normalizeBody(body map[string]any) map[string]any {
	if len(body) == 0 {
		return body
	}
	data, err := json.Marshal(body)
	if err != nil {
		return body
	}
	var normalized map[string]any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return body
	}
	return normalized
}

// mapAt returns the nested mapping at the given key path, or an empty map.
func mapAt(m map[string]any, path ...string) map[string]any {
	current := m
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			return map[string]any{}
		}
		current = next
	}
	return current
}

// stringAt returns the string value at the given key path, or "".
func stringAt(m map[string]any, path ...string) string {
	if len(path) == 0 {
		return ""
	}
	parent := mapAt(m, path[:len(path)-1]...)
	value, _ := parent[path[len(path)-1]].(string)
	return value
}
