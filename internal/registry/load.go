package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// registrySchema constrains CUE registry files.
const registrySchema = `
#Registry: {
	fingerprints: [string]: =~"^[0-9a-fA-F]+$"
	...
}
`

// document is the YAML layout of a registry file.
type document struct {
	Fingerprints map[string]string `yaml:"fingerprints"`
}

// LoadFile reads a registry from path. The format follows the extension:
// .yaml/.yml for YAML, .cue for CUE.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(data, path)
	}
	return nil, fmt.Errorf("registry: unsupported file type %q (want .yaml, .yml or .cue)", filepath.Ext(path))
}

// ParseYAML decodes a YAML registry document. Unknown top-level keys are rejected.
func ParseYAML(data []byte) (*Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("registry: empty document")
		}
		return nil, fmt.Errorf("registry: decode yaml: %w", err)
	}
	if doc.Fingerprints == nil {
		return nil, fmt.Errorf("registry: missing %q section", "fingerprints")
	}
	return New(doc.Fingerprints)
}

// ParseCUE evaluates a CUE registry document and validates it against the
// registry schema. filename is used in error positions only.
func ParseCUE(data []byte, filename string) (*Registry, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(registrySchema).LookupPath(cue.ParsePath("#Registry"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("registry: compile schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("registry: compile %s: %w", filename, err)
	}
	if !v.LookupPath(cue.ParsePath("fingerprints")).Exists() {
		return nil, fmt.Errorf("registry: %s: missing %q section", filename, "fingerprints")
	}

	v = schema.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("registry: validate %s: %w", filename, err)
	}

	iter, err := v.LookupPath(cue.ParsePath("fingerprints")).Fields()
	if err != nil {
		return nil, fmt.Errorf("registry: iterate fingerprints: %w", err)
	}
	entries := make(map[string]string)
	for iter.Next() {
		value, err := iter.Value().String()
		if err != nil {
			return nil, fmt.Errorf("registry: fingerprint %q: %w", iter.Label(), err)
		}
		entries[iter.Label()] = value
	}
	return New(entries)
}

// EncodeYAML renders r in the YAML registry format with sorted keys.
func (r *Registry) EncodeYAML() ([]byte, error) {
	fps := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range r.Names() {
		fps.Content = append(fps.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: r.entries[name], Style: yaml.DoubleQuotedStyle},
		)
	}
	root := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: "fingerprints"},
		fps,
	}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("registry: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("registry: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}
