// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package load

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/filepos"
	"tagwire.dev/tagwire/pkg/orderedmap"
	"tagwire.dev/tagwire/pkg/vault"
)

const vaultTag = "!vault"

// Opts configures loading.
type Opts struct {
	// TrustTemplates marks every loaded string as TrustedAsTemplate.
	// Only set this for input authored by the operator, never for
	// externally supplied data.
	TrustTemplates bool
}

// Load parses a single YAML document, tagging every value with its origin
// (file, line, column). Scalars tagged !vault become still-encrypted
// vault values. Returns nil for an empty document.
func Load(data []byte, file string, opts Opts) (interface{}, error) {
	docs, err := LoadAll(data, file, opts)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	if len(docs) > 1 {
		return nil, fmt.Errorf("expected single YAML document in %s, found %d", file, len(docs))
	}
	return docs[0], nil
}

// LoadAll parses every document in data.
func LoadAll(data []byte, file string, opts Opts) ([]interface{}, error) {
	var root yaml.Node
	err := yaml.Unmarshal(data, &root)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling %s: %s", file, err)
	}
	if root.Kind == 0 {
		return nil, nil
	}

	loader := &loader{file: file, opts: opts}
	if root.Kind != yaml.DocumentNode {
		value, err := loader.value(&root)
		if err != nil {
			return nil, err
		}
		return []interface{}{value}, nil
	}

	var docs []interface{}
	for _, content := range root.Content {
		value, err := loader.value(content)
		if err != nil {
			return nil, err
		}
		docs = append(docs, value)
	}
	return docs, nil
}

type loader struct {
	file string
	opts Opts
}

func (l *loader) value(node *yaml.Node) (interface{}, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return l.scalar(node)
	case yaml.MappingNode:
		return l.mapping(node)
	case yaml.SequenceNode:
		return l.sequence(node)
	case yaml.AliasNode:
		return l.value(node.Alias)
	default:
		return nil, fmt.Errorf("unsupported YAML node kind %d at %s", node.Kind, l.position(node).AsCompactString())
	}
}

func (l *loader) scalar(node *yaml.Node) (interface{}, error) {
	if node.Tag == vaultTag {
		armor := strings.TrimSpace(node.Value)
		return l.tagged(vault.NewEncryptedString(armor), node,
			datatag.VaultedValue{Ciphertext: armor}), nil
	}

	switch node.Tag {
	case "!!null", "":
		if node.Value == "" || node.Tag == "!!null" {
			return nil, nil
		}
		return l.taggedString(node.Value, node), nil
	case "!!bool":
		parsed, err := strconv.ParseBool(strings.ToLower(node.Value))
		if err != nil {
			return nil, l.scalarErr(node, err)
		}
		// untaggable; origin is not carried for booleans
		return parsed, nil
	case "!!int":
		parsed, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return nil, l.scalarErr(node, err)
		}
		return l.tagged(parsed, node), nil
	case "!!float":
		parsed, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return nil, l.scalarErr(node, err)
		}
		return l.tagged(parsed, node), nil
	case "!!str":
		return l.taggedString(node.Value, node), nil
	default:
		return nil, fmt.Errorf("unsupported YAML scalar tag '%s' at %s", node.Tag, l.position(node).AsCompactString())
	}
}

func (l *loader) mapping(node *yaml.Node) (interface{}, error) {
	result := orderedmap.NewMap()
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("expected map key to be a scalar at %s", l.position(keyNode).AsCompactString())
		}
		value, err := l.value(valNode)
		if err != nil {
			return nil, err
		}
		result.Set(keyNode.Value, value)
	}
	return l.tagged(result, node), nil
}

func (l *loader) sequence(node *yaml.Node) (interface{}, error) {
	result := []interface{}{}
	for _, item := range node.Content {
		value, err := l.value(item)
		if err != nil {
			return nil, err
		}
		result = append(result, value)
	}
	return l.tagged(result, node), nil
}

func (l *loader) taggedString(s string, node *yaml.Node) interface{} {
	if l.opts.TrustTemplates {
		return l.tagged(s, node, datatag.TrustedAsTemplate{})
	}
	return l.tagged(s, node)
}

func (l *loader) tagged(value interface{}, node *yaml.Node, extra ...datatag.Tag) interface{} {
	tags := append([]datatag.Tag{datatag.Origin{Position: l.position(node)}}, extra...)
	return datatag.Apply(value, tags...)
}

func (l *loader) position(node *yaml.Node) *filepos.Position {
	return filepos.NewPositionWithCol(node.Line, node.Column, l.file)
}

func (l *loader) scalarErr(node *yaml.Node, err error) error {
	return fmt.Errorf("parsing scalar at %s: %s", l.position(node).AsCompactString(), err)
}
