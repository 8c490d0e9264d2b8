// Package parser converts YAML/JSON batch files into AST types.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/rpncalc/pkg/ast"
	"gopkg.in/yaml.v3"
)

// MaxItems is the maximum number of expressions per batch.
const MaxItems = 1000

// MaxSourceSize is the maximum batch source size in bytes (128 KB).
const MaxSourceSize = 128 * 1024

// ParseError represents an error encountered during batch parsing.
type ParseError struct {
	Message  string
	Location string // e.g., "item 3"
}

func (e *ParseError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Parse parses a YAML or JSON batch definition. The document is either a
// sequence of items or a mapping with an optional "name" and an
// "expressions" sequence. An item is a bare scalar expression or a mapping
// with "expr" (alias "expression"), optional "name" and optional "expect".
func Parse(source []byte) (*ast.Batch, error) {
	if len(source) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("batch source size %d exceeds maximum %d bytes", len(source), MaxSourceSize)}
	}

	var raw yaml.Node
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	// The root node is a document node containing the actual content
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return nil, &ParseError{Message: "empty batch definition"}
	}

	batch := &ast.Batch{}
	root := raw.Content[0]

	var items *yaml.Node
	switch root.Kind {
	case yaml.SequenceNode:
		items = root
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key := root.Content[i].Value
			val := root.Content[i+1]
			switch key {
			case "name":
				if val.Kind != yaml.ScalarNode {
					return nil, &ParseError{Message: "'name' must be a string"}
				}
				batch.Name = val.Value
			case "expressions":
				items = val
			default:
				return nil, &ParseError{Message: fmt.Sprintf("unknown key '%s' in batch", key)}
			}
		}
	default:
		return nil, &ParseError{Message: "batch definition must be a mapping or sequence"}
	}

	if items == nil {
		return nil, &ParseError{Message: "batch must have 'expressions'"}
	}
	if items.Kind != yaml.SequenceNode {
		return nil, &ParseError{Message: "'expressions' must be a list"}
	}
	if len(items.Content) == 0 {
		return nil, &ParseError{Message: "batch has no expressions"}
	}
	if len(items.Content) > MaxItems {
		return nil, &ParseError{Message: fmt.Sprintf("batch has %d expressions, maximum is %d", len(items.Content), MaxItems)}
	}

	seen := make(map[string]bool, len(items.Content))
	for i, node := range items.Content {
		item, err := parseItem(i, node)
		if err != nil {
			return nil, err
		}
		if seen[item.Name] {
			return nil, &ParseError{
				Message:  fmt.Sprintf("duplicate expression name '%s'", item.Name),
				Location: location(i),
			}
		}
		seen[item.Name] = true
		batch.Items = append(batch.Items, item)
	}

	return batch, nil
}

func parseItem(i int, node *yaml.Node) (*ast.Item, error) {
	item := &ast.Item{Name: fmt.Sprintf("expr-%d", i+1)}

	switch node.Kind {
	case yaml.ScalarNode:
		item.Expression = node.Value
	case yaml.MappingNode:
		for j := 0; j+1 < len(node.Content); j += 2 {
			key := node.Content[j].Value
			val := node.Content[j+1]
			if val.Kind != yaml.ScalarNode {
				return nil, &ParseError{
					Message:  fmt.Sprintf("'%s' must be a scalar", key),
					Location: location(i),
				}
			}

			switch key {
			case "name":
				item.Name = val.Value
			case "expr", "expression":
				item.Expression = val.Value
			case "expect":
				v, err := parseExpect(val)
				if err != nil {
					return nil, &ParseError{Message: err.Error(), Location: location(i)}
				}
				item.Expect = &v
			default:
				return nil, &ParseError{
					Message:  fmt.Sprintf("unknown key '%s' in expression", key),
					Location: location(i),
				}
			}
		}
	default:
		return nil, &ParseError{
			Message:  "expression must be a string or a mapping",
			Location: location(i),
		}
	}

	if strings.TrimSpace(item.Expression) == "" {
		return nil, &ParseError{Message: "expression is empty", Location: location(i)}
	}
	if item.Name == "" {
		return nil, &ParseError{Message: "name is empty", Location: location(i)}
	}
	return item, nil
}

// parseExpect accepts YAML numbers (including .inf and .nan) and, for JSON
// sources, the strings "Inf", "+Inf", "-Inf" and "NaN".
func parseExpect(node *yaml.Node) (float64, error) {
	var v float64
	if err := node.Decode(&v); err == nil {
		return v, nil
	}
	v, err := strconv.ParseFloat(node.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid 'expect' value %q", node.Value)
	}
	return v, nil
}

func location(i int) string {
	return fmt.Sprintf("item %d", i+1)
}
