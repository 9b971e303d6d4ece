package adapter

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

// NameExtractorAdapter lists the names a code snippet defines at module level.
type NameExtractorAdapter interface {
	// ExtractNames returns the top-level functions, classes and assigned names of
	// source in definition order. A name defined twice is reported once.
	ExtractNames(ctx context.Context, source string) ([]m.AnnotatedName, error)
}

// PythonNameExtractorAdapter implements NameExtractorAdapter with the Tree-sitter
// Python grammar.
type PythonNameExtractorAdapter struct{}

// NewPythonNameExtractorAdapter constructs a PythonNameExtractorAdapter.
func NewPythonNameExtractorAdapter() *PythonNameExtractorAdapter {
	return &PythonNameExtractorAdapter{}
}

// ExtractNames parses source and collects its module-level names. Parsers are
// not shared between calls.
func (a *PythonNameExtractorAdapter) ExtractNames(ctx context.Context, source string) ([]m.AnnotatedName, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(python.GetLanguage())

	content := []byte(source)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse python source: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("python source has syntax errors")
	}

	c := &nameCollector{content: content, seen: map[string]bool{}}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		c.visit(root.NamedChild(i))
	}

	return c.names, nil
}

type nameCollector struct {
	content []byte
	seen    map[string]bool
	names   []m.AnnotatedName
}

func (c *nameCollector) visit(node *sitter.Node) {
	switch node.Type() {
	case "decorated_definition":
		if def := node.ChildByFieldName("definition"); def != nil {
			c.visit(def)
		}
	case "function_definition":
		c.add(m.AnnotatedName{
			ID:          c.text(node.ChildByFieldName("name")),
			Annotation:  c.signature(node),
			Description: c.docstring(node.ChildByFieldName("body")),
		})
	case "class_definition":
		c.add(m.AnnotatedName{
			ID:          c.text(node.ChildByFieldName("name")),
			Annotation:  "class",
			Description: c.docstring(node.ChildByFieldName("body")),
		})
	case "expression_statement":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() != "assignment" {
				continue
			}

			left := child.ChildByFieldName("left")
			if left == nil || left.Type() != "identifier" {
				continue
			}

			c.add(m.AnnotatedName{
				ID:         c.text(left),
				Annotation: c.text(child.ChildByFieldName("type")),
			})
		}
	}
}

func (c *nameCollector) add(name m.AnnotatedName) {
	if name.ID == "" || c.seen[name.ID] {
		return
	}

	c.seen[name.ID] = true
	c.names = append(c.names, name)
}

// signature renders `(params) -> ret` when the function carries a return annotation.
func (c *nameCollector) signature(fn *sitter.Node) string {
	ret := c.text(fn.ChildByFieldName("return_type"))
	if ret == "" {
		return ""
	}

	return c.text(fn.ChildByFieldName("parameters")) + " -> " + ret
}

// docstring returns the first line of the docstring opening body, if any.
func (c *nameCollector) docstring(body *sitter.Node) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}

	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}

	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}

	text := strings.TrimLeft(c.text(str), "rRbBuUfF")
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, quote) && strings.HasSuffix(text, quote) && len(text) >= 2*len(quote) {
			text = text[len(quote) : len(text)-len(quote)]
			break
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}

	return ""
}

func (c *nameCollector) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}

	return node.Content(c.content)
}
