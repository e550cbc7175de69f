// Package ebuildparse implements the ebuild-text → parsed-ebuild
// transform (SPEC_FULL.md's domain-stack supplement): ebuilds are POSIX
// shell, so the bash tree-sitter grammar parses the raw text into a
// syntax tree, and this package extracts the global-scope variable
// assignments (SLOT, KEYWORDS, IUSE, DEPEND, ...) checks need without
// every check re-parsing shell itself.
package ebuildparse

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/alexaandru/go-sitter-forest/bash"

	"github.com/pkgcheck-go/pkgcheck/pkg/consumer"
	"github.com/pkgcheck-go/pkgcheck/pkg/item"
	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
	"github.com/pkgcheck-go/pkgcheck/pkg/result"
	"github.com/pkgcheck-go/pkgcheck/pkg/transform"
)

var (
	bashLanguage     *sitter.Language
	bashLanguageOnce sync.Once
)

func language() *sitter.Language {
	bashLanguageOnce.Do(func() {
		bashLanguage = sitter.NewLanguage(bash.GetLanguage())
	})

	return bashLanguage
}

// parserPool follows the teacher's pkg/uast DSLParser.tsParserPool: a
// tree-sitter Parser is not safe for concurrent use but is expensive to
// construct, so one pool is shared across a pipeline run.
var parserPool = sync.Pool{
	New: func() any {
		p := sitter.NewParser()
		p.SetLanguage(language())

		return p
	},
}

// Transform returns the registered transform.Transform from EbuildText
// to EbuildAST, parsing ebuild text as bash and extracting its
// global-scope variable assignments.
func Transform() transform.Transform {
	return transform.Transform{
		Name:  "ebuild-parse",
		From:  itemkind.EbuildText,
		To:    itemkind.EbuildAST,
		Scope: itemkind.ScopeVersion,
		Wrap:  wrap,
	}
}

func wrap(next consumer.Consumer) consumer.Consumer {
	return consumer.Func{
		StartFunc:  next.Start,
		FinishFunc: next.Finish,
		FeedFunc: func(ctx context.Context, it item.Item) ([]result.Result, error) {
			text, ok := it.(item.EbuildText)
			if !ok {
				return nil, nil
			}

			ast, err := Parse(ctx, text)
			if err != nil {
				return nil, &consumer.MetadataFailure{Item: it, Attribute: "ebuild-text", Err: err}
			}

			return next.Feed(ctx, ast)
		},
	}
}

// Parse parses an ebuild's raw text as bash and extracts its
// global-scope (depth-1) variable assignments.
func Parse(ctx context.Context, text item.EbuildText) (item.EbuildAST, error) {
	tsParser, ok := parserPool.Get().(*sitter.Parser)
	if !ok {
		return item.EbuildAST{}, fmt.Errorf("ebuildparse: parser pool returned unexpected type")
	}

	defer parserPool.Put(tsParser)

	content := []byte(text.Text)

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return item.EbuildAST{}, fmt.Errorf("ebuildparse: parse %s/%s-%s: %w", text.Category, text.Name, text.Ver, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return item.EbuildAST{}, fmt.Errorf("ebuildparse: %s/%s-%s: empty syntax tree", text.Category, text.Name, text.Ver)
	}

	return item.EbuildAST{
		Category: text.Category,
		Name:     text.Name,
		Ver:      text.Ver,
		Text:     text.Text,
		Vars:     globalAssignments(root, content),
	}, nil
}

// globalAssignments walks the top-level statements of the program node
// looking for variable_assignment nodes (SLOT="0", KEYWORDS="amd64 x86",
// ...), the only shape checks in this engine care about; function bodies
// and conditionals are left unparsed since no current check descends
// into them.
func globalAssignments(root sitter.Node, src []byte) []item.EbuildVar {
	var vars []item.EbuildVar

	count := root.NamedChildCount()

	for idx := range count {
		child := root.NamedChild(idx)
		if child.Type() != "variable_assignment" {
			continue
		}

		nameNode := child.ChildByFieldName("name")
		valueNode := child.ChildByFieldName("value")

		if nameNode.IsNull() {
			continue
		}

		name := nodeText(nameNode, src)
		value := ""

		if !valueNode.IsNull() {
			value = unquote(nodeText(valueNode, src))
		}

		vars = append(vars, item.EbuildVar{Name: name, Value: value})
	}

	return vars
}

func nodeText(n sitter.Node, src []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint(len(src)) || start > end {
		return ""
	}

	return string(src[start:end])
}

// unquote strips a single layer of double or single quotes, the only
// quoting style ebuild variable values use in practice.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}

	return s
}
