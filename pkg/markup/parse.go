package markup

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
)

// ParseBlocks splits markdown into an ordered list of block specs. This is
// the splitting step of streaming completion: each spec becomes one cell.
// Parsing never fails hard; input that produces no recognizable blocks falls
// back to a single paragraph of plain text.
func ParseBlocks(src string) []BlockSpec {
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))

	var specs []BlockSpec
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		specs = append(specs, blockSpecs(child, source)...)
	}

	if len(specs) == 0 {
		spec := BlockSpec{Kind: KindParagraph}
		if trimmed := strings.TrimSpace(src); trimmed != "" {
			spec.Inline = []Node{TextNode(trimmed)}
		}
		specs = []BlockSpec{spec}
	}
	return specs
}

func blockSpecs(node ast.Node, source []byte) []BlockSpec {
	switch n := node.(type) {
	case *ast.Heading:
		return []BlockSpec{{Kind: KindHeading, Level: n.Level, Inline: inlineNodes(n, source, 0)}}

	case *ast.Paragraph:
		return []BlockSpec{{Kind: KindParagraph, Inline: inlineNodes(n, source, 0)}}

	case *ast.TextBlock:
		return []BlockSpec{{Kind: KindParagraph, Inline: inlineNodes(n, source, 0)}}

	case *ast.List:
		return listSpecs(n, source)

	case *ast.FencedCodeBlock:
		return []BlockSpec{codeSpec(n.BaseBlock, source)}

	case *ast.CodeBlock:
		return []BlockSpec{codeSpec(n.BaseBlock, source)}

	case *ast.Blockquote:
		// Quote content flattens to its constituent blocks; the quote cell
		// type is assigned by the caller, not encoded in block structure.
		var specs []BlockSpec
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			specs = append(specs, blockSpecs(child, source)...)
		}
		return specs

	case *ast.ThematicBreak:
		return nil

	default:
		inline := inlineNodes(node, source, 0)
		if len(inline) == 0 {
			return nil
		}
		return []BlockSpec{{Kind: KindParagraph, Inline: inline}}
	}
}

func listSpecs(list *ast.List, source []byte) []BlockSpec {
	kind := KindBulletItem
	if list.IsOrdered() {
		kind = KindNumberItem
	}

	index := 1
	if list.IsOrdered() && list.Start > 0 {
		index = list.Start
	}

	var specs []BlockSpec
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		if _, ok := item.(*ast.ListItem); !ok {
			continue
		}

		var inline []Node
		var nested []BlockSpec
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if sub, ok := child.(*ast.List); ok {
				// Nested lists flatten into sibling specs; one logical block
				// per cell, no nesting inside.
				nested = append(nested, listSpecs(sub, source)...)
				continue
			}
			inline = append(inline, inlineNodes(child, source, 0)...)
		}

		spec := BlockSpec{Kind: kind, Inline: inline}
		if kind == KindNumberItem {
			spec.Index = index
			index++
		}
		specs = append(specs, spec)
		specs = append(specs, nested...)
	}
	return specs
}

func codeSpec(block ast.BaseBlock, source []byte) BlockSpec {
	var inline []Node
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		if i > 0 {
			inline = append(inline, Linebreak())
		}
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(source)), "\n")
		inline = append(inline, FormattedText(line, FormatCode))
	}
	return BlockSpec{Kind: KindCode, Inline: inline}
}

func inlineNodes(parent ast.Node, source []byte, format int) []Node {
	var out []Node
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Text:
			txt := string(n.Segment.Value(source))
			if txt != "" {
				out = append(out, FormattedText(txt, format))
			}
			if n.HardLineBreak() || n.SoftLineBreak() {
				out = append(out, Linebreak())
			}

		case *ast.String:
			out = append(out, FormattedText(string(n.Value), format))

		case *ast.Emphasis:
			f := FormatItalic
			if n.Level >= 2 {
				f = FormatBold
			}
			out = append(out, inlineNodes(n, source, format|f)...)

		case *ast.CodeSpan:
			out = append(out, inlineNodes(n, source, format|FormatCode)...)

		case *east.Strikethrough:
			out = append(out, inlineNodes(n, source, format|FormatStrikethrough)...)

		case *ast.Link:
			// Links flatten to their text; the inline model carries no URLs.
			out = append(out, inlineNodes(n, source, format)...)

		case *ast.AutoLink:
			out = append(out, FormattedText(string(n.URL(source)), format))

		case *ast.Image:
			out = append(out, Node{
				Type: TypeImage,
				Src:  string(n.Destination),
				Alt:  PlainText(inlineNodes(n, source, 0)),
			})

		case *ast.RawHTML:
			// dropped

		default:
			out = append(out, inlineNodes(child, source, format)...)
		}
	}
	return out
}

// ParseBlockToInline flattens markdown (or already-inline markup) into a
// single run of inline nodes. Block wrapping is discarded deliberately: a
// heading becomes bold text plus a line break, a list item becomes
// marker-prefixed text, a code block becomes code-formatted runs joined by
// line breaks. Each logical block belongs in its own cell, so nothing here
// ever produces nested structure.
func ParseBlockToInline(src string) []Node {
	if strings.TrimSpace(src) == "" {
		return nil
	}

	specs := ParseBlocks(src)
	var out []Node
	for i, spec := range specs {
		if i > 0 {
			out = append(out, Linebreak())
		}
		out = append(out, FlattenSpec(spec)...)
	}
	return out
}

// FlattenSpec renders one block spec as inline nodes.
func FlattenSpec(spec BlockSpec) []Node {
	switch spec.Kind {
	case KindHeading:
		out := make([]Node, 0, len(spec.Inline))
		for _, n := range spec.Inline {
			if n.Type == TypeText {
				n.Format |= FormatBold
			}
			out = append(out, n)
		}
		return out

	case KindBulletItem:
		return append([]Node{TextNode("• ")}, spec.Inline...)

	case KindNumberItem:
		index := spec.Index
		if index < 1 {
			index = 1
		}
		return append([]Node{TextNode(fmt.Sprintf("%d. ", index))}, spec.Inline...)

	default:
		return spec.Inline
	}
}
