package markup

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SerializeMarkup renders inline content as the canonical JSON markup form
// stored in a cell's Content field. The block kind rides on the root node;
// it is an attribute, not structure.
func SerializeMarkup(inline []Node) string {
	return SerializeCell(KindParagraph, inline)
}

// SerializeCell is SerializeMarkup with an explicit block kind.
func SerializeCell(kind BlockKind, inline []Node) string {
	if kind == "" {
		kind = KindParagraph
	}
	doc := Root{Root: Node{Type: TypeRoot, Version: 1, BlockKind: string(kind), Children: inline}}
	data, err := json.Marshal(doc)
	if err != nil {
		// Node contains only marshalable fields; this path is unreachable in
		// practice but the fallback keeps content non-destructive.
		return SerializeMarkdown(inline)
	}
	return string(data)
}

// SerializeMarkdown renders inline content as markdown. This walker is fully
// independent of SerializeMarkup; the two paths must agree for every
// supported construct (verified by property test).
func SerializeMarkdown(inline []Node) string {
	var sb strings.Builder
	for _, n := range inline {
		writeMarkdown(n, &sb)
	}
	return sb.String()
}

func writeMarkdown(node Node, sb *strings.Builder) {
	switch node.Type {
	case TypeText:
		writeText(node, sb)

	case TypeLinebreak:
		sb.WriteString("\n")

	case TypeImage:
		sb.WriteString(fmt.Sprintf("![%s](%s)", node.Alt, node.Src))

	case TypeMention:
		sb.WriteString("@" + node.Label)

	default:
		for _, child := range node.Children {
			writeMarkdown(child, sb)
		}
	}
}

func writeText(node Node, sb *strings.Builder) {
	isBold := (node.Format & FormatBold) != 0
	isItalic := (node.Format & FormatItalic) != 0
	isUnderline := (node.Format & FormatUnderline) != 0
	isCode := (node.Format & FormatCode) != 0
	isStrike := (node.Format & FormatStrikethrough) != 0

	// Apply wrappers (Code > Bold > Italic > Underline > Strike).
	// Markdown has no native underline, so HTML <u> is used.
	if isCode {
		sb.WriteString("`")
	}
	if isBold {
		sb.WriteString("**")
	}
	if isItalic {
		sb.WriteString("_")
	}
	if isUnderline {
		sb.WriteString("<u>")
	}
	if isStrike {
		sb.WriteString("~~")
	}

	sb.WriteString(node.Text)

	if isStrike {
		sb.WriteString("~~")
	}
	if isUnderline {
		sb.WriteString("</u>")
	}
	if isItalic {
		sb.WriteString("_")
	}
	if isBold {
		sb.WriteString("**")
	}
	if isCode {
		sb.WriteString("`")
	}
}

// HydrateCell recovers the block kind and inline nodes from a cell's stored
// content. Content written by this engine is JSON markup; anything else
// (legacy rows, raw generator output) is treated as markdown. Unparseable
// input degrades to a single plain-text run, never an error.
func HydrateCell(content string) (BlockKind, []Node) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return KindParagraph, nil
	}

	if strings.HasPrefix(trimmed, `{"root":`) {
		var doc Root
		if err := json.Unmarshal([]byte(trimmed), &doc); err == nil {
			kind := BlockKind(doc.Root.BlockKind)
			if kind == "" {
				kind = KindParagraph
			}
			return kind, doc.Root.Children
		}
		// Looked like markup but wasn't valid; fall through to markdown.
	}

	specs := ParseBlocks(content)
	if len(specs) == 1 {
		return specs[0].Kind, specs[0].Inline
	}

	if inline := ParseBlockToInline(content); len(inline) > 0 {
		return KindParagraph, inline
	}
	return KindParagraph, []Node{TextNode(content)}
}

// HydrateInline is HydrateCell for callers that only need the content.
func HydrateInline(content string) []Node {
	_, inline := HydrateCell(content)
	return inline
}
