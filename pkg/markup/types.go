package markup

// Node types used in serialized cell content. A cell's markup document is
// {"root": {...}} whose children are inline nodes only; block structure never
// nests inside a cell. TypeCell appears exclusively inside clipboard
// fragments, where whole cells travel as part of the pasted payload.
const (
	TypeRoot      = "root"
	TypeText      = "text"
	TypeLinebreak = "linebreak"
	TypeImage     = "image"
	TypeMention   = "mention"
	TypeCell      = "cell"
)

// Node represents any node in the markup tree.
// Using omitempty keeps serialized cells compact; absent fields mean the node
// kind simply doesn't carry them.
type Node struct {
	Type     string `json:"type"`
	Version  int    `json:"version,omitempty"`
	Children []Node `json:"children,omitempty"`

	// Text specific
	Text   string `json:"text,omitempty"`
	Format int    `json:"format,omitempty"` // bitmask, see Format* constants
	Mode   string `json:"mode,omitempty"`

	// Image specific
	Src string `json:"src,omitempty"`
	Alt string `json:"alt,omitempty"`

	// Mention specific
	MentionId string `json:"mentionId,omitempty"`
	Label     string `json:"label,omitempty"`

	// Cell node specific (clipboard fragments only)
	CellId    string `json:"cellId,omitempty"`
	CellType  string `json:"cellType,omitempty"`
	BlockKind string `json:"blockKind,omitempty"`
}

// Constants for the text format bitmask.
const (
	FormatBold          = 1
	FormatItalic        = 2
	FormatStrikethrough = 4
	FormatUnderline     = 8
	FormatCode          = 16
)

// Root wraps the top-level structure of a serialized cell.
type Root struct {
	Root Node `json:"root"`
}

// BlockKind classifies the logical block a cell renders as. It is metadata on
// the cell, never nesting structure inside it.
type BlockKind string

const (
	KindParagraph  BlockKind = "paragraph"
	KindHeading    BlockKind = "heading"
	KindBulletItem BlockKind = "bulletItem"
	KindNumberItem BlockKind = "numberItem"
	KindCode       BlockKind = "code"
)

// BlockSpec is one logical block produced by splitting markdown. Each spec
// becomes its own cell on streaming completion.
type BlockSpec struct {
	Kind   BlockKind
	Level  int // heading level, 1-6
	Index  int // 1-based position for numbered items
	Inline []Node
}

// TextNode builds a plain text run.
func TextNode(text string) Node {
	return Node{Type: TypeText, Text: text}
}

// FormattedText builds a text run with the given format bitmask.
func FormattedText(text string, format int) Node {
	return Node{Type: TypeText, Text: text, Format: format}
}

// Linebreak builds a line break node.
func Linebreak() Node {
	return Node{Type: TypeLinebreak}
}

// IsAtomic reports whether a node occupies exactly one cursor position and
// counts as content (images, mentions). Line breaks are positions but not
// content.
func IsAtomic(n Node) bool {
	return n.Type == TypeImage || n.Type == TypeMention
}

// PlainText concatenates the text of every run, with line breaks as newlines.
func PlainText(inline []Node) string {
	out := ""
	for _, n := range inline {
		switch n.Type {
		case TypeText:
			out += n.Text
		case TypeLinebreak:
			out += "\n"
		default:
			out += PlainText(n.Children)
		}
	}
	return out
}

// Length is the number of valid cursor positions spanned by the inline
// content: one per rune of text, one per line break, one per atomic node.
func Length(inline []Node) int {
	total := 0
	for _, n := range inline {
		switch n.Type {
		case TypeText:
			total += len([]rune(n.Text))
		case TypeLinebreak:
			total++
		default:
			if IsAtomic(n) {
				total++
			} else {
				total += Length(n.Children)
			}
		}
	}
	return total
}

// IsEmpty reports whether inline content is semantically empty: no
// non-whitespace text and no atomic nodes. Line breaks alone do not count.
func IsEmpty(inline []Node) bool {
	for _, n := range inline {
		switch n.Type {
		case TypeText:
			for _, r := range n.Text {
				if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
					return false
				}
			}
		case TypeLinebreak:
			// not content
		default:
			if IsAtomic(n) {
				return false
			}
			if !IsEmpty(n.Children) {
				return false
			}
		}
	}
	return true
}
