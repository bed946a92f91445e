package utils

import (
	"strings"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/pkg/markup"
)

// BuildPriorContext renders the cells above an insertion point as markdown
// for a generation request, trimming from the TOP until the result fits the
// rune budget. The cells nearest the prompt matter most, so the oldest
// context is dropped first. Cells are assumed to be in document order.
func BuildPriorContext(cells []*entity.Cell, budget int) string {
	if len(cells) == 0 || budget <= 0 {
		return ""
	}

	// 1. Render each cell to markdown.
	rendered := make([]string, 0, len(cells))
	for _, cell := range cells {
		kind, inline := markup.HydrateCell(cell.Content)
		md := markup.SerializeMarkdown(inline)
		if md == "" {
			continue
		}
		rendered = append(rendered, decorate(kind, md))
	}

	// 2. Keep the newest cells that fit.
	total := 0
	start := len(rendered)
	for i := len(rendered) - 1; i >= 0; i-- {
		cost := len([]rune(rendered[i])) + 2 // separator
		if total+cost > budget {
			break
		}
		total += cost
		start = i
	}

	return strings.Join(rendered[start:], "\n\n")
}

// decorate reapplies the block-level markdown the inline serializer does
// not know about.
func decorate(kind markup.BlockKind, md string) string {
	switch kind {
	case markup.KindHeading:
		return "# " + md
	case markup.KindBulletItem:
		return "- " + md
	case markup.KindNumberItem:
		return "1. " + md
	case markup.KindCode:
		return "```\n" + md + "\n```"
	default:
		return md
	}
}
