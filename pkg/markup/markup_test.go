package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlocksHeadingAndParagraph(t *testing.T) {
	specs := ParseBlocks("# Title\n\nBody text")

	require.Len(t, specs, 2)
	assert.Equal(t, KindHeading, specs[0].Kind)
	assert.Equal(t, 1, specs[0].Level)
	assert.Equal(t, "Title", PlainText(specs[0].Inline))
	assert.Equal(t, KindParagraph, specs[1].Kind)
	assert.Equal(t, "Body text", PlainText(specs[1].Inline))
}

func TestParseBlocksInlineFormats(t *testing.T) {
	specs := ParseBlocks("plain **bold** _italic_ ~~gone~~ `code`")

	require.Len(t, specs, 1)
	var byText = map[string]int{}
	for _, n := range specs[0].Inline {
		if n.Type == TypeText {
			byText[n.Text] = n.Format
		}
	}
	assert.Equal(t, FormatBold, byText["bold"])
	assert.Equal(t, FormatItalic, byText["italic"])
	assert.Equal(t, FormatStrikethrough, byText["gone"])
	assert.Equal(t, FormatCode, byText["code"])
}

func TestParseBlocksNestedEmphasis(t *testing.T) {
	specs := ParseBlocks("**_both_**")

	require.Len(t, specs, 1)
	require.Len(t, specs[0].Inline, 1)
	assert.Equal(t, FormatBold|FormatItalic, specs[0].Inline[0].Format)
}

func TestParseBlocksLists(t *testing.T) {
	specs := ParseBlocks("- first\n- second\n\n3. third\n4. fourth")

	require.Len(t, specs, 4)
	assert.Equal(t, KindBulletItem, specs[0].Kind)
	assert.Equal(t, KindBulletItem, specs[1].Kind)
	assert.Equal(t, KindNumberItem, specs[2].Kind)
	assert.Equal(t, 3, specs[2].Index)
	assert.Equal(t, 4, specs[3].Index)
}

func TestParseBlocksNestedListFlattens(t *testing.T) {
	specs := ParseBlocks("- outer\n  - inner")

	require.Len(t, specs, 2)
	assert.Equal(t, "outer", PlainText(specs[0].Inline))
	assert.Equal(t, "inner", PlainText(specs[1].Inline))
}

func TestParseBlocksFencedCode(t *testing.T) {
	specs := ParseBlocks("```\nfirst line\nsecond line\n```")

	require.Len(t, specs, 1)
	assert.Equal(t, KindCode, specs[0].Kind)
	assert.Equal(t, "first line\nsecond line", PlainText(specs[0].Inline))
	for _, n := range specs[0].Inline {
		if n.Type == TypeText {
			assert.Equal(t, FormatCode, n.Format)
		}
	}
}

func TestParseBlocksBlockquoteFlattens(t *testing.T) {
	specs := ParseBlocks("> quoted line\n\nafter")

	require.Len(t, specs, 2)
	assert.Equal(t, KindParagraph, specs[0].Kind)
	assert.Equal(t, "quoted line", PlainText(specs[0].Inline))
}

func TestParseBlocksEmptyInputFallsBack(t *testing.T) {
	specs := ParseBlocks("")

	require.Len(t, specs, 1)
	assert.Equal(t, KindParagraph, specs[0].Kind)
	assert.Empty(t, specs[0].Inline)
}

func TestParseBlockToInlineFlattening(t *testing.T) {
	inline := ParseBlockToInline("# Title\n\nBody text")

	require.NotEmpty(t, inline)
	assert.Equal(t, TypeText, inline[0].Type)
	assert.Equal(t, "Title", inline[0].Text)
	assert.NotZero(t, inline[0].Format&FormatBold, "flattened heading text keeps bold emphasis")
	assert.Equal(t, "Title\nBody text", PlainText(inline))
}

func TestParseBlockToInlineListMarkers(t *testing.T) {
	inline := ParseBlockToInline("- item\n\n2. numbered")

	assert.Equal(t, "• item\n2. numbered", PlainText(inline))
}

// Both serializers walk the same inline model; for every supported construct
// the markdown rendering must parse back to the same runs the JSON form
// stores. A drift here corrupts divergence detection during streaming.
func TestSerializersAgree(t *testing.T) {
	samples := []string{
		"plain text",
		"**bold** middle _italic_",
		"**_stacked_**",
		"~~struck~~ and `code`",
		"line one\nline two",
		"mixed **b** plain `c` tail",
	}

	for _, src := range samples {
		specs := ParseBlocks(src)
		require.Len(t, specs, 1, src)
		inline := specs[0].Inline

		md := SerializeMarkdown(inline)
		reparsed := ParseBlocks(md)
		require.Len(t, reparsed, 1, src)
		assert.Equal(t, inline, reparsed[0].Inline, "markdown round trip for %q", src)

		kind, hydrated := HydrateCell(SerializeCell(specs[0].Kind, inline))
		assert.Equal(t, specs[0].Kind, kind, src)
		assert.Equal(t, inline, hydrated, "markup round trip for %q", src)
	}
}

func TestSerializeMarkdownAtomics(t *testing.T) {
	inline := []Node{
		{Type: TypeImage, Src: "https://example.com/x.png", Alt: "diagram"},
		Linebreak(),
		{Type: TypeMention, MentionId: "u1", Label: "Reviewer"},
	}

	assert.Equal(t, "![diagram](https://example.com/x.png)\n@Reviewer", SerializeMarkdown(inline))
}

func TestHydrateCellMarkdownFallback(t *testing.T) {
	kind, inline := HydrateCell("## Section head")

	assert.Equal(t, KindHeading, kind)
	assert.Equal(t, "Section head", PlainText(inline))
}

func TestHydrateCellMultiBlockFallbackFlattens(t *testing.T) {
	kind, inline := HydrateCell("first\n\nsecond")

	assert.Equal(t, KindParagraph, kind)
	assert.Equal(t, "first\nsecond", PlainText(inline))
}

func TestHydrateCellMalformedMarkupDegrades(t *testing.T) {
	kind, inline := HydrateCell(`{"root": not json`)

	assert.Equal(t, KindParagraph, kind)
	assert.NotEmpty(t, inline)
}

func TestLengthCountsPositions(t *testing.T) {
	inline := []Node{
		TextNode("héllo"), // runes, not bytes
		Linebreak(),
		{Type: TypeImage, Src: "x"},
	}

	assert.Equal(t, 7, Length(inline))
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty([]Node{TextNode("   "), Linebreak()}))
	assert.False(t, IsEmpty([]Node{TextNode("x")}))
	assert.False(t, IsEmpty([]Node{{Type: TypeMention, Label: "y"}}))
}
