// Package clipboard rewrites cell-node identities on paste so a duplicated
// cell can never collide with its source during persistence.
package clipboard

import (
	"github.com/google/uuid"

	"streamdoc-engine/pkg/markup"
)

// RewriteIDs walks a pasted content fragment at every depth and assigns a
// fresh id to each cell node before insertion. Everything else — block kind,
// inline content, references pointing at other cells — is left untouched;
// only the node's own identity changes. The returned map records old → new
// ids in case the caller wants to report them.
func RewriteIDs(fragment []markup.Node) map[string]string {
	replaced := make(map[string]string)
	rewrite(fragment, replaced)
	return replaced
}

func rewrite(nodes []markup.Node, replaced map[string]string) {
	for i := range nodes {
		if nodes[i].Type == markup.TypeCell {
			fresh := uuid.New().String()
			if nodes[i].CellId != "" {
				replaced[nodes[i].CellId] = fresh
			}
			nodes[i].CellId = fresh
		}
		rewrite(nodes[i].Children, replaced)
	}
}
