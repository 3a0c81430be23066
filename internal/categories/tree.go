package categories

import (
	"sort"

	"github.com/google/uuid"

	"github.com/calderhq/storefront-backend/pkg/db/models"
)

// BuildForest assembles parent/child links from a flat row set in one
// pass over an id-indexed map. Rows whose parent is outside the set
// become roots. The input order does not matter; children are sorted by
// sort order, then name.
func BuildForest(rows []models.Category) []*models.Category {
	nodes := make(map[uuid.UUID]*models.Category, len(rows))
	for i := range rows {
		row := rows[i]
		row.Children = nil
		nodes[row.ID] = &row
	}

	var roots []*models.Category
	for _, node := range nodes {
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortNodes(roots)
	for _, node := range nodes {
		sortNodes(node.Children)
	}
	return roots
}

func sortNodes(nodes []*models.Category) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].Name < nodes[j].Name
	})
}
