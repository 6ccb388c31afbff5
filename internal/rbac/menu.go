package rbac

import "sort"

// BuildMenuTree groups permission records into a navigation hierarchy.
// BUTTON entries never appear in menus; that filter is owned here, not by
// callers. Nodes whose parent is missing from the input surface as roots.
func BuildMenuTree(perms []Permission) []*MenuNode {
	nodes := make(map[int64]*MenuNode, len(perms))
	order := make([]*MenuNode, 0, len(perms))
	for _, p := range perms {
		if p.Type == TypeButton {
			continue
		}
		node := &MenuNode{
			ID:       p.ID,
			ParentID: p.ParentID,
			Name:     p.Name,
			Path:     p.Path,
			Icon:     p.Icon,
			Sort:     p.Sort,
		}
		nodes[p.ID] = node
		order = append(order, node)
	}

	var roots []*MenuNode
	for _, node := range order {
		if parent, ok := nodes[node.ParentID]; ok && node.ParentID != node.ID {
			parent.Children = append(parent.Children, node)
			continue
		}
		roots = append(roots, node)
	}

	sortMenu(roots)
	for _, node := range order {
		sortMenu(node.Children)
	}
	return roots
}

func sortMenu(nodes []*MenuNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Sort != nodes[j].Sort {
			return nodes[i].Sort < nodes[j].Sort
		}
		return nodes[i].ID < nodes[j].ID
	})
}
