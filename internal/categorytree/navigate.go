// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categorytree

import (
	"github.com/google/uuid"

	"ruletracker/internal/models"
)

// Flatten returns every reachable category in pre-order: each node before
// its children, children in stored order.
func Flatten(t *Tree) []models.Category {
	result := []models.Category{}
	t.Walk(func(n *Node, _ int) bool {
		result = append(result, n.Category)
		return true
	})
	return result
}

// CollectIDs returns the ids of every reachable category in the same order
// as Flatten.
func CollectIDs(t *Tree) []uuid.UUID {
	ids := []uuid.UUID{}
	t.Walk(func(n *Node, _ int) bool {
		ids = append(ids, n.Category.ID)
		return true
	})
	return ids
}

// FindPath returns the categories from a root down to the category with the
// given id, inclusive at both ends. It returns an empty slice when the id is
// not in the tree; a missing category is a normal outcome, not an error.
func FindPath(t *Tree, id uuid.UUID) []models.Category {
	var path []models.Category
	found := false
	t.Walk(func(n *Node, depth int) bool {
		path = append(path[:depth], n.Category)
		if n.Category.ID == id {
			found = true
			return false
		}
		return true
	})
	if !found {
		return []models.Category{}
	}
	return path
}

// Find returns the node for id, or nil.
func Find(t *Tree, id uuid.UUID) *Node {
	var found *Node
	t.Walk(func(n *Node, _ int) bool {
		if n.Category.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// SubtreeIDs returns id followed by the ids of all its descendants in
// pre-order. It returns an empty slice when id is not in the tree.
func SubtreeIDs(t *Tree, id uuid.UUID) []uuid.UUID {
	node := Find(t, id)
	if node == nil {
		return []uuid.UUID{}
	}
	return CollectIDs(&Tree{Roots: []*Node{node}})
}

// Depths maps each reachable category id to its depth, roots at 0.
func Depths(t *Tree) map[uuid.UUID]int {
	depths := make(map[uuid.UUID]int)
	t.Walk(func(n *Node, depth int) bool {
		depths[n.Category.ID] = depth
		return true
	})
	return depths
}
