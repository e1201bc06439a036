// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package categorytree turns flat category records into an ordered forest
// and answers questions about it: pre-order flattening, ancestor paths,
// subtree membership, and whether a drag-and-drop reparent is legal.
//
// A Tree is a value. Nothing in this package mutates a Tree after Build
// returns it; every change to the category set goes back through the
// record store and a fresh Build.
package categorytree

import (
	"cmp"
	"slices"

	"github.com/google/uuid"

	"ruletracker/internal/models"
)

// Node wraps one category and its children in display order.
type Node struct {
	Category models.Category `json:"category"`
	Children []*Node         `json:"children"`
}

// Tree is the ordered sequence of root nodes.
type Tree struct {
	Roots []*Node `json:"roots"`
}

// Build converts a flat category list into a forest.
//
// A category whose parent_id is missing, or references an id that is not in
// the list, becomes a root. Every sibling group, roots included, is sorted
// ascending by sort_order; ties keep their input order. When the input
// repeats an id, the last record wins.
//
// Build does not reject cycles. Categories caught in a parent cycle are
// never reachable from a root and so never appear in a traversal.
func Build(categories []models.Category) *Tree {
	last := make(map[uuid.UUID]int, len(categories))
	for i := range categories {
		last[categories[i].ID] = i
	}

	index := make(map[uuid.UUID]*Node, len(last))
	nodes := make([]*Node, 0, len(last))
	for i := range categories {
		if last[categories[i].ID] != i {
			continue
		}
		node := &Node{Category: categories[i], Children: []*Node{}}
		index[node.Category.ID] = node
		nodes = append(nodes, node)
	}

	tree := &Tree{Roots: []*Node{}}
	for _, node := range nodes {
		if node.Category.ParentID != nil {
			if parent, ok := index[*node.Category.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		tree.Roots = append(tree.Roots, node)
	}

	sortSiblings(tree.Roots)
	for _, node := range nodes {
		sortSiblings(node.Children)
	}
	return tree
}

func sortSiblings(nodes []*Node) {
	slices.SortStableFunc(nodes, func(a, b *Node) int {
		return cmp.Compare(a.Category.SortOrder, b.Category.SortOrder)
	})
}

// Len returns the number of nodes reachable from the roots.
func (t *Tree) Len() int {
	n := 0
	t.Walk(func(*Node, int) bool {
		n++
		return true
	})
	return n
}

// Walk visits every reachable node in pre-order, passing its depth (roots
// are depth 0). Returning false from fn stops the walk. The traversal uses
// an explicit stack, so deep hierarchies do not grow the call stack.
func (t *Tree) Walk(fn func(node *Node, depth int) bool) {
	if t == nil {
		return
	}
	type frame struct {
		node  *Node
		depth int
	}
	stack := make([]frame, 0, len(t.Roots))
	for i := len(t.Roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{t.Roots[i], 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.node, f.depth) {
			return
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
}
