package categorytree

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"ruletracker/internal/models"
)

// genCategories draws an acyclic flat list in arbitrary order. Parents are
// picked among earlier-generated categories, with some left as roots and some
// pointing at ids that do not exist.
func genCategories(t *rapid.T) []models.Category {
	n := rapid.IntRange(0, 40).Draw(t, "n")
	cats := make([]models.Category, n)
	for i := range cats {
		cats[i] = models.Category{
			ID:        idOf(fmt.Sprintf("cat-%d", i)),
			SortOrder: rapid.IntRange(-3, 5).Draw(t, "sort_order"),
		}
		switch rapid.IntRange(0, 3).Draw(t, "parent_kind") {
		case 0:
			// root
		case 1:
			cats[i].ParentID = ptr(idOf(fmt.Sprintf("dangling-%d", i)))
		default:
			if i > 0 {
				p := rapid.IntRange(0, i-1).Draw(t, "parent")
				cats[i].ParentID = ptr(cats[p].ID)
			}
		}
	}
	if n == 0 {
		return cats
	}
	return rapid.Permutation(cats).Draw(t, "order")
}

func TestPropFlattenIsPermutation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cats := genCategories(t)
		flat := Flatten(Build(cats))

		if len(flat) != len(cats) {
			t.Fatalf("flatten length: got %d, want %d", len(flat), len(cats))
		}
		seen := make(map[uuid.UUID]int)
		for _, c := range flat {
			seen[c.ID]++
		}
		for _, c := range cats {
			if seen[c.ID] != 1 {
				t.Fatalf("id %s appears %d times", c.ID, seen[c.ID])
			}
		}
	})
}

func TestPropParentsPrecedeChildren(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cats := genCategories(t)
		tree := Build(cats)

		pos := make(map[uuid.UUID]int)
		for i, id := range CollectIDs(tree) {
			pos[id] = i
		}
		present := make(map[uuid.UUID]bool)
		for _, c := range cats {
			present[c.ID] = true
		}

		for _, c := range cats {
			if c.ParentID == nil || !present[*c.ParentID] {
				continue
			}
			if pos[*c.ParentID] >= pos[c.ID] {
				t.Fatalf("parent %s at %d not before child %s at %d",
					*c.ParentID, pos[*c.ParentID], c.ID, pos[c.ID])
			}
			parent := Find(tree, *c.ParentID)
			found := false
			for _, child := range parent.Children {
				if child.Category.ID == c.ID {
					found = true
				}
			}
			if !found {
				t.Fatalf("child %s missing from parent %s", c.ID, *c.ParentID)
			}
		}
	})
}

func TestPropUnresolvedParentsAreRoots(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cats := genCategories(t)
		tree := Build(cats)

		present := make(map[uuid.UUID]bool)
		for _, c := range cats {
			present[c.ID] = true
		}
		roots := make(map[uuid.UUID]bool)
		for _, r := range tree.Roots {
			roots[r.Category.ID] = true
		}

		for _, c := range cats {
			unresolved := c.ParentID == nil || !present[*c.ParentID]
			if unresolved != roots[c.ID] {
				t.Fatalf("category %s: unresolved parent %v, root %v", c.ID, unresolved, roots[c.ID])
			}
		}
	})
}

func TestPropSiblingsSorted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := Build(genCategories(t))

		check := func(nodes []*Node) {
			for i := 1; i < len(nodes); i++ {
				if nodes[i-1].Category.SortOrder > nodes[i].Category.SortOrder {
					t.Fatalf("siblings out of order: %d before %d",
						nodes[i-1].Category.SortOrder, nodes[i].Category.SortOrder)
				}
			}
		}
		check(tree.Roots)
		tree.Walk(func(n *Node, _ int) bool {
			check(n.Children)
			return true
		})
	})
}

func TestPropFindPathFollowsEdges(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cats := genCategories(t)
		tree := Build(cats)

		if got := FindPath(tree, idOf("never-generated")); len(got) != 0 {
			t.Fatalf("path to unknown id: got %d entries", len(got))
		}
		if len(cats) == 0 {
			return
		}

		target := rapid.SampledFrom(cats).Draw(t, "target")
		path := FindPath(tree, target.ID)
		if len(path) == 0 || path[len(path)-1].ID != target.ID {
			t.Fatalf("path does not end at target %s", target.ID)
		}
		if !isRoot(tree, path[0].ID) {
			t.Fatalf("path does not start at a root")
		}
		for i := 1; i < len(path); i++ {
			parent := Find(tree, path[i-1].ID)
			edge := false
			for _, c := range parent.Children {
				if c.Category.ID == path[i].ID {
					edge = true
				}
			}
			if !edge {
				t.Fatalf("no edge %s -> %s", path[i-1].ID, path[i].ID)
			}
		}
	})
}

func TestPropPlanMoveRejectsExactlySubtree(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cats := genCategories(t)
		if len(cats) == 0 {
			return
		}
		tree := Build(cats)

		a := rapid.SampledFrom(cats).Draw(t, "dragged")
		b := rapid.SampledFrom(cats).Draw(t, "target")

		inSubtree := false
		for _, id := range SubtreeIDs(tree, a.ID) {
			if id == b.ID {
				inSubtree = true
			}
		}

		plan, err := PlanMove(tree, a.ID, b.ID)
		if inSubtree && err == nil {
			t.Fatalf("move of %s under its subtree member %s accepted", a.ID, b.ID)
		}
		if !inSubtree && err != nil {
			t.Fatalf("legal move of %s under %s rejected: %v", a.ID, b.ID, err)
		}
		if err == nil {
			for _, c := range Find(tree, b.ID).Children {
				if c.Category.ID != a.ID && c.Category.SortOrder >= plan.SortOrder {
					t.Fatalf("plan sort_order %d not after sibling %d", plan.SortOrder, c.Category.SortOrder)
				}
			}
		}
	})
}

func isRoot(tree *Tree, id uuid.UUID) bool {
	for _, r := range tree.Roots {
		if r.Category.ID == id {
			return true
		}
	}
	return false
}
