package categorytree

import (
	"testing"

	"github.com/google/uuid"

	"ruletracker/internal/models"
)

func TestBuildEmpty(t *testing.T) {
	tree := Build(nil)
	if tree == nil {
		t.Fatal("Build(nil) returned nil tree")
	}
	if len(tree.Roots) != 0 {
		t.Errorf("roots: got %d, want 0", len(tree.Roots))
	}
	if tree.Len() != 0 {
		t.Errorf("len: got %d, want 0", tree.Len())
	}
}

func TestBuildHealthScenario(t *testing.T) {
	tree := Build(healthFixture())

	if len(tree.Roots) != 1 {
		t.Fatalf("roots: got %d, want 1", len(tree.Roots))
	}
	root := tree.Roots[0]
	if root.Category.ID != idOf("1") {
		t.Errorf("root: got %s, want category 1", root.Category.Name)
	}

	got := childIDs(root)
	want := []uuid.UUID{idOf("2"), idOf("3")}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("children: got %v, want %v", got, want)
	}

	equalStrings(t, "flatten", names(Flatten(tree)), []string{"Health", "Diet", "Exercise"})
}

func TestBuildInputOrderIndependent(t *testing.T) {
	// Children listed before their parent still attach to it.
	cats := []models.Category{
		category("3", "Exercise", "1", 1),
		category("2", "Diet", "1", 0),
		category("1", "Health", "", 0),
	}
	tree := Build(cats)

	if len(tree.Roots) != 1 {
		t.Fatalf("roots: got %d, want 1", len(tree.Roots))
	}
	equalStrings(t, "flatten", names(Flatten(tree)), []string{"Health", "Diet", "Exercise"})
}

func TestBuildDanglingParentBecomesRoot(t *testing.T) {
	cats := []models.Category{
		category("1", "Health", "", 0),
		category("orphan", "Orphan", "deleted-parent", 0),
	}
	tree := Build(cats)

	if len(tree.Roots) != 2 {
		t.Fatalf("roots: got %d, want 2", len(tree.Roots))
	}
	if tree.Len() != 2 {
		t.Errorf("len: got %d, want 2", tree.Len())
	}
	if Find(tree, idOf("orphan")) == nil {
		t.Error("orphan should be reachable as a root")
	}
}

func TestBuildSortsRootsAndChildren(t *testing.T) {
	cats := []models.Category{
		category("b", "B", "", 2),
		category("a", "A", "", 1),
		category("a2", "A2", "a", 5),
		category("a1", "A1", "a", -1),
		category("a3", "A3", "a", 5),
	}
	tree := Build(cats)

	// Equal sort_order keeps input order: A2 before A3.
	equalStrings(t, "flatten", names(Flatten(tree)), []string{"A", "A1", "A2", "A3", "B"})
}

func TestBuildDuplicateIDLastWins(t *testing.T) {
	cats := []models.Category{
		category("1", "Old name", "", 0),
		category("1", "New name", "", 0),
	}
	tree := Build(cats)

	if tree.Len() != 1 {
		t.Fatalf("len: got %d, want 1", tree.Len())
	}
	if got := tree.Roots[0].Category.Name; got != "New name" {
		t.Errorf("name: got %q, want %q", got, "New name")
	}
}

func TestBuildExcludesCycles(t *testing.T) {
	cats := []models.Category{
		category("root", "Root", "", 0),
		category("x", "X", "y", 0),
		category("y", "Y", "x", 0),
		category("self", "Self", "self", 0),
	}
	tree := Build(cats)

	if tree.Len() != 1 {
		t.Errorf("len: got %d, want 1 (cycle members unreachable)", tree.Len())
	}
	equalStrings(t, "flatten", names(Flatten(tree)), []string{"Root"})
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	cats := healthFixture()
	cats[0], cats[2] = cats[2], cats[0]
	before := append([]models.Category(nil), cats...)

	Build(cats)

	for i := range cats {
		if cats[i].ID != before[i].ID || cats[i].SortOrder != before[i].SortOrder {
			t.Fatalf("input reordered or modified at %d", i)
		}
	}
}

func TestBuildReturnsFreshNodes(t *testing.T) {
	cats := healthFixture()
	a := Build(cats)
	b := Build(cats)

	a.Roots[0].Children = nil
	if len(b.Roots[0].Children) != 2 {
		t.Error("rebuilds must not share nodes")
	}
}

func TestWalkDepthsAndEarlyStop(t *testing.T) {
	tree := Build(healthFixture())

	depths := Depths(tree)
	if depths[idOf("1")] != 0 || depths[idOf("2")] != 1 || depths[idOf("3")] != 1 {
		t.Errorf("depths: got %v", depths)
	}

	visited := 0
	tree.Walk(func(*Node, int) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("walk should stop after fn returns false: visited %d", visited)
	}
}

func TestWalkDeepChain(t *testing.T) {
	// A long parent chain must not depend on call-stack recursion.
	const depth = 20000
	cats := make([]models.Category, depth)
	for i := range cats {
		cats[i] = models.Category{ID: uuid.New()}
		if i > 0 {
			cats[i].ParentID = ptr(cats[i-1].ID)
		}
	}
	tree := Build(cats)

	if tree.Len() != depth {
		t.Fatalf("len: got %d, want %d", tree.Len(), depth)
	}
	path := FindPath(tree, cats[depth-1].ID)
	if len(path) != depth {
		t.Errorf("path length: got %d, want %d", len(path), depth)
	}
}
