package categorytree

import (
	"testing"

	"github.com/google/uuid"

	"ruletracker/internal/models"
)

// idOf returns a stable UUID for a short test label like "1" or "health".
func idOf(label string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(label))
}

func ptr(id uuid.UUID) *uuid.UUID {
	return &id
}

func category(label, name string, parent string, order int) models.Category {
	c := models.Category{ID: idOf(label), Name: name, SortOrder: order}
	if parent != "" {
		c.ParentID = ptr(idOf(parent))
	}
	return c
}

// healthFixture is the three-node tree used throughout: Health with the
// children Diet (order 0) and Exercise (order 1).
func healthFixture() []models.Category {
	return []models.Category{
		category("1", "Health", "", 0),
		category("2", "Diet", "1", 0),
		category("3", "Exercise", "1", 1),
	}
}

func names(cats []models.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Name
	}
	return out
}

func childIDs(n *Node) []uuid.UUID {
	out := make([]uuid.UUID, len(n.Children))
	for i, c := range n.Children {
		out[i] = c.Category.ID
	}
	return out
}

func equalStrings(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %v, want %v", label, got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("%s: got %v, want %v", label, got, want)
		}
	}
}
