// Package workspace holds a client's last known snapshot of the record
// store. The snapshot is never patched locally: every mutation is sent to
// the server and followed by a full reload.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ruletracker/internal/apiclient"
	"ruletracker/internal/categorytree"
	"ruletracker/internal/models"
)

// Client is the subset of the API client the workspace needs.
type Client interface {
	Categories(ctx context.Context) ([]models.Category, error)
	Rules(ctx context.Context, q apiclient.RuleQuery) ([]models.Rule, error)
	MoveCategory(ctx context.Context, req models.MoveRequest) (*models.Category, error)
}

// Workspace is safe for concurrent use.
type Workspace struct {
	client Client

	mu     sync.RWMutex
	tree   *categorytree.Tree
	rules  []models.Rule
	view   categorytree.View
	sortBy models.RuleSortField
	dir    models.SortDirection
	loaded bool
}

// New creates an empty workspace. Call Reload before reading it.
func New(client Client) *Workspace {
	return &Workspace{
		client: client,
		tree:   categorytree.Build(nil),
		view:   categorytree.View{Expanded: categorytree.NewExpansion()},
		sortBy: models.SortByFollowCount,
		dir:    models.SortDesc,
	}
}

// Reload fetches the full category list and the rules for the current
// selection concurrently and rebuilds the tree. On failure the previous
// snapshot is kept and the error is returned.
func (w *Workspace) Reload(ctx context.Context) error {
	w.mu.RLock()
	q := apiclient.RuleQuery{CategoryID: w.view.Selected, SortBy: w.sortBy, Direction: w.dir}
	w.mu.RUnlock()

	var (
		cats  []models.Category
		rules []models.Rule
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cats, err = w.client.Categories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rules, err = w.client.Rules(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Warn("workspace reload failed, keeping previous snapshot", "error", err)
		return fmt.Errorf("reload workspace: %w", err)
	}

	tree := categorytree.Build(cats)

	w.mu.Lock()
	w.tree = tree
	w.rules = rules
	w.loaded = true
	w.mu.Unlock()
	return nil
}

// Loaded reports whether at least one reload has succeeded.
func (w *Workspace) Loaded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loaded
}

// Tree returns the current snapshot. Callers must not modify it.
func (w *Workspace) Tree() *categorytree.Tree {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tree
}

// Rules returns the rules loaded for the current selection.
func (w *Workspace) Rules() []models.Rule {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rules
}

// Path returns the ancestor chain of id in the current snapshot, or an
// empty slice when id is unknown.
func (w *Workspace) Path(id uuid.UUID) []models.Category {
	return categorytree.FindPath(w.Tree(), id)
}

// View returns the current presentation state.
func (w *Workspace) View() categorytree.View {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.view
}

// Select changes the selected category and reveals it. A nil id selects
// all categories. The rule list follows on the next Reload.
func (w *Workspace) Select(id *uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.view = w.view.Select(id)
	if id != nil {
		w.view = w.view.Reveal(w.tree, *id)
	}
}

// ToggleExpand flips the expansion of one node.
func (w *Workspace) ToggleExpand(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.view = w.view.ToggleExpand(id)
}

// SortRules sets the rule ordering used by subsequent reloads.
func (w *Workspace) SortRules(by models.RuleSortField, dir models.SortDirection) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sortBy = by
	w.dir = dir
}

// Visible returns the nodes the current view shows, in display order.
func (w *Workspace) Visible() []*categorytree.Node {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.view.Visible(w.tree)
}

// Move drops dragged onto target. The move is planned against the current
// snapshot; a rejected plan returns its error without contacting the
// server.
func (w *Workspace) Move(ctx context.Context, draggedID, targetID uuid.UUID) (*models.MoveRequest, error) {
	plan, err := categorytree.PlanMove(w.Tree(), draggedID, targetID)
	if err != nil {
		return nil, err
	}
	return plan, w.send(ctx, plan)
}

// MoveToRoot moves dragged to the end of the top level.
func (w *Workspace) MoveToRoot(ctx context.Context, draggedID uuid.UUID) (*models.MoveRequest, error) {
	plan, err := categorytree.PlanMoveToRoot(w.Tree(), draggedID)
	if err != nil {
		return nil, err
	}
	return plan, w.send(ctx, plan)
}

func (w *Workspace) send(ctx context.Context, plan *models.MoveRequest) error {
	if _, err := w.client.MoveCategory(ctx, *plan); err != nil {
		return fmt.Errorf("move category: %w", err)
	}
	return w.Reload(ctx)
}

// Mutate runs fn against the server and reloads on success. A failed
// mutation leaves the snapshot untouched.
func (w *Workspace) Mutate(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	return w.Reload(ctx)
}
