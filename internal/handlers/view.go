package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"ruletracker/internal/categorytree"
	"ruletracker/internal/middleware"
	"ruletracker/internal/models"
	"ruletracker/internal/session"
)

// viewRow is one visible line of the category tree.
type viewRow struct {
	Category    models.Category `json:"category"`
	Depth       int             `json:"depth"`
	HasChildren bool            `json:"has_children"`
	Expanded    bool            `json:"expanded"`
	Selected    bool            `json:"selected"`
}

type viewResponse struct {
	View categorytree.View `json:"view"`
	Rows []viewRow         `json:"rows"`
}

type selectInput struct {
	ID *uuid.UUID `json:"id"`
}

type toggleInput struct {
	ID uuid.UUID `json:"id"`
}

type modalInput struct {
	Kind     categorytree.ModalKind `json:"kind"`
	TargetID *uuid.UUID             `json:"target_id"`
}

// GetView returns the client's view state and the rows it makes visible.
func (a *API) GetView(w http.ResponseWriter, r *http.Request) {
	a.updateView(w, r, func(_ *categorytree.Tree, v categorytree.View) categorytree.View { return v })
}

// SelectCategory selects a category, or clears the selection when id is
// absent, and expands its ancestors so it is visible.
func (a *API) SelectCategory(w http.ResponseWriter, r *http.Request) {
	var in selectInput
	if !decodeJSON(w, r, &in, true) {
		return
	}
	a.updateView(w, r, func(t *categorytree.Tree, v categorytree.View) categorytree.View {
		v = v.Select(in.ID)
		if in.ID != nil {
			v = v.Reveal(t, *in.ID)
		}
		return v
	})
}

// ToggleCategory flips the expansion of one category.
func (a *API) ToggleCategory(w http.ResponseWriter, r *http.Request) {
	var in toggleInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	if in.ID == uuid.Nil {
		middleware.WriteError(w, http.StatusBadRequest, "Category is required.")
		return
	}
	a.updateView(w, r, func(_ *categorytree.Tree, v categorytree.View) categorytree.View {
		return v.ToggleExpand(in.ID)
	})
}

// OpenModal records which form the client has open.
func (a *API) OpenModal(w http.ResponseWriter, r *http.Request) {
	var in modalInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	if !categorytree.ValidModal(in.Kind) {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown modal kind.")
		return
	}
	a.updateView(w, r, func(_ *categorytree.Tree, v categorytree.View) categorytree.View {
		return v.OpenModal(in.Kind, in.TargetID)
	})
}

// CloseModal clears the open form.
func (a *API) CloseModal(w http.ResponseWriter, r *http.Request) {
	a.updateView(w, r, func(_ *categorytree.Tree, v categorytree.View) categorytree.View {
		return v.CloseModal()
	})
}

// ResetView discards the client's view session. The next view request
// starts from a collapsed tree with nothing selected.
func (a *API) ResetView(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		a.fail(w, "reset view", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateView loads the session, applies fn against the current tree, saves
// the result and answers with the new view.
func (a *API) updateView(w http.ResponseWriter, r *http.Request, fn func(*categorytree.Tree, categorytree.View) categorytree.View) {
	ctx := r.Context()
	id, data, err := a.sessions.Load(ctx, w, r)
	if err != nil {
		a.fail(w, "load view", err)
		return
	}
	tree, err := a.loadTree(ctx)
	if err != nil {
		a.fail(w, "view tree", err)
		return
	}

	next := fn(tree, data.View)
	if err := a.saveView(ctx, id, data, next); err != nil {
		a.fail(w, "save view", err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{View: next, Rows: rows(tree, next)})
}

func (a *API) saveView(ctx context.Context, id string, data *session.Data, v categorytree.View) error {
	data.View = v
	return a.sessions.Save(ctx, id, data)
}

// rows lists the visible nodes with their display attributes.
func rows(t *categorytree.Tree, v categorytree.View) []viewRow {
	depths := categorytree.Depths(t)
	visible := v.Visible(t)
	out := make([]viewRow, 0, len(visible))
	for _, n := range visible {
		out = append(out, viewRow{
			Category:    n.Category,
			Depth:       depths[n.Category.ID],
			HasChildren: len(n.Children) > 0,
			Expanded:    v.Expanded.IsExpanded(n.Category.ID),
			Selected:    v.Selected != nil && *v.Selected == n.Category.ID,
		})
	}
	return out
}
