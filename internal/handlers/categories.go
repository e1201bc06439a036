// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"ruletracker/internal/categorytree"
	"ruletracker/internal/middleware"
	"ruletracker/internal/models"
	"ruletracker/internal/store"
)

// ListCategories returns every category as a flat list in sibling order.
func (a *API) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := a.loadCategories(r.Context())
	if err != nil {
		a.fail(w, "list categories", err)
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// CategoryTree returns the pre-built forest.
func (a *API) CategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := a.loadTree(r.Context())
	if err != nil {
		a.fail(w, "category tree", err)
		return
	}
	if tree.Roots == nil {
		tree.Roots = []*categorytree.Node{}
	}
	writeJSON(w, http.StatusOK, tree)
}

// GetCategory returns a single category.
func (a *API) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := a.categories.FindByID(r.Context(), id)
	if err != nil {
		a.fail(w, "find category", err)
		return
	}
	if c == nil {
		middleware.WriteError(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCategory adds a category as the last child of parent_id, or as the
// last top-level category when parent_id is absent.
func (a *API) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	if msg := validateCategory(&in); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := a.categories.Create(r.Context(), in.Name, in.ParentID)
	if err != nil {
		a.fail(w, "create category", err)
		return
	}
	a.invalidate(r.Context(), "category", created.ID, "create")
	slog.Info("category created", "id", created.ID, "name", created.Name)
	writeJSON(w, http.StatusCreated, created)
}

// UpdateCategory renames a category.
func (a *API) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in categoryInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	if msg := validateCategory(&in); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := a.categories.Rename(r.Context(), id, in.Name)
	if err != nil {
		a.fail(w, "rename category", err)
		return
	}
	a.invalidate(r.Context(), "category", id, "update")
	writeJSON(w, http.StatusOK, updated)
}

// DeleteCategory removes a category together with its descendants and
// their rules.
func (a *API) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.categories.Delete(r.Context(), id); err != nil {
		a.fail(w, "delete category", err)
		return
	}
	a.invalidate(r.Context(), "category", id, "delete")
	slog.Info("category deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// CategoryChildren returns the direct children of a category.
func (a *API) CategoryChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	children, err := a.categories.Children(r.Context(), id)
	if err != nil {
		a.fail(w, "category children", err)
		return
	}
	if children == nil {
		children = []models.Category{}
	}
	writeJSON(w, http.StatusOK, children)
}

// CategoryPath returns the categories from the top level down to id. An
// unknown id yields an empty list, not an error.
func (a *API) CategoryPath(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tree, err := a.loadTree(r.Context())
	if err != nil {
		a.fail(w, "category path", err)
		return
	}
	writeJSON(w, http.StatusOK, categorytree.FindPath(tree, id))
}

// MoveCategory reparents a category. Moves under itself or one of its
// descendants are rejected with 400 and leave the hierarchy untouched.
func (a *API) MoveCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in moveInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	if msg := validateMove(&in); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	req := models.MoveRequest{CategoryID: id, NewParentID: in.parent(), SortOrder: in.SortOrder}
	moved, err := a.categories.Move(r.Context(), req)
	if err != nil {
		slog.Warn("move rejected", "id", id, "new_parent_id", req.NewParentID, "error", err)
		a.fail(w, "move category", err)
		return
	}
	a.invalidate(r.Context(), "category", id, "move")
	slog.Info("category moved", "id", id, "new_parent_id", req.NewParentID, "sort_order", req.SortOrder)
	writeJSON(w, http.StatusOK, moved)
}

// ReorderCategories applies a batch of parent and sort_order changes in
// one transaction. The whole batch is rejected if it would form a cycle.
func (a *API) ReorderCategories(w http.ResponseWriter, r *http.Request) {
	var items []store.ReorderItem
	if !decodeJSON(w, r, &items, false) {
		return
	}
	if len(items) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "No items to reorder.")
		return
	}
	for _, item := range items {
		if item.Order < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Sort order must be at least 0.")
			return
		}
	}

	if err := a.categories.Reorder(r.Context(), items); err != nil {
		a.fail(w, "reorder categories", err)
		return
	}
	for _, item := range items {
		a.invalidate(r.Context(), "category", item.ID, "reorder")
	}
	w.WriteHeader(http.StatusNoContent)
}
