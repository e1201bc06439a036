// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categorytree

import (
	"errors"

	"github.com/google/uuid"

	"ruletracker/internal/models"
)

// Move rejections. These are expected outcomes of a drag-and-drop gesture,
// not faults: the caller simply sends nothing to the record store.
var (
	ErrSelfMove        = errors.New("category cannot be moved under itself")
	ErrCyclicMove      = errors.New("category cannot be moved under its own descendant")
	ErrUnknownCategory = errors.New("category not found in tree")
)

// ValidateMove reports whether the category id may take newParentID as its
// parent. A nil newParentID (move to root) is legal for any known category.
func ValidateMove(t *Tree, id uuid.UUID, newParentID *uuid.UUID) error {
	if newParentID != nil && *newParentID == id {
		return ErrSelfMove
	}
	if Find(t, id) == nil {
		return ErrUnknownCategory
	}
	if newParentID == nil {
		return nil
	}
	path := FindPath(t, *newParentID)
	if len(path) == 0 {
		return ErrUnknownCategory
	}
	for _, ancestor := range path {
		if ancestor.ID == id {
			return ErrCyclicMove
		}
	}
	return nil
}

// PlanMove decides whether dropping draggedID onto targetID is legal and,
// if so, returns the request that reparents draggedID under targetID as the
// last child. The tree is left untouched.
func PlanMove(t *Tree, draggedID, targetID uuid.UUID) (*models.MoveRequest, error) {
	if err := ValidateMove(t, draggedID, &targetID); err != nil {
		return nil, err
	}
	target := Find(t, targetID)
	parent := targetID
	return &models.MoveRequest{
		CategoryID:  draggedID,
		NewParentID: &parent,
		SortOrder:   appendOrder(target.Children, draggedID),
	}, nil
}

// PlanMoveToRoot returns the request that makes draggedID the last root.
func PlanMoveToRoot(t *Tree, draggedID uuid.UUID) (*models.MoveRequest, error) {
	if err := ValidateMove(t, draggedID, nil); err != nil {
		return nil, err
	}
	return &models.MoveRequest{
		CategoryID: draggedID,
		SortOrder:  appendOrder(t.Roots, draggedID),
	}, nil
}

// appendOrder returns a sort_order strictly greater than every sibling's,
// ignoring the node being moved.
func appendOrder(siblings []*Node, moving uuid.UUID) int {
	next := 0
	for _, s := range siblings {
		if s.Category.ID == moving {
			continue
		}
		if s.Category.SortOrder >= next {
			next = s.Category.SortOrder + 1
		}
	}
	return next
}
