// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is one node of the user's rule hierarchy. A nil ParentID marks
// a root category. SortOrder orders siblings and is not globally unique.
type Category struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	SortOrder int        `json:"sort_order"`
}

// IsRoot reports whether the category has no parent reference.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// HasParent reports whether the category's parent reference equals id.
func (c *Category) HasParent(id uuid.UUID) bool {
	return c.ParentID != nil && *c.ParentID == id
}

// MoveRequest is the payload sent to the record store to reparent a
// category. A nil NewParentID moves the category to the root level.
type MoveRequest struct {
	CategoryID  uuid.UUID  `json:"categoryId"`
	NewParentID *uuid.UUID `json:"newParentId,omitempty"`
	SortOrder   int        `json:"sortOrder"`
}
