// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categorytree

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/google/uuid"
)

// Expansion is the set of category ids shown expanded in a tree display.
// It is independent of tree shape: ids of removed categories or of leaves
// may linger and are harmless. The zero value is an empty set.
type Expansion struct {
	ids map[uuid.UUID]struct{}
}

// NewExpansion returns a set holding the given ids.
func NewExpansion(ids ...uuid.UUID) Expansion {
	e := Expansion{}
	for _, id := range ids {
		e.Expand(id)
	}
	return e
}

// Toggle flips the membership of id.
func (e *Expansion) Toggle(id uuid.UUID) {
	if e.IsExpanded(id) {
		e.Collapse(id)
		return
	}
	e.Expand(id)
}

// Expand adds id to the set.
func (e *Expansion) Expand(id uuid.UUID) {
	if e.ids == nil {
		e.ids = make(map[uuid.UUID]struct{})
	}
	e.ids[id] = struct{}{}
}

// Collapse removes id from the set.
func (e *Expansion) Collapse(id uuid.UUID) {
	delete(e.ids, id)
}

// IsExpanded reports whether id is in the set.
func (e Expansion) IsExpanded(id uuid.UUID) bool {
	_, ok := e.ids[id]
	return ok
}

// Len returns the number of expanded ids.
func (e Expansion) Len() int {
	return len(e.ids)
}

// IDs returns the expanded ids in byte order.
func (e Expansion) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(e.ids))
	for id := range e.ids {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}

// Clone returns an independent copy of the set.
func (e Expansion) Clone() Expansion {
	return NewExpansion(e.IDs()...)
}

// MarshalJSON encodes the set as a sorted array of ids.
func (e Expansion) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.IDs())
}

// UnmarshalJSON decodes an array of ids, replacing the current contents.
func (e *Expansion) UnmarshalJSON(data []byte) error {
	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*e = NewExpansion(ids...)
	return nil
}
