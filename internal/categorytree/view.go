// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categorytree

import "github.com/google/uuid"

// ModalKind names the form a client has open, if any.
type ModalKind string

const (
	ModalNone           ModalKind = ""
	ModalCreateCategory ModalKind = "create_category"
	ModalEditCategory   ModalKind = "edit_category"
	ModalCreateRule     ModalKind = "create_rule"
	ModalEditRule       ModalKind = "edit_rule"
)

// ValidModal reports whether k names a known modal.
func ValidModal(k ModalKind) bool {
	switch k {
	case ModalCreateCategory, ModalEditCategory, ModalCreateRule, ModalEditRule:
		return true
	}
	return false
}

// Modal is the open form and the record it acts on.
type Modal struct {
	Kind     ModalKind  `json:"kind,omitempty"`
	TargetID *uuid.UUID `json:"target_id,omitempty"`
}

// View is the presentation state of one client session: which category is
// selected, which nodes are expanded and which form is open. Transitions
// return a new View and leave the receiver unchanged.
type View struct {
	Selected *uuid.UUID `json:"selected,omitempty"`
	Expanded Expansion  `json:"expanded"`
	Modal    Modal      `json:"modal"`
}

// Select returns a view with id selected. A nil id clears the selection,
// which means "all categories" for rule listings.
func (v View) Select(id *uuid.UUID) View {
	next := v.clone()
	if id == nil {
		next.Selected = nil
		return next
	}
	sel := *id
	next.Selected = &sel
	return next
}

// ToggleExpand returns a view with id's expansion flipped.
func (v View) ToggleExpand(id uuid.UUID) View {
	next := v.clone()
	next.Expanded.Toggle(id)
	return next
}

// Reveal returns a view in which every ancestor of id is expanded, so the
// node is visible. Unknown ids leave the expansion as is.
func (v View) Reveal(t *Tree, id uuid.UUID) View {
	next := v.clone()
	path := FindPath(t, id)
	for i := 0; i < len(path)-1; i++ {
		next.Expanded.Expand(path[i].ID)
	}
	return next
}

// OpenModal returns a view with the given form open.
func (v View) OpenModal(kind ModalKind, target *uuid.UUID) View {
	next := v.clone()
	next.Modal = Modal{Kind: kind}
	if target != nil {
		id := *target
		next.Modal.TargetID = &id
	}
	return next
}

// CloseModal returns a view with no form open.
func (v View) CloseModal() View {
	next := v.clone()
	next.Modal = Modal{}
	return next
}

// Visible returns the reachable nodes a display shows: roots, plus the
// children of every expanded node whose ancestors are all expanded.
func (v View) Visible(t *Tree) []*Node {
	var visible []*Node
	if t == nil {
		return visible
	}
	stack := make([]*Node, 0, len(t.Roots))
	for i := len(t.Roots) - 1; i >= 0; i-- {
		stack = append(stack, t.Roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visible = append(visible, n)
		if !v.Expanded.IsExpanded(n.Category.ID) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return visible
}

func (v View) clone() View {
	next := View{Expanded: v.Expanded.Clone(), Modal: v.Modal}
	if v.Selected != nil {
		id := *v.Selected
		next.Selected = &id
	}
	return next
}
