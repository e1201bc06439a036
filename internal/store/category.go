// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ruletracker/internal/categorytree"
	"ruletracker/internal/models"
)

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, name, parent_id, sort_order, created_at, updated_at`

// categoryOrder breaks sort_order ties by insertion order, then id.
const categoryOrder = `ORDER BY sort_order, created_at, id`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.ParentID, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func listCategories(ctx context.Context, q querier, query string, args ...any) ([]models.Category, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// List returns all categories ordered by sort_order.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	items, err := listCategories(ctx, s.db, `SELECT `+categoryColumns+` FROM categories `+categoryOrder)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return items, nil
}

// Children returns the direct children of a category in display order.
func (s *CategoryStore) Children(ctx context.Context, parentID uuid.UUID) ([]models.Category, error) {
	items, err := listCategories(ctx, s.db,
		`SELECT `+categoryColumns+` FROM categories WHERE parent_id = $1 `+categoryOrder, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return items, nil
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// Create inserts a new category as the last child of parentID, or as the
// last root when parentID is nil. Returns ErrNotFound if the parent does
// not exist.
func (s *CategoryStore) Create(ctx context.Context, name string, parentID *uuid.UUID) (*models.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if parentID != nil {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, *parentID,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check parent: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("create category: parent %s: %w", *parentID, ErrNotFound)
		}
	}

	order, err := nextSortOrder(ctx, tx, parentID)
	if err != nil {
		return nil, fmt.Errorf("next sort order: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO categories (name, parent_id, sort_order)
		VALUES ($1, $2, $3)
		RETURNING `+categoryColumns,
		name, parentID, order,
	)
	result, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create category: %w", err)
	}
	return result, nil
}

// Rename changes a category's display name.
func (s *CategoryStore) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE categories SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+categoryColumns,
		name, id,
	)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rename category: %w", err)
	}
	return c, nil
}

// Delete removes a category by ID. Descendant categories and every rule
// attached to the removed subtree go with it (ON DELETE CASCADE).
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Move reparents a category and sets its sort_order. The move is checked
// against a locked snapshot of the whole hierarchy: moving a category under
// itself or one of its descendants fails with categorytree.ErrSelfMove or
// categorytree.ErrCyclicMove, and unknown ids fail with ErrNotFound.
func (s *CategoryStore) Move(ctx context.Context, req models.MoveRequest) (*models.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	flat, err := listCategories(ctx, tx, `SELECT `+categoryColumns+` FROM categories `+categoryOrder+` FOR UPDATE`)
	if err != nil {
		return nil, fmt.Errorf("lock categories: %w", err)
	}

	err = categorytree.ValidateMove(categorytree.Build(flat), req.CategoryID, req.NewParentID)
	if errors.Is(err, categorytree.ErrUnknownCategory) {
		return nil, fmt.Errorf("move category %s: %w", req.CategoryID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("move category %s: %w", req.CategoryID, err)
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE categories SET parent_id = $1, sort_order = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+categoryColumns,
		req.NewParentID, req.SortOrder, req.CategoryID,
	)
	moved, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("move category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit move: %w", err)
	}
	return moved, nil
}

// ReorderItem represents a single item in a reorder request.
type ReorderItem struct {
	ID       uuid.UUID  `json:"id"`
	ParentID *uuid.UUID `json:"parent_id"`
	Order    int        `json:"order"`
}

// Reorder updates sort_order and parent_id for multiple categories in a
// transaction. The batch is applied to a locked snapshot first and rejected
// with categorytree.ErrCyclicMove if the result would contain a cycle.
func (s *CategoryStore) Reorder(ctx context.Context, items []ReorderItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	flat, err := listCategories(ctx, tx, `SELECT `+categoryColumns+` FROM categories `+categoryOrder+` FOR UPDATE`)
	if err != nil {
		return fmt.Errorf("lock categories: %w", err)
	}
	if err := checkReorder(flat, items); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE categories SET parent_id = $1, sort_order = $2, updated_at = NOW()
		WHERE id = $3`)
	if err != nil {
		return fmt.Errorf("prepare reorder: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, item.ParentID, item.Order, item.ID); err != nil {
			return fmt.Errorf("reorder category %s: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

// checkReorder applies items to a copy of flat and verifies that every id
// exists and that the resulting hierarchy is still a forest.
func checkReorder(flat []models.Category, items []ReorderItem) error {
	byID := make(map[uuid.UUID]int, len(flat))
	next := make([]models.Category, len(flat))
	copy(next, flat)
	for i, c := range next {
		byID[c.ID] = i
	}

	for _, item := range items {
		i, ok := byID[item.ID]
		if !ok {
			return fmt.Errorf("reorder category %s: %w", item.ID, ErrNotFound)
		}
		if item.ParentID != nil {
			if *item.ParentID == item.ID {
				return fmt.Errorf("reorder category %s: %w", item.ID, categorytree.ErrSelfMove)
			}
			if _, ok := byID[*item.ParentID]; !ok {
				return fmt.Errorf("reorder parent %s: %w", *item.ParentID, ErrNotFound)
			}
		}
		next[i].ParentID = item.ParentID
		next[i].SortOrder = item.Order
	}

	// A cycle leaves its members unreachable from every root.
	if categorytree.Build(next).Len() != len(next) {
		return fmt.Errorf("reorder: %w", categorytree.ErrCyclicMove)
	}
	return nil
}

// nextSortOrder returns the sort_order that places a new category after
// every existing sibling under parentID.
func nextSortOrder(ctx context.Context, q querier, parentID *uuid.UUID) (int, error) {
	var maxOrder sql.NullInt64
	var err error
	if parentID == nil {
		err = q.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM categories WHERE parent_id IS NULL`).Scan(&maxOrder)
	} else {
		err = q.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM categories WHERE parent_id = $1`, *parentID).Scan(&maxOrder)
	}
	if err != nil {
		return 0, err
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 1, nil
	}
	return 0, nil
}
