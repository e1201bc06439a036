// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"ruletracker/internal/models"
)

// RuleStore manages rules and their follow/violate history.
type RuleStore struct {
	db *sql.DB
}

// NewRuleStore returns a new RuleStore.
func NewRuleStore(db *sql.DB) *RuleStore {
	return &RuleStore{db: db}
}

const ruleColumns = `id, category_id, content, follow_count, violate_count, created_at, updated_at`

func scanRule(scanner interface{ Scan(...any) error }) (*models.Rule, error) {
	var r models.Rule
	err := scanner.Scan(
		&r.ID, &r.CategoryID, &r.Content, &r.FollowCount, &r.ViolateCount,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RuleFilter selects and orders a rule listing. A nil CategoryID lists
// every rule; otherwise rules of the category and all its descendants are
// included.
type RuleFilter struct {
	CategoryID *uuid.UUID
	SortBy     models.RuleSortField
	Direction  models.SortDirection
}

// orderClause maps a validated filter to an ORDER BY clause. Ties on the
// tally go to the newest rule.
func (f RuleFilter) orderClause() string {
	column := "follow_count"
	if f.SortBy == models.SortByViolateCount {
		column = "violate_count"
	}
	dir := "DESC"
	if f.Direction == models.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s, created_at DESC, id", column, dir)
}

// List returns the rules matching the filter.
func (s *RuleStore) List(ctx context.Context, f RuleFilter) ([]models.Rule, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if f.CategoryID == nil {
		rows, err = s.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM rules `+f.orderClause())
	} else {
		rows, err = s.db.QueryContext(ctx, `
			WITH RECURSIVE subtree AS (
				SELECT id FROM categories WHERE id = $1
				UNION
				SELECT c.id FROM categories c JOIN subtree s ON c.parent_id = s.id
			)
			SELECT `+ruleColumns+` FROM rules
			WHERE category_id IN (SELECT id FROM subtree)
			`+f.orderClause(), *f.CategoryID)
	}
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	items := []models.Rule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		items = append(items, *r)
	}
	return items, rows.Err()
}

// FindByID retrieves a rule by ID. Returns nil if not found.
func (s *RuleStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = $1`, id)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find rule by id: %w", err)
	}
	return r, nil
}

// Create inserts a rule with zero tallies. Returns ErrNotFound if the
// category does not exist.
func (s *RuleStore) Create(ctx context.Context, categoryID uuid.UUID, content string) (*models.Rule, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO rules (category_id, content)
		SELECT $1, $2
		WHERE EXISTS (SELECT 1 FROM categories WHERE id = $1)
		RETURNING `+ruleColumns,
		categoryID, content,
	)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("create rule: category %s: %w", categoryID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	return r, nil
}

// UpdateContent replaces a rule's text.
func (s *RuleStore) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*models.Rule, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE rules SET content = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+ruleColumns,
		content, id,
	)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return r, nil
}

// Delete removes a rule and its history.
func (s *RuleStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Follow increments the follow tally and records the event.
func (s *RuleStore) Follow(ctx context.Context, id uuid.UUID, note string) (*models.Rule, error) {
	return s.count(ctx, id, models.RecordFollow, note)
}

// Violate increments the violate tally and records the event.
func (s *RuleStore) Violate(ctx context.Context, id uuid.UUID, note string) (*models.Rule, error) {
	return s.count(ctx, id, models.RecordViolate, note)
}

func (s *RuleStore) count(ctx context.Context, id uuid.UUID, kind models.RecordType, note string) (*models.Rule, error) {
	column := "follow_count"
	if kind == models.RecordViolate {
		column = "violate_count"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE rules SET `+column+` = `+column+` + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING `+ruleColumns, id)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s rule: %w", kind, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO count_records (rule_id, record_type, note) VALUES ($1, $2, $3)
	`, id, kind, note); err != nil {
		return nil, fmt.Errorf("record %s: %w", kind, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", kind, err)
	}
	return r, nil
}

// Records returns a rule's most recent follow/violate events, newest first.
func (s *RuleStore) Records(ctx context.Context, ruleID uuid.UUID, limit int) ([]models.CountRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_id, record_type, note, recorded_at
		FROM count_records
		WHERE rule_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("query count records: %w", err)
	}
	defer rows.Close()

	records := []models.CountRecord{}
	for rows.Next() {
		var rec models.CountRecord
		if err := rows.Scan(&rec.ID, &rec.RuleID, &rec.RecordType, &rec.Note, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan count record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
