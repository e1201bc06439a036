package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// seedCategory is one category of the development data set. Parent refers
// to another seed entry by name.
type seedCategory struct {
	Name   string
	Parent string
	Order  int
	Rules  []string
}

var seedCategories = []seedCategory{
	{Name: "Health", Order: 0},
	{Name: "Diet", Parent: "Health", Order: 0, Rules: []string{
		"No sugary drinks on weekdays",
		"Eat vegetables with every dinner",
	}},
	{Name: "Exercise", Parent: "Health", Order: 1, Rules: []string{
		"Walk at least 8000 steps",
	}},
	{Name: "Work", Order: 1, Rules: []string{
		"Check email only twice a day",
	}},
}

// Seed populates the database with a small category tree and a few rules
// for development. It does nothing if any category already exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make(map[string]string, len(seedCategories))
	var rules int
	for _, c := range seedCategories {
		var parent any
		if c.Parent != "" {
			parent = ids[c.Parent]
		}

		var id string
		err := tx.QueryRow(`
			INSERT INTO categories (name, parent_id, sort_order)
			VALUES ($1, $2, $3)
			RETURNING id
		`, c.Name, parent, c.Order).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed insert category %q: %w", c.Name, err)
		}
		ids[c.Name] = id

		for _, content := range c.Rules {
			if _, err := tx.Exec(`
				INSERT INTO rules (category_id, content) VALUES ($1, $2)
			`, id, content); err != nil {
				return fmt.Errorf("seed insert rule: %w", err)
			}
			rules++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with sample categories",
		"categories", len(seedCategories),
		"rules", rules,
	)
	return nil
}
