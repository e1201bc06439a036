package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ruletracker/internal/categorytree"
	"ruletracker/internal/models"
)

func treeCmd(a *app) *cobra.Command {
	var showIDs bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the category tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			tree := a.ws.Tree()
			if len(tree.Roots) == 0 {
				fmt.Fprintln(a.out, "No categories.")
				return nil
			}
			tree.Walk(func(n *categorytree.Node, depth int) bool {
				line := strings.Repeat("  ", depth) + n.Category.Name
				if showIDs {
					line += "  " + n.Category.ID.String()
				}
				fmt.Fprintln(a.out, line)
				return true
			})
			return nil
		},
	}
	cmd.Flags().BoolVar(&showIDs, "ids", false, "Show category ids")
	return cmd
}

func pathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path <category>",
		Short: "Print the ancestors of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			id, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			path := a.ws.Path(id)
			if len(path) == 0 {
				return fmt.Errorf("category %s not found", args[0])
			}
			names := make([]string, len(path))
			for i, c := range path {
				names[i] = c.Name
			}
			fmt.Fprintln(a.out, strings.Join(names, " / "))
			return nil
		},
	}
}

func moveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <category> <new-parent>",
		Short: "Move a category under another one, as its last child",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			dragged, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			target, err := a.resolve(args[1])
			if err != nil {
				return err
			}
			name, targetName := a.name(dragged), a.name(target)

			plan, err := a.ws.Move(cmd.Context(), dragged, target)
			if err != nil {
				return fmt.Errorf("cannot move %s under %s: %w", name, targetName, err)
			}
			fmt.Fprintf(a.out, "Moved %s under %s (position %d).\n", name, targetName, plan.SortOrder)
			return nil
		},
	}
}

func moveRootCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move-root <category>",
		Short: "Move a category to the end of the top level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			id, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			name := a.name(id)
			plan, err := a.ws.MoveToRoot(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("cannot move %s to the top level: %w", name, err)
			}
			fmt.Fprintf(a.out, "Moved %s to the top level (position %d).\n", name, plan.SortOrder)
			return nil
		},
	}
}

func categoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Create, rename or delete categories",
	}

	var parent string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var parentID *uuid.UUID
			if parent != "" {
				if err := a.load(cmd.Context()); err != nil {
					return err
				}
				id, err := a.resolve(parent)
				if err != nil {
					return err
				}
				parentID = &id
			}
			c, err := a.client.CreateCategory(cmd.Context(), args[0], parentID)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created %s  %s\n", c.Name, c.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&parent, "parent", "p", "", "Parent category (default: top level)")

	rename := &cobra.Command{
		Use:   "rename <category> <name>",
		Short: "Rename a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			id, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			c, err := a.client.RenameCategory(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Renamed to %s.\n", c.Name)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <category>",
		Short: "Delete a category with its subcategories and their rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			id, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			name := a.name(id)
			removed := len(categorytree.SubtreeIDs(a.ws.Tree(), id))
			if err := a.client.DeleteCategory(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s (%d categories).\n", name, max(removed, 1))
			return nil
		},
	}

	cmd.AddCommand(add, rename, rm)
	return cmd
}

func rulesCmd(a *app) *cobra.Command {
	var category, sortBy, order string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List rules, optionally within a category and its subcategories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			by, ok := models.ParseRuleSortField(sortField(sortBy))
			if !ok {
				return fmt.Errorf("--sort must be follow or violate")
			}
			dir, ok := models.ParseSortDirection(order)
			if !ok {
				return fmt.Errorf("--order must be asc or desc")
			}
			a.ws.SortRules(by, dir)

			if category != "" {
				if err := a.load(cmd.Context()); err != nil {
					return err
				}
				id, err := a.resolve(category)
				if err != nil {
					return err
				}
				a.ws.Select(&id)
			}
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			return a.printRules(a.ws.Rules())
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only rules under this category")
	cmd.Flags().StringVar(&sortBy, "sort", "follow", "Sort by follow or violate count")
	cmd.Flags().StringVar(&order, "order", "desc", "Sort direction, asc or desc")
	return cmd
}

// sortField accepts the short flag values as well as the wire names.
func sortField(s string) string {
	switch s {
	case "follow":
		return string(models.SortByFollowCount)
	case "violate":
		return string(models.SortByViolateCount)
	}
	return s
}

func (a *app) printRules(rules []models.Rule) error {
	if len(rules) == 0 {
		fmt.Fprintln(a.out, "No rules.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FOLLOWED\tVIOLATED\tCATEGORY\tRULE\tID")
	for _, r := range rules {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", r.FollowCount, r.ViolateCount, a.name(r.CategoryID), r.Content, r.ID)
	}
	return tw.Flush()
}

func ruleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Create, edit or delete rules",
	}

	add := &cobra.Command{
		Use:   "add <category> <content>",
		Short: "Add a rule to a category",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			id, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			r, err := a.client.CreateRule(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created rule %s\n", r.ID)
			return nil
		},
	}

	edit := &cobra.Command{
		Use:   "edit <rule-id> <content>",
		Short: "Replace a rule's text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.client.UpdateRule(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Updated.")
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.DeleteRule(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Deleted.")
			return nil
		},
	}

	cmd.AddCommand(add, edit, rm)
	return cmd
}

// countCmd builds the follow and violate commands.
func countCmd(a *app, action string) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   action + " <rule-id>",
		Short: "Record that a rule was " + pastTense(action),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			r, err := a.count(cmd.Context(), action, id, note)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: followed %d, violated %d\n", r.Content, r.FollowCount, r.ViolateCount)
			return nil
		},
	}
	cmd.Flags().StringVarP(&note, "note", "n", "", "Optional note stored with the record")
	return cmd
}

func (a *app) count(ctx context.Context, action string, id uuid.UUID, note string) (*models.Rule, error) {
	if action == "follow" {
		return a.client.FollowRule(ctx, id, note)
	}
	return a.client.ViolateRule(ctx, id, note)
}

func pastTense(action string) string {
	if action == "follow" {
		return "followed"
	}
	return "violated"
}

func recordsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "records <rule-id>",
		Short: "Show a rule's follow/violate history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			records, err := a.client.Records(cmd.Context(), id, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(a.out, "No records.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tTYPE\tNOTE")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Timestamp.Local().Format("2006-01-02 15:04"), r.RecordType, r.Note)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records (server default when 0)")
	return cmd
}

func parseRuleID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid rule id %q", s)
	}
	return id, nil
}
