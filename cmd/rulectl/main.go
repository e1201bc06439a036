// Command rulectl is a terminal client for a ruletracker server.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ruletracker/internal/apiclient"
	"ruletracker/internal/categorytree"
	"ruletracker/internal/slug"
	"ruletracker/internal/workspace"
)

const (
	Version = "0.1.0"
	appName = "rulectl"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	client *apiclient.Client
	ws     *workspace.Workspace
	out    io.Writer
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		server     string
		verbose    bool
	)
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Manage categories and rules on a ruletracker server",
		Long: `rulectl talks to a ruletracker server. It prints the category tree,
moves categories around it, and records whether rules were followed or
violated.

Categories can be named by id or by their exact name.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if server != "" {
				cfg.Server = server
			}
			a.client = apiclient.New(cfg.Server, apiclient.WithTimeout(cfg.Timeout))
			a.ws = workspace.New(a.client)
			a.out = cmd.OutOrStdout()
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Config file path (YAML)")
	cmd.PersistentFlags().StringVarP(&server, "server", "s", "", "Server URL (overrides the config file)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(
		treeCmd(a),
		pathCmd(a),
		moveCmd(a),
		moveRootCmd(a),
		categoryCmd(a),
		rulesCmd(a),
		ruleCmd(a),
		countCmd(a, "follow"),
		countCmd(a, "violate"),
		recordsCmd(a),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	return cmd
}

// load refreshes the workspace from the server.
func (a *app) load(ctx context.Context) error {
	return a.ws.Reload(ctx)
}

// resolve turns a category argument into an id. The argument is either a
// UUID or a category name or handle (see slug.Matches) that is unique in
// the loaded tree.
func (a *app) resolve(arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}

	var matches []uuid.UUID
	for _, c := range categorytree.Flatten(a.ws.Tree()) {
		if slug.Matches(c.Name, arg) {
			matches = append(matches, c.ID)
		}
	}
	switch len(matches) {
	case 0:
		return uuid.Nil, fmt.Errorf("no category named %q", arg)
	case 1:
		return matches[0], nil
	default:
		return uuid.Nil, fmt.Errorf("%d categories are named %q, use an id", len(matches), arg)
	}
}

// name returns the display name of a category in the loaded tree.
func (a *app) name(id uuid.UUID) string {
	if n := categorytree.Find(a.ws.Tree(), id); n != nil {
		return n.Category.Name
	}
	return id.String()
}
