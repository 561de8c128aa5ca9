package main

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/sieve/internal/codec"
	"github.com/hpungsan/sieve/internal/config"
	"github.com/hpungsan/sieve/internal/errors"
	"github.com/hpungsan/sieve/internal/logging"
	"github.com/hpungsan/sieve/internal/ops"
	"github.com/hpungsan/sieve/internal/web"
)

// maxStdinBytes caps a category list piped to scan.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, log *logging.Logger) *cli.App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logging.NewNop()
	}
	e := &env{db: db, cfg: cfg, log: log}

	app := &cli.App{
		Name:    "sieve",
		Usage:   "Group categories and filter a host's panels to one group",
		Version: Version,
		Commands: []*cli.Command{
			scanCmd(e),
			groupsCmd(e),
			showCmd(e),
			addCmd(e),
			removeCmd(e),
			renameCmd(e),
			setCategoryCmd(e, "enable", true),
			setCategoryCmd(e, "disable", false),
			bindCmd(e),
			applyCmd(e),
			restoreCmd(e),
			stepCmd(e, "next", "Select the next group (wraps to show all)", 1),
			stepCmd(e, "prev", "Select the previous group (wraps to show all)", -1),
			cycleCmd(e),
			workspaceCmd(e),
			resumeCmd(e),
			statusCmd(e),
			presetsCmd(),
			matchCmd(e),
			exportCmd(e),
			importCmd(e),
			resetCmd(e),
			serveCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// env carries command dependencies.
type env struct {
	db  *sql.DB
	cfg *config.Config
	log *logging.Logger
}

func (e *env) ctx(c *cli.Context) context.Context {
	return logging.WithContext(c.Context, e.log)
}

// scanCmd creates the scan command.
func scanCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Report the host's current categories (args, or one per line on stdin)",
		ArgsUsage: "[category...]",
		Action: func(c *cli.Context) error {
			categories := c.Args().Slice()
			if len(categories) == 0 {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("categories must be given as arguments or piped via stdin"))
				}
				text, err := readStdin(maxStdinBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				categories = parseLines(text)
			}

			output, err := ops.Scan(e.ctx(c), e.db, ops.ScanInput{Categories: categories})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// groupsCmd creates the groups command.
func groupsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "groups",
		Usage: "List groups and the current selection",
		Action: func(c *cli.Context) error {
			output, err := ops.ListGroups(e.ctx(c), e.db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// showCmd creates the show command.
func showCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a group's categories",
		ArgsUsage: "<index>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: "Case-insensitive substring filter"},
		},
		Action: func(c *cli.Context) error {
			if err := maxArgs(c, 1); err != nil {
				return outputError(err)
			}
			index, err := indexArg(c, 0)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.ShowGroup(e.ctx(c), e.db, ops.ShowGroupInput{Index: index, Filter: c.String("filter")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// addCmd creates the add command.
func addCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Create a group",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Group name (default: New Group, or the preset name)"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Value: "empty", Usage: "Initial categories: empty|current|preset"},
			&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Usage: "Preset name (implies --source=preset)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.AddGroupInput{
				Name:   c.String("name"),
				Source: ops.AddSource(c.String("source")),
				Preset: c.String("preset"),
			}
			if input.Preset != "" && !c.IsSet("source") {
				input.Source = ops.AddSourcePreset
			}

			output, err := ops.AddGroup(e.ctx(c), e.db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// removeCmd creates the remove command.
func removeCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Delete a group",
		ArgsUsage: "<index>",
		Action: func(c *cli.Context) error {
			if err := maxArgs(c, 1); err != nil {
				return outputError(err)
			}
			index, err := indexArg(c, 0)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.RemoveGroup(e.ctx(c), e.db, ops.RemoveGroupInput{Index: index})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// renameCmd creates the rename command.
func renameCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Rename a group",
		ArgsUsage: "<index> <name>",
		Action: func(c *cli.Context) error {
			index, err := indexArg(c, 0)
			if err != nil {
				return outputError(err)
			}
			name := strings.Join(c.Args().Tail(), " ")
			output, err := ops.RenameGroup(e.ctx(c), e.db, ops.RenameGroupInput{Index: index, Name: name})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// setCategoryCmd creates the enable and disable commands.
func setCategoryCmd(e *env, name string, enabled bool) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     fmt.Sprintf("Mark a category %sd in a group (adds it if missing)", name),
		ArgsUsage: "<index> <category>",
		Action: func(c *cli.Context) error {
			index, err := indexArg(c, 0)
			if err != nil {
				return outputError(err)
			}
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("category is required"))
			}
			if err := maxArgs(c, 2); err != nil {
				return outputError(err)
			}
			output, err := ops.SetCategory(e.ctx(c), e.db, ops.SetCategoryInput{
				Index:    index,
				Category: c.Args().Get(1),
				Enabled:  enabled,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// bindCmd creates the bind command.
func bindCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "bind",
		Usage:     "Bind a group to a workspace (omit the workspace to clear)",
		ArgsUsage: "<index> [workspace]",
		Action: func(c *cli.Context) error {
			if err := maxArgs(c, 2); err != nil {
				return outputError(err)
			}
			index, err := indexArg(c, 0)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.BindWorkspace(e.ctx(c), e.db, ops.BindWorkspaceInput{
				Index:     index,
				Workspace: c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// applyCmd creates the apply command.
func applyCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Filter the host to one group, by index or --name",
		ArgsUsage: "[index]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Group name (first match)"},
		},
		Action: func(c *cli.Context) error {
			if err := maxArgs(c, 1); err != nil {
				return outputError(err)
			}
			input := ops.ApplyInput{Name: c.String("name")}
			if input.Name == "" {
				index, err := indexArg(c, 0)
				if err != nil {
					return outputError(err)
				}
				input.Index = index
			}
			output, err := ops.Apply(e.ctx(c), e.db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// restoreCmd creates the restore command.
func restoreCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "restore",
		Usage: "Show all categories under their original names",
		Action: func(c *cli.Context) error {
			output, err := ops.Restore(e.ctx(c), e.db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// stepCmd creates the next and prev commands.
func stepCmd(e *env, name, usage string, delta int) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(c *cli.Context) error {
			output, err := ops.Cycle(e.ctx(c), e.db, ops.CycleInput{Delta: delta})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// cycleCmd creates the cycle command.
func cycleCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "cycle",
		Usage: "Step the selection by --delta (sign chooses direction)",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "delta", Aliases: []string{"d"}, Value: 1, Usage: "Positive steps forward, negative back, 0 re-applies"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Cycle(e.ctx(c), e.db, ops.CycleInput{Delta: c.Int("delta")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// workspaceCmd creates the workspace command.
func workspaceCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "workspace",
		Usage:     "Notify that the host switched workspace; applies the first bound group",
		ArgsUsage: "<workspace>",
		Action: func(c *cli.Context) error {
			output, err := ops.ActivateWorkspace(e.ctx(c), e.db, ops.ActivateWorkspaceInput{Workspace: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// resumeCmd creates the resume command.
func resumeCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "resume",
		Usage: "Re-apply the saved selection after the host reloads",
		Action: func(c *cli.Context) error {
			output, err := ops.Resume(e.ctx(c), e.db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current selection",
		Action: func(c *cli.Context) error {
			output, err := ops.Status(e.ctx(c), e.db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// presetsCmd creates the presets command.
func presetsCmd() *cli.Command {
	return &cli.Command{
		Name:  "presets",
		Usage: "List built-in presets",
		Action: func(c *cli.Context) error {
			return outputJSON(c, ops.Presets())
		},
	}
}

// matchCmd creates the match command.
func matchCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "match",
		Usage:     "Preview which known categories a preset matches",
		ArgsUsage: "<preset>",
		Action: func(c *cli.Context) error {
			name := strings.Join(c.Args().Slice(), " ")
			output, err := ops.MatchPreset(e.ctx(c), e.db, ops.MatchPresetInput{Name: name})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export groups to a JSON or YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.sieve/exports/groups-<timestamp>.<format>)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json|yaml (default: from the path extension, else json)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(e.ctx(c), e.db, e.cfg, ops.ExportInput{
				Path:   c.String("path"),
				Format: codec.Format(c.String("format")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import groups from a JSON or YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "merge", Usage: "merge|replace"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(e.ctx(c), e.db, e.cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: codec.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// resetCmd creates the reset command.
func resetCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Restore every category and forget all original-name bindings",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the reset"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return outputError(errors.NewInvalidRequest("reset forgets every binding; pass --yes to confirm"))
			}
			output, err := ops.Reset(e.ctx(c), e.db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Bind address (default: web_bind from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port (default: web_port from config)"},
		},
		Action: func(c *cli.Context) error {
			bind := e.cfg.WebBind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := e.cfg.WebPort
			if c.IsSet("port") {
				port = c.Int("port")
			}
			if port < 0 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("port must be between 0 and 65535 (got %d)", port)))
			}

			srv, err := web.NewServer(e.db, e.cfg, e.log, Version, bind, port)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(srv, e.log); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to the app's writer as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := errors.As(err); ok {
		msg := sErr.Message
		if err != error(sErr) {
			msg = err.Error()
		}
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, msg), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// maxArgs rejects positionals past n. Flags after the first positional
// arrive here as positionals, so this also catches misplaced flags.
func maxArgs(c *cli.Context, n int) error {
	if c.NArg() <= n {
		return nil
	}
	extra := c.Args().Slice()[n:]
	return errors.NewInvalidRequest(fmt.Sprintf(
		"unexpected arguments %q: flags must come before positional arguments", extra))
}

// indexArg parses the positional argument at pos as a group index.
func indexArg(c *cli.Context, pos int) (int, error) {
	s := c.Args().Get(pos)
	if s == "" {
		return 0, errors.NewInvalidRequest("group index is required")
	}
	index, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("group index must be an integer (got %q)", s))
	}
	return index, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin, failing past limit bytes.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return string(bytes.TrimSpace(data)), nil
}

// parseLines splits text into trimmed, non-empty lines.
func parseLines(text string) []string {
	lines := make([]string, 0)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), maxStdinBytes)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
