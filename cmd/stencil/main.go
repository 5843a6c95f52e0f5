// cmd/stencil/main.go
//
// This is the entry point for the Stencil CLI.
// Running `stencil` with no command launches the TUI; a handful of
// subcommands cover the non-interactive paths (health probe, one-shot
// analyze, and moving rule documents in and out of saved profiles).

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/draftforge/stencil/internal/api"
	"github.com/draftforge/stencil/internal/config"
	"github.com/draftforge/stencil/internal/profiles"
	"github.com/draftforge/stencil/internal/rules"
	"github.com/draftforge/stencil/internal/tui"
)

func main() {
	if err := newCLIApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	return &cli.App{
		Name:  "stencil",
		Usage: "Terminal client for the report template service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "Directory holding .stencil/ (defaults to your home directory)"},
			&cli.StringFlag{Name: "api", Usage: "Override the configured backend base URL"},
		},
		Action: runTUI,
		Commands: []*cli.Command{
			healthCmd(),
			analyzeCmd(),
			exportCmd(),
			importCmd(),
		},
	}
}

func runTUI(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	app, err := tui.NewApp(cfg)
	if err != nil {
		return err
	}
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// healthCmd probes the backend's health endpoint.
func healthCmd() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that the template service is reachable",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			client := clientFor(cfg)
			ctx, cancel := requestContext(cfg)
			defer cancel()
			if err := client.Health(ctx); err != nil {
				return fmt.Errorf("backend %s: %w", client.BaseURL(), err)
			}
			fmt.Printf("ok · %s\n", client.BaseURL())
			return nil
		},
	}
}

// analyzeCmd uploads a requirements document and prints the extracted
// rule set without entering the TUI.
func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze a requirements document and print the extracted rules",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "Extraction mode: rules|llm|hybrid (defaults to the configured mode)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write rules JSON to this file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("exactly one document path is required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			path := c.Args().First()
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			mode := c.String("mode")
			if mode == "" {
				mode = cfg.AnalysisMode()
			}
			client := clientFor(cfg)
			ctx, cancel := requestContext(cfg)
			defer cancel()
			extracted, err := client.Analyze(ctx, filepath.Base(path), file, mode)
			if err != nil {
				return err
			}
			return writeRules(extracted, c.String("output"))
		},
	}
}

// exportCmd writes a saved profile's rules as a portable rules.json.
func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a saved profile's rules as rules.json",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "profile", Aliases: []string{"p"}, Required: true, Usage: "Profile id or name"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write rules JSON to this file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			client := clientFor(cfg)
			ctx, cancel := requestContext(cfg)
			defer cancel()
			items, err := client.ListProfiles(ctx)
			if err != nil {
				return err
			}
			want := strings.TrimSpace(c.String("profile"))
			for _, p := range items {
				if p.ID == want || strings.EqualFold(p.Name, want) {
					return writeRules(p.Rules, c.String("output"))
				}
			}
			return fmt.Errorf("profile %q not found", want)
		},
	}
}

// importCmd loads a rules.json document and saves it as a named profile.
func importCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a rules.json document and save it as a profile",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Name for the saved profile"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("exactly one rules.json path is required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return err
			}
			imported, err := rules.Import(data)
			if err != nil {
				return err
			}
			manager := profiles.NewManager(clientFor(cfg), nil)
			ctx, cancel := requestContext(cfg)
			defer cancel()
			profile, err := manager.Save(ctx, c.String("name"), imported)
			if err != nil {
				return err
			}
			fmt.Printf("saved profile %q (%s)\n", profile.Name, profile.ID)
			return nil
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	base := strings.TrimSpace(c.String("dir"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		base = home
	}
	if err := config.InitStencilDir(base); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", filepath.Join(base, config.StencilDir), err)
	}
	cfg, err := config.NewConfig(base)
	if err != nil {
		return nil, err
	}
	if override := strings.TrimSpace(c.String("api")); override != "" {
		cfg.File.API.BaseURL = strings.TrimRight(override, "/")
	}
	return cfg, nil
}

func clientFor(cfg *config.Config) *api.Client {
	timeout := time.Duration(cfg.File.API.TimeoutSeconds) * time.Second
	return api.New(cfg.BaseURL(), api.WithHTTPClient(&http.Client{Timeout: timeout}))
}

func requestContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	timeout := time.Duration(cfg.File.API.TimeoutSeconds) * time.Second
	return context.WithTimeout(context.Background(), timeout)
}

func writeRules(r rules.RuleSet, output string) error {
	data, err := rules.Export(r)
	if err != nil {
		return err
	}
	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(output, data, 0o644)
}
