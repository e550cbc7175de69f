package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pkgcheck-go/pkgcheck/pkg/checks/builtin"
	"github.com/pkgcheck-go/pkgcheck/pkg/config"
	"github.com/pkgcheck-go/pkgcheck/pkg/itemkind"
	"github.com/pkgcheck-go/pkgcheck/pkg/keywords"
	"github.com/pkgcheck-go/pkgcheck/pkg/pipeline"
	"github.com/pkgcheck-go/pkgcheck/pkg/planner"
	"github.com/pkgcheck-go/pkgcheck/pkg/result"
	"github.com/pkgcheck-go/pkgcheck/pkg/resultset"
	"github.com/pkgcheck-go/pkgcheck/pkg/source"
	"github.com/pkgcheck-go/pkgcheck/pkg/source/fsrepo"
	"github.com/pkgcheck-go/pkgcheck/pkg/transform"
	"github.com/pkgcheck-go/pkgcheck/pkg/transform/ebuildparse"
)

// registry builds the transform.Registry a scan plans against. It is
// rebuilt per invocation rather than kept global since Transform.Wrap
// closures capture nothing stateful here, but cmd-level singletons are
// a trap for the test binary's -count>1 runs.
func registry() *transform.Registry {
	reg := transform.NewRegistry()
	reg.Register(ebuildparse.Transform())

	return reg
}

// ScanCommand holds the configuration a single invocation of "scan" runs
// with, mirroring HistoryCommand's cobra-flag-backed-struct idiom.
type ScanCommand struct {
	configPath string
	repoPath   string
	scope      string
	category   string
	pkg        string
	version    string
	enabled    []string
	disabled   []string
	showFilt   bool
	debug      bool
}

// NewScanCommand builds the "scan" subcommand: it loads a repository
// config, plans a pipeline of the built-in checks, runs it, and prints
// the surviving results as a table.
func NewScanCommand() *cobra.Command {
	sc := &ScanCommand{}

	cobraCmd := &cobra.Command{
		Use:   "scan [repository]",
		Short: "Scan an ebuild repository for check violations",
		Long: `Scan walks an on-disk ebuild repository tree, plans a pipeline over
the built-in checks, and reports the results that survive keyword and
filtered-result filtering.`,
		RunE: sc.run,
	}

	cobraCmd.Flags().StringVarP(&sc.configPath, "config", "c", "", "config file path (default: ./pkgcheck.yaml)")
	cobraCmd.Flags().StringVar(&sc.repoPath, "repo", "", "repository path (overrides config)")
	cobraCmd.Flags().StringVar(&sc.scope, "scope", "", "scan scope: repo, category, package, version (overrides config)")
	cobraCmd.Flags().StringVar(&sc.category, "category", "", "restrict the scan to a single category")
	cobraCmd.Flags().StringVar(&sc.pkg, "package", "", "restrict the scan to a single package")
	cobraCmd.Flags().StringVar(&sc.version, "version", "", "restrict the scan to a single version")
	cobraCmd.Flags().StringSliceVar(&sc.enabled, "enabled-keywords", nil, "only report these result kinds (comma-separated)")
	cobraCmd.Flags().StringSliceVar(&sc.disabled, "disabled-keywords", nil, "never report these result kinds (comma-separated)")
	cobraCmd.Flags().BoolVar(&sc.showFilt, "show-filtered", false, "include results the latest-package filter marked Filtered")
	cobraCmd.Flags().BoolVar(&sc.debug, "debug", false, "print the planner's placement trace to stderr")

	return cobraCmd
}

func (sc *ScanCommand) run(_ *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(sc.configPath)
	if err != nil && sc.repoPath == "" {
		return fmt.Errorf("load config: %w", err)
	}

	repoPath := sc.repoPath
	if repoPath == "" && cfg != nil {
		repoPath = cfg.Repository.Path
	}

	if len(args) > 0 {
		repoPath = args[0]
	}

	scope := sc.scope
	if scope == "" && cfg != nil {
		scope = cfg.Scan.Scope
	}

	if scope == "" {
		scope = "repo"
	}

	parsedScope, err := itemkind.ParseScope(scope)
	if err != nil {
		return fmt.Errorf("parse scope: %w", err)
	}

	tree, err := fsrepo.Scan(repoPath)
	if err != nil {
		return fmt.Errorf("scan repository %s: %w", repoPath, err)
	}

	plan, err := planner.Plug(planner.Request{
		Scope:      parsedScope,
		Sources:    tree.Sources(),
		Transforms: registry(),
		Checks:     builtin.All(),
		DebugSink:  sc.debugSink(),
	})
	if err != nil {
		return fmt.Errorf("plan pipeline: %w", err)
	}

	restrict := source.Restriction{Category: sc.category, Package: sc.pkg, Version: sc.version}

	events := pipeline.New(plan, restrict).Run(context.Background())

	results, runErr := collectResults(events)

	filtered := resultset.Filter(results, resultset.FilterOptions{
		Selector:     keywords.New(sc.enabled, sc.disabled),
		ShowFiltered: sc.showFilt,
	})

	printResults(resultset.Dedup(filtered))

	return runErr
}

func (sc *ScanCommand) debugSink() func(planner.Step) {
	if !sc.debug {
		return nil
	}

	return func(step planner.Step) {
		fmt.Fprintf(os.Stderr, "plan: %s <- %s via %v (cost %d)\n", step.CheckName, step.Kind, step.Path, step.Cost)
	}
}

func collectResults(events <-chan pipeline.Event) ([]result.Result, error) {
	var (
		out []result.Result
		err error
	)

	for ev := range events {
		if ev.Err != nil {
			err = ev.Err

			continue
		}

		out = append(out, ev.Result)
	}

	return out, err
}

func printResults(results []result.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Severity", "Category", "Package", "Version", "Kind", "Message"})

	for _, r := range results {
		t.AppendRow(table.Row{r.Severity, r.Category, r.Package, r.Version.String(), r.Variant, r.Message})
	}

	t.Render()
}
