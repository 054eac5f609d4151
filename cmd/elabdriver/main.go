// Package main implements the elabdriver CLI: the cross-language
// elaboration driver, wired up the way the teacher's cmd/dingo wires
// its own build pipeline — a cobra root command, one subcommand per
// verb, a single beautified summary at the end of a run.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/hdlforge/elabdriver/pkg/config"
	"github.com/hdlforge/elabdriver/pkg/coordinator"
	"github.com/hdlforge/elabdriver/pkg/frontend"
	"github.com/hdlforge/elabdriver/pkg/ir"
	"github.com/hdlforge/elabdriver/pkg/logging"
	"github.com/hdlforge/elabdriver/pkg/passthrough"
	"github.com/hdlforge/elabdriver/pkg/proto"
	"github.com/hdlforge/elabdriver/pkg/report"
)

var version = "0.1.0-alpha"

func main() {
	defer atexit.Exit(0)

	rootCmd := &cobra.Command{
		Use:          "elabdriver",
		Short:        "Cross-language HDL elaboration driver",
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(elaborateCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of elabdriver",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func elaborateCmd() *cobra.Command {
	var (
		target               string
		errorOnUnknownModule bool
		logLevel             string
		passThroughFile      string
		passThroughTop       bool
		topMode              string
		topFrontendID        string
		topModuleName        string
		reportYAMLPath       string
	)

	cmd := &cobra.Command{
		Use:   "elaborate",
		Short: "Run one elaboration session and report the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := &config.Config{
				Target:   target,
				LogLevel: logLevel,
			}
			if cmd.Flags().Changed("error-on-unknown-module") {
				overrides.ErrorOnUnknownModule = &errorOnUnknownModule
			}
			if topMode != "" {
				overrides.TopSelection = config.TopSelectionConfig{
					Mode:       config.TopSelectionMode(topMode),
					FrontendID: topFrontendID,
					ModuleName: topModuleName,
				}
			}

			cfg, err := config.Load(overrides)
			if err != nil {
				return err
			}

			return runElaborate(cmd.Context(), cfg, passThroughFile, passThroughTop, reportYAMLPath)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Synthesis target name")
	cmd.Flags().BoolVar(&errorOnUnknownModule, "error-on-unknown-module", true, "Treat an unanswered module request as an error")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Logger verbosity: debug, info, warn, error")
	cmd.Flags().StringVar(&passThroughFile, "pass-through", "", "Inline a pre-elaborated IR fragment (JSON) via the pass-through frontend")
	cmd.Flags().BoolVar(&passThroughTop, "pass-through-top", true, "Whether the pass-through frontend contributes top modules directly")
	cmd.Flags().StringVar(&topMode, "top-mode", "", "Top-module selection mode: module, frontend, automatic (overrides config)")
	cmd.Flags().StringVar(&topFrontendID, "top-frontend", "", "Frontend ID for module/frontend top-selection modes")
	cmd.Flags().StringVar(&topModuleName, "top-module", "", "Module name for module top-selection mode")
	cmd.Flags().StringVar(&reportYAMLPath, "report-yaml", "", "Write the full session report as YAML to this path")

	return cmd
}

func runElaborate(ctx context.Context, cfg *config.Config, passThroughFile string, passThroughTop bool, reportYAMLPath string) error {
	logger, zapLogger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	atexit.Register(func() { _ = zapLogger.Sync() })

	design := ir.NewDesign()
	registry := frontend.NewRegistry()

	opts := coordinator.Options{
		Target:               cfg.Target,
		ErrorOnUnknownModule: cfg.ErrorOnUnknownModule != nil && *cfg.ErrorOnUnknownModule,
		TopSelection:         topSelectionFromConfig(cfg.TopSelection),
	}
	coord := coordinator.New(design, registry, opts, logger)

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	if passThroughFile != "" {
		input, err := loadPassThroughDesign(passThroughFile)
		if err != nil {
			return fmt.Errorf("pass-through: %w", err)
		}
		pt := passthrough.New("pass-through", input, passThroughTop, coord.Resolver())
		adapter := frontend.NewBuiltinAdapter(pt, design, coord.Route, coord.Mark)
		if err := registry.Register(adapter, false); err != nil {
			return fmt.Errorf("pass-through: %w", err)
		}
	}

	for _, fc := range cfg.Frontends {
		if fc.Kind != config.FrontendRemote {
			continue
		}
		rwc, err := spawnRemoteFrontend(fc)
		if err != nil {
			return fmt.Errorf("frontend %q: %w", fc.ID, err)
		}
		closers = append(closers, rwc)
		adapter := frontend.NewRemoteAdapter(fc.ID, true, rwc, design, coord.Route, coord.Mark, logger)
		closers = append(closers, adapter)
		if err := registry.Register(adapter, fc.TargetProvided); err != nil {
			return fmt.Errorf("frontend %q: %w", fc.ID, err)
		}
	}

	start := time.Now()
	result := coord.Run(ctx)
	elapsed := time.Since(start)

	rpt := report.Build(cfg.Target, result.Design, result.Tops, coord.Accumulator(), elapsed)
	rpt.Print(os.Stdout)

	if reportYAMLPath != "" {
		f, err := os.Create(reportYAMLPath)
		if err != nil {
			return fmt.Errorf("report-yaml: %w", err)
		}
		defer f.Close()
		if err := rpt.WriteYAML(f); err != nil {
			return fmt.Errorf("report-yaml: %w", err)
		}
	}

	if result.Failed {
		return fmt.Errorf("elaboration failed")
	}
	return nil
}

func topSelectionFromConfig(tc config.TopSelectionConfig) coordinator.TopSelection {
	sel := coordinator.TopSelection{FrontendID: tc.FrontendID}
	switch tc.Mode {
	case config.TopModeModule:
		sel.Mode = coordinator.TopModuleBased
		if tc.ModuleNameCaseSensitive {
			sel.ModuleName = ir.NewName(tc.ModuleName)
		} else {
			sel.ModuleName = ir.NewInsensitiveName(tc.ModuleName)
		}
	case config.TopModeFrontend:
		sel.Mode = coordinator.TopFrontendBased
	default:
		sel.Mode = coordinator.TopAutomatic
	}
	return sel
}

// loadPassThroughDesign reads a JSON-encoded IR fragment (the same
// wire shape as an insert-IR payload, proto.WireFragment) and ingests
// it into a freshly created Design for the pass-through frontend to
// inline.
func loadPassThroughDesign(path string) (*ir.Design, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var frag proto.WireFragment
	if err := json.Unmarshal(data, &frag); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	design := ir.NewDesign()
	if _, _, err := proto.IngestFragment(design, frag, nil); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	return design, nil
}

// subprocessRWC wraps a remote frontend subprocess's stdin/stdout as an
// io.ReadWriteCloser, adapted from the teacher's stdinoutCloser
// (cmd/dingo-lsp/main.go): Close here waits for process exit rather
// than merely logging, since a remote frontend subprocess (unlike
// gopls, inherited from the user's environment) is owned and must be
// reaped by the driver.
type subprocessRWC struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
	cmd    *exec.Cmd
}

func (s *subprocessRWC) Read(p []byte) (int, error)  { return s.stdout.Read(p) }
func (s *subprocessRWC) Write(p []byte) (int, error) { return s.stdin.Write(p) }
func (s *subprocessRWC) Close() error {
	_ = s.stdin.Close()
	_ = s.stdout.Close()
	return s.cmd.Wait()
}

func spawnRemoteFrontend(fc config.FrontendConfig) (io.ReadWriteCloser, error) {
	cmd := exec.Command(fc.Command, fc.Args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &subprocessRWC{stdin: stdin, stdout: stdout, cmd: cmd}, nil
}
