package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abhisek/benchgen/internal/auditlog"
	"github.com/abhisek/benchgen/internal/config"
	"github.com/abhisek/benchgen/internal/llm"
	"github.com/abhisek/benchgen/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [documents...]",
	Short: "Run the full dataset build pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		cfg.Ingestion.InputPaths = append(cfg.Ingestion.InputPaths, args...)
		if len(cfg.Ingestion.InputPaths) == 0 {
			return fmt.Errorf("no input documents: pass file paths as arguments or set ingestion.input_paths")
		}
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			cfg.Export.OutputPath = out
		}
		if format, _ := cmd.Flags().GetString("format"); format != "" {
			cfg.Export.Format = format
		}

		log := newLogger(cmd)

		llmCfg := llm.ConfigFromEnv()
		if err := llmCfg.Validate(); err != nil {
			discovered, ok := llm.DiscoverConfig()
			if !ok {
				return err
			}
			llmCfg = discovered
		}
		llmCfg.Timeout = cfg.PerCallTimeout
		llmCfg.Retry.MaxAttempts = cfg.MaxRetries + 1

		var recorder llm.Recorder
		if path := resolveAuditPath(cmd, cfg.AuditDB); path != "" {
			audit, err := auditlog.Open(path)
			if err != nil {
				return err
			}
			defer audit.Close()
			recorder = audit
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provider, err := llm.NewProvider(ctx, llmCfg, log, recorder)
		if err != nil {
			return err
		}

		p, err := pipeline.New(cfg, provider, log)
		if err != nil {
			return err
		}

		result, err := p.Run(ctx)
		if err != nil {
			return err
		}

		counts := result.Report.Counts
		fmt.Printf("accepted %d, rejected %d, errored chunks %d\n", counts.Accepted, counts.Rejected, counts.Errored)
		fmt.Printf("dataset written to %s\n", cfg.Export.OutputPath)
		return nil
	},
}

func newLogger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func init() {
	runCmd.Flags().StringP("output", "o", "", "Output file path (overrides config)")
	runCmd.Flags().StringP("format", "f", "", "Output format: jsonl or csv (overrides config)")
	runCmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
}
