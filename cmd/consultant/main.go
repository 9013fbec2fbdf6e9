package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zhouzirui/consultant/internal/app"
	"github.com/zhouzirui/consultant/internal/config"
	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/service/consult"
	"github.com/zhouzirui/consultant/internal/shell"
)

var (
	verbose   bool
	modeFlag  string
	exportDir string
	rawOutput bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "consultant",
	Short: "AI marketing consultant: strategy, social media, SEO and budget advice",
	Long: `consultant runs an interactive marketing consultation backed by a
large language model. Without a subcommand it starts the interactive shell.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if exportDir != "" {
			cfg.Storage.ExportDir = exportDir
		}
		if !verbose && cfg.Log.Level < zapcore.WarnLevel {
			cfg.Log.Level = zapcore.WarnLevel
		}
		logger, err = cfg.Log.NewLogger()
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runShell,
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask a single question in a fresh session and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the consultation modes",
	RunE: func(cmd *cobra.Command, args []string) error {
		templates, err := cfg.AI.Templates()
		if err != nil {
			return err
		}
		for _, tpl := range templates.List() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-13s %s\n", tpl.Mode, tpl.Title)
		}
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [jobs.yaml]",
	Short: "Run independent consultations from a YAML jobs file concurrently",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

var (
	batchConcurrency int
	batchExport      bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&modeFlag, "mode", "m", string(mode.Chat), "Consultation mode (chat, strategy, social_media, seo, budget)")
	rootCmd.PersistentFlags().StringVar(&exportDir, "export-dir", "", "Directory for saved sessions (default: EXPORT_DIR or ./sessions)")
	rootCmd.PersistentFlags().BoolVar(&rawOutput, "raw", false, "Print replies without markdown rendering")

	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 0, "Maximum concurrent jobs (default: file setting or 4)")
	batchCmd.Flags().BoolVar(&batchExport, "export", false, "Export every job's session to the export directory")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(modesCmd)
	rootCmd.AddCommand(batchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func buildEngine(ctx context.Context) (*consult.Engine, error) {
	engine, _, err := app.Build(ctx, cfg, logger)
	return engine, err
}

func newRenderer() shell.Renderer {
	if rawOutput {
		return nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		logger.Debug("markdown renderer unavailable", zap.Error(err))
		return nil
	}
	return renderer
}

func runShell(cmd *cobra.Command, args []string) error {
	m, err := mode.ParseMode(modeFlag)
	if err != nil {
		return err
	}
	engine, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}

	sh := shell.New(engine, cmd.InOrStdin(), cmd.OutOrStdout(),
		shell.WithMode(m),
		shell.WithRenderer(newRenderer()),
		shell.WithExportDir(cfg.Storage.ExportDir),
		shell.WithLogger(logger.Named("shell")),
	)
	return sh.Run(cmd.Context())
}
