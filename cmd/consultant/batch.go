package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/consultant/internal/service/consult"
	"github.com/zhouzirui/consultant/internal/service/session"
)

var (
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
)

func runBatch(cmd *cobra.Command, args []string) error {
	doc, err := consult.LoadBatchFile(args[0])
	if err != nil {
		return err
	}
	limit := doc.Concurrency
	if batchConcurrency > 0 {
		limit = batchConcurrency
	}

	engine, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}

	results := engine.RunBatch(cmd.Context(), doc.Jobs, limit)
	exportDir := ""
	if batchExport {
		exportDir = cfg.Storage.ExportDir
	}
	return reportBatch(cmd.OutOrStdout(), engine, results, exportDir)
}

// reportBatch prints each result and, when exportDir is set, exports every
// job's session there. Failed jobs and failed exports both fail the run.
func reportBatch(out io.Writer, engine *consult.Engine, results []consult.BatchResult, exportDir string) error {
	failed, exportFailed := 0, 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(out, "%s %s (%s): %v\n", failStyle.Render("FAIL"), res.Job.Name, res.Elapsed.Round(time.Millisecond), res.Err)
		} else {
			fmt.Fprintf(out, "%s %s (%s)\n\n%s\n\n", okStyle.Render("OK"), res.Job.Name, res.Elapsed.Round(time.Millisecond), res.Reply)
		}

		if exportDir != "" {
			path := filepath.Join(exportDir, session.DefaultExportName(res.SessionID))
			if err := engine.ExportSession(res.SessionID, path); err != nil {
				exportFailed++
				zap.L().Warn("batch export failed", zap.String("job", res.Job.Name), zap.Error(err))
			}
		}
	}

	switch {
	case failed > 0 && exportFailed > 0:
		return fmt.Errorf("%d of %d jobs failed, %d exports failed", failed, len(results), exportFailed)
	case failed > 0:
		return fmt.Errorf("%d of %d jobs failed", failed, len(results))
	case exportFailed > 0:
		return fmt.Errorf("%d of %d exports failed", exportFailed, len(results))
	}
	return nil
}
