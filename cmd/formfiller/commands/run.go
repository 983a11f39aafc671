package commands

import (
	"context"
	"fmt"
	"log/slog"

	"formfiller-backend/lib/browser"
	"formfiller-backend/lib/runstore"
	"formfiller-backend/lib/serviceutil"
	"formfiller-backend/services/family"
	"formfiller-backend/services/famstore"
	"formfiller-backend/services/transcriber"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Processes the working set of families into the portal.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		ctx := cmd.Context()

		err = transcriber.Preflight(ctx, cfg.Transcriber)
		if err != nil {
			serviceutil.Fatal("portal preflight failed", err)
		}

		console := NewConsole()
		store := famstore.NewStore(cfg.Paths.WorkingSet, cfg.Paths.CompletedDir)

		var journal *runstore.Store
		if cfg.Paths.JournalDB != "" {
			j, err := runstore.Open(cfg.Paths.JournalDB)
			if err != nil {
				serviceutil.Fatal("failed to open run journal", err)
			}
			defer j.Close()
			journal = &j
		}

		ctrl := transcriber.NewController(transcriber.ControllerOptions{
			Store:   store,
			Journal: journal,
			Decider: console,
			NewProcessor: func(ctx context.Context) (transcriber.Processor, func(), error) {
				session, err := browser.NewSession(ctx, cfg.Browser)
				if err != nil {
					return nil, nil, err
				}
				svc := transcriber.NewService(cfg.Transcriber, session, console)
				return svc, session.Close, nil
			},
			ScreenshotDir: cfg.Paths.ScreenshotDir,
			StopOnError:   cfg.Batch.StopOnError,
			PaceMinMs:     cfg.Batch.PaceMinMs,
			PaceMaxMs:     cfg.Batch.PaceMaxMs,
		})

		summary, err := ctrl.Run(ctx)
		if err != nil {
			slog.Error("batch ended early", "err", err)
		}
		printSummary(summary)
	},
}

func printSummary(s transcriber.Summary) {
	t := newTable()
	t.AppendHeader(table.Row{"Итог", "Количество"})
	t.AppendRow(table.Row{"Успешно", s.Success})
	t.AppendRow(table.Row{"С ошибкой", s.Errors})
	t.AppendRow(table.Row{"Пропущено", s.Skipped})
	t.Render()

	if s.ArchivePath != "" {
		fmt.Printf("Архив: %s\n", s.ArchivePath)
	}

	var stuck []string
	for key, status := range s.Statuses {
		if status == family.StatusError || status == family.StatusNeedsManual {
			stuck = append(stuck, key)
		}
	}
	if len(stuck) > 0 {
		fmt.Println("Требуют ручной обработки:")
		for _, key := range stuck {
			fmt.Printf("  - %s\n", key)
		}
	}
}
