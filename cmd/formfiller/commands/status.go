package commands

import (
	"formfiller-backend/lib/serviceutil"
	"formfiller-backend/services/family"
	"formfiller-backend/services/famstore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the state of every record in the working set.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		store := famstore.NewStore(cfg.Paths.WorkingSet, cfg.Paths.CompletedDir)
		records, err := store.LoadWorking()
		if err != nil {
			serviceutil.Fatal("failed to load working set", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"№", "Семья", "Телефон", "Статус"})
		for i := range records {
			rec := &records[i]
			status := rec.Status
			if status == "" {
				status = family.StatusPending
			}
			t.AppendRow(table.Row{i + 1, rec.PrimaryName(), rec.Phone, string(status)})
		}
		t.Render()
	},
}
