package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"formfiller-backend/lib/serviceutil"
	"formfiller-backend/services/family"
	"formfiller-backend/services/famstore"
	"formfiller-backend/services/registry"

	"github.com/spf13/cobra"
)

var alarmsPath *string

func init() {
	alarmsPath = importCmd.Flags().String("alarms", "", "Optional fire-alarm registry spreadsheet.")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <families.xlsx> [--alarms <alarms.xlsx>]",
	Short: "Imports a family registry spreadsheet into the working set.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		families, err := registry.LoadFamilies(args[0])
		if err != nil {
			serviceutil.Fatal("failed to load family registry", err)
		}

		var alarms map[string]family.Alarm
		if *alarmsPath != "" {
			alarms, err = registry.LoadAlarms(*alarmsPath)
			if err != nil {
				serviceutil.Fatal("failed to load alarm registry", err)
			}
		}

		reg := registry.New(families, alarms)
		for i := range families {
			reg.Enrich(&families[i])
		}

		store := famstore.NewStore(cfg.Paths.WorkingSet, cfg.Paths.CompletedDir)
		existing, err := store.LoadWorking()
		if err != nil {
			serviceutil.Fatal("failed to load working set", err)
		}

		added := 0
		known := map[string]bool{}
		for _, r := range existing {
			known[r.Key()] = true
		}
		for _, r := range families {
			if known[r.Key()] {
				continue
			}
			existing = append(existing, r)
			known[r.Key()] = true
			added++
		}

		err = store.SaveWorking(existing)
		if err != nil {
			serviceutil.Fatal("failed to save working set", err)
		}

		prefs, err := famstore.LoadPrefs(cfg.Paths.Prefs)
		if err == nil {
			prefs.LastImportDir = filepath.Dir(args[0])
			err = prefs.Save(cfg.Paths.Prefs)
		}
		if err != nil {
			slog.Warn("failed to update prefs", "err", err)
		}

		fmt.Printf("Импортировано семей: %d (новых: %d, всего в работе: %d)\n",
			len(families), added, len(existing))
	},
}
