package commands

import (
	"formfiller-backend/lib/browser"
	"formfiller-backend/lib/configutil"
	"formfiller-backend/services/transcriber"
)

type PathsConfig struct {
	// WorkingSet is the JSON file holding the records to process.
	WorkingSet string `json:"working_set"`
	// CompletedDir receives the weekly archive folders.
	CompletedDir string `json:"completed_dir"`
	// ScreenshotDir receives the per-record confirmation PNGs.
	ScreenshotDir string `json:"screenshot_dir"`
	// JournalDB is the optional sqlite run journal. Empty disables it.
	JournalDB string `json:"journal_db"`
	// Prefs remembers the operator's last-used directories.
	Prefs string `json:"prefs"`
}

type BatchConfig struct {
	StopOnError bool `json:"stop_on_error"`
	PaceMinMs   int  `json:"pace_min_ms"`
	PaceMaxMs   int  `json:"pace_max_ms"`
}

type Config struct {
	Browser     browser.Config     `json:"browser"`
	Transcriber transcriber.Config `json:"transcriber"`
	Paths       PathsConfig        `json:"paths"`
	Batch       BatchConfig        `json:"batch"`
}

func (c *Config) applyDefaults() {
	if c.Paths.WorkingSet == "" {
		c.Paths.WorkingSet = "autosave_families.json"
	}
	if c.Paths.CompletedDir == "" {
		c.Paths.CompletedDir = "completed"
	}
	if c.Paths.ScreenshotDir == "" {
		c.Paths.ScreenshotDir = "screenshots"
	}
	if c.Paths.Prefs == "" {
		c.Paths.Prefs = "prefs.json"
	}
}

func loadConfig() (Config, error) {
	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}
