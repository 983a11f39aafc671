package famstore

import (
	"encoding/json"
	"os"
)

// Prefs is the flat config JSON remembering the operator's last-used
// directories between sessions.
type Prefs struct {
	LastImportDir     string `json:"last_import_dir"`
	LastScreenshotDir string `json:"last_screenshot_dir"`
}

func LoadPrefs(path string) (Prefs, error) {
	var p Prefs
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	err = json.Unmarshal(data, &p)
	return p, err
}

func (p Prefs) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}
