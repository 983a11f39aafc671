package registry

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"formfiller-backend/lib/textutil"
	"formfiller-backend/services/family"

	"github.com/antzucaro/matchr"
)

// Registry holds the read-only reference data loaded from the
// spreadsheet registries, keyed by normalized full name. It is used
// only to pre-populate records, never mutated.
type Registry struct {
	families map[string]family.Record
	alarms   map[string]family.Alarm
	names    []string
}

func New(families []family.Record, alarms map[string]family.Alarm) *Registry {
	r := &Registry{
		families: make(map[string]family.Record, len(families)),
		alarms:   alarms,
	}
	if r.alarms == nil {
		r.alarms = map[string]family.Alarm{}
	}
	for _, f := range families {
		key := f.Key()
		if key == "" {
			continue
		}
		r.families[key] = f
		r.names = append(r.names, f.PrimaryName())
	}
	return r
}

// Lookup finds the registry record for a full name.
func (r *Registry) Lookup(name string) (family.Record, bool) {
	rec, ok := r.families[textutil.NormalizeName(name)]
	return rec, ok
}

// Alarm finds the fire-alarm sub-record for a full name.
func (r *Registry) Alarm(name string) (family.Alarm, bool) {
	a, ok := r.alarms[textutil.NormalizeName(name)]
	return a, ok
}

// Enrich fills a record's alarm sub-record from the alarm registry
// when the record doesn't already carry one.
func (r *Registry) Enrich(rec *family.Record) {
	if rec.Alarm.Installed {
		return
	}
	a, ok := r.Alarm(rec.PrimaryName())
	if ok {
		rec.Alarm = a
	}
}

type suggestion struct {
	name  string
	score float64
}

// Suggest returns up to max registry names closest to the query,
// for the operator to confirm near-miss matches against the prior
// registry.
func (r *Registry) Suggest(name string, max int) []string {
	query := textutil.NormalizeName(name)
	if query == "" || len(r.names) == 0 {
		return nil
	}

	scored := make([]suggestion, 0, len(r.names))
	for _, candidate := range r.names {
		score := matchr.JaroWinkler(query, textutil.NormalizeName(candidate), true)
		scored = append(scored, suggestion{name: candidate, score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if max > len(scored) {
		max = len(scored)
	}
	out := make([]string, 0, max)
	for _, s := range scored[:max] {
		if s.score < 0.8 {
			break
		}
		out = append(out, s.name)
	}
	return out
}

// Size reports how many family rows were loaded.
func (r *Registry) Size() int {
	return len(r.families)
}

func checkSpreadsheetExt(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx", ".xlsm":
		return nil
	case ".xls", ".ods":
		return fmt.Errorf("legacy spreadsheet format %s is not supported, re-save %s as .xlsx", ext, filepath.Base(path))
	}
	return fmt.Errorf("unrecognized spreadsheet format %s", ext)
}

// parseChildren splits the children cell: entries separated by ';',
// each entry a name with an optional trailing date or year.
func parseChildren(cell string) []family.Child {
	var out []family.Child
	for _, entry := range strings.Split(cell, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name := entry
		birth := ""
		fields := strings.Fields(entry)
		if len(fields) > 1 {
			last := fields[len(fields)-1]
			if looksLikeDate(last) {
				birth = last
				name = strings.Join(fields[:len(fields)-1], " ")
			}
		}
		out = append(out, family.Child{Name: name, BirthDate: birth})
	}
	return out
}

func looksLikeDate(s string) bool {
	if textutil.CleanDate(s) != "" {
		return true
	}
	if len(s) == 4 {
		_, err := strconv.Atoi(s)
		return err == nil
	}
	return false
}

// parseIncome splits "категория: сумма" pairs separated by ';'.
func parseIncome(cell string) map[string]string {
	out := map[string]string{}
	for _, entry := range strings.Split(cell, ";") {
		key, value, found := strings.Cut(entry, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			out[key] = value
		}
	}
	return out
}

// truthy recognizes the yes-markers clerks actually type.
func truthy(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "да", "есть", "установлен", "установлено", "+", "1", "yes", "true":
		return true
	}
	return false
}
