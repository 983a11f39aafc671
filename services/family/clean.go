package family

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"formfiller-backend/lib/textutil"
)

// MinChildBirthYear is the cutoff under the program's definition of a
// child: anyone born earlier is not eligible and is dropped at ingest.
const MinChildBirthYear = 2000

var yearRegex = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// BirthYear extracts a four-digit year from the child's birth date,
// which may be a full date or a bare year. Returns 0 when none found.
func (c Child) BirthYear() int {
	if cleaned := textutil.CleanDate(c.BirthDate); cleaned != "" {
		year, _ := strconv.Atoi(cleaned[6:])
		return year
	}
	match := yearRegex.FindString(c.BirthDate)
	if match == "" {
		return 0
	}
	year, _ := strconv.Atoi(match)
	return year
}

// Eligible reports whether the entry counts as a child under the
// birth-year cutoff. Entries with no recognizable year are kept and
// left for the operator to sort out.
func (c Child) Eligible() bool {
	year := c.BirthYear()
	return year == 0 || year >= MinChildBirthYear
}

// Clean normalizes the record in place: dates to DD.MM.YYYY, phone to
// the 7XXXXXXXXXX form, names trimmed, ineligible children dropped.
// Cleaning is idempotent.
func (r *Record) Clean() {
	r.Mother.Name = collapse(r.Mother.Name)
	r.Father.Name = collapse(r.Father.Name)
	r.Mother.BirthDate = cleanDateKeep(r.Mother.BirthDate)
	r.Father.BirthDate = cleanDateKeep(r.Father.BirthDate)

	if p := textutil.CleanPhone(r.Phone); p != "" {
		r.Phone = p
	}
	r.Address = collapse(r.Address)

	kept := r.Children[:0]
	for _, c := range r.Children {
		if !c.Eligible() {
			slog.Debug("dropping non-child entry",
				"name", c.Name, "birth_year", c.BirthYear())
			continue
		}
		c.Name = collapse(c.Name)
		c.BirthDate = cleanDateKeep(c.BirthDate)
		kept = append(kept, c)
	}
	r.Children = kept

	r.Alarm.InstallDate = cleanDateKeep(r.Alarm.InstallDate)
	r.Alarm.CheckDate = cleanDateKeep(r.Alarm.CheckDate)

	if r.Status == "" {
		r.Status = StatusPending
	}
}

// Classify assigns the ingest-time status: records with no parent name
// at all can never be transcribed and are skipped outright.
func (r *Record) Classify() Status {
	if !r.HasParentName() {
		r.Status = StatusSkipped
		return r.Status
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return r.Status
}

// cleanDateKeep normalizes a date but keeps the raw text when it does
// not parse, so the operator still sees what the spreadsheet had.
func cleanDateKeep(raw string) string {
	cleaned := textutil.CleanDate(raw)
	if cleaned == "" {
		return strings.TrimSpace(raw)
	}
	return cleaned
}

var spaceRegex = regexp.MustCompile(`\s+`)

func collapse(s string) string {
	return spaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}
