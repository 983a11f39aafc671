package registry

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"formfiller-backend/lib/textutil"
	"formfiller-backend/services/family"

	"github.com/xuri/excelize/v2"
)

// Family registry column layout. The sheets are headerless and
// positional, so any column reordering upstream breaks ingestion.
const (
	colMotherName = iota
	colMotherBirth
	colMotherWork
	colMotherEmployment
	colFatherName
	colFatherBirth
	colFatherWork
	colFatherEmployment
	colChildren
	colIncome
	colRooms
	colArea
	colAmenities
	colAddress
	colPhone

	familyColumnCount = colPhone + 1
)

// Alarm registry columns: only 1, 3, 6 and 7 carry data.
const (
	alarmColName    = 1
	alarmColPresent = 3
	alarmColInstall = 6
	alarmColCheck   = 7
)

// LoadFamilies reads the headerless family registry spreadsheet.
// Rows without a parent name in either name column are skipped with a
// warning rather than failing the whole import.
func LoadFamilies(path string) ([]family.Record, error) {
	err := checkSpreadsheetExt(path)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, err
	}

	var out []family.Record
	for i, row := range rows {
		rec, ok := familyFromRow(row)
		if !ok {
			slog.Warn("skipping registry row with no parent name", "row", i+1)
			continue
		}
		out = append(out, rec)
	}
	slog.Info("loaded family registry", "path", path, "rows", len(out))
	return out, nil
}

func familyFromRow(row []string) (family.Record, bool) {
	padded := make([]string, familyColumnCount)
	copy(padded, row)

	rec := family.Record{
		Mother: family.Person{
			Name:       padded[colMotherName],
			BirthDate:  padded[colMotherBirth],
			Workplace:  padded[colMotherWork],
			Employment: padded[colMotherEmployment],
		},
		Father: family.Person{
			Name:       padded[colFatherName],
			BirthDate:  padded[colFatherBirth],
			Workplace:  padded[colFatherWork],
			Employment: padded[colFatherEmployment],
		},
		Children: parseChildren(padded[colChildren]),
		Income:   parseIncome(padded[colIncome]),
		Housing: family.Housing{
			Rooms:     atoiOrZero(padded[colRooms]),
			Area:      strings.TrimSpace(padded[colArea]),
			Amenities: strings.TrimSpace(padded[colAmenities]),
		},
		Address: padded[colAddress],
		Phone:   padded[colPhone],
	}
	rec.Clean()
	if !rec.HasParentName() {
		return family.Record{}, false
	}
	return rec, true
}

// LoadAlarms reads the fire-alarm device registry, keyed by
// normalized full name.
func LoadAlarms(path string) (map[string]family.Alarm, error) {
	err := checkSpreadsheetExt(path)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, err
	}

	out := map[string]family.Alarm{}
	for _, row := range rows {
		padded := make([]string, alarmColCheck+1)
		copy(padded, row)

		key := textutil.NormalizeName(padded[alarmColName])
		if key == "" {
			continue
		}
		out[key] = family.Alarm{
			Installed:   truthy(padded[alarmColPresent]),
			InstallDate: textutil.CleanDate(padded[alarmColInstall]),
			CheckDate:   textutil.CleanDate(padded[alarmColCheck]),
		}
	}
	slog.Info("loaded alarm registry", "path", path, "rows", len(out))
	return out, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
