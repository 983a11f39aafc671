package registry

import (
	"path/filepath"
	"testing"

	"formfiller-backend/lib/telemetry"
	"formfiller-backend/services/family"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeSheet(t *testing.T, name string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, axis, cell))
		}
	}

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadFamilies(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:registry")
	defer cleanup()

	path := writeSheet(t, "families.xlsx", [][]any{
		{
			"Иванова Мария Сергеевна", "15.03.1985", "школа №3", "работает",
			"", "", "", "",
			"Иванов Петр 2015; Иванова Анна 01.09.2018",
			"зарплата: 25000; пособие: 4500",
			"2", "44.5", "частичные",
			"г. Тавда, ул. Ленина, д. 5", "89261234567",
		},
		// row with no parent names is skipped
		{"", "", "", "", "", "", "", "", "кто-то 2010"},
	})

	records, err := LoadFamilies(path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	require.Equal(t, "Иванова Мария Сергеевна", rec.Mother.Name)
	require.True(t, rec.SingleParent())
	require.Len(t, rec.Children, 2)
	require.Equal(t, "Иванов Петр", rec.Children[0].Name)
	require.Equal(t, "01.09.2018", rec.Children[1].BirthDate)
	require.Equal(t, "25000", rec.Income["зарплата"])
	require.Equal(t, 2, rec.Housing.Rooms)
	require.Equal(t, "79261234567", rec.Phone)
}

func TestLoadFamiliesRejectsLegacyFormat(t *testing.T) {
	_, err := LoadFamilies("registry.xls")
	require.Error(t, err)
	require.Contains(t, err.Error(), ".xls")

	_, err = LoadFamilies("registry.ods")
	require.Error(t, err)
}

func TestLoadAlarms(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:registry")
	defer cleanup()

	path := writeSheet(t, "alarms.xlsx", [][]any{
		{"1", "Иванова Мария Сергеевна", "x", "да", "x", "x", "02.06.2021", "01.08.2025"},
		{"2", "Петрова Анна Ивановна", "x", "нет", "x", "x", "", ""},
	})

	alarms, err := LoadAlarms(path)
	require.NoError(t, err)
	require.Len(t, alarms, 2)

	a := alarms["иванова мария сергеевна"]
	require.True(t, a.Installed)
	require.Equal(t, "02.06.2021", a.InstallDate)
	require.Equal(t, "01.08.2025", a.CheckDate)

	require.False(t, alarms["петрова анна ивановна"].Installed)
}

func TestRegistryLookupAndEnrich(t *testing.T) {
	reg := New(
		[]family.Record{
			{Mother: family.Person{Name: "Иванова Мария Сергеевна"}},
		},
		map[string]family.Alarm{
			"иванова мария сергеевна": {Installed: true, InstallDate: "02.06.2021"},
		},
	)

	_, ok := reg.Lookup("ИВАНОВА  Мария Сергеевна")
	require.True(t, ok)

	rec := family.Record{Mother: family.Person{Name: "Иванова Мария Сергеевна"}}
	reg.Enrich(&rec)
	require.True(t, rec.Alarm.Installed)
	require.Equal(t, "02.06.2021", rec.Alarm.InstallDate)
}

func TestSuggest(t *testing.T) {
	reg := New([]family.Record{
		{Mother: family.Person{Name: "Иванова Мария Сергеевна"}},
		{Mother: family.Person{Name: "Иванова Марина Сергеевна"}},
		{Mother: family.Person{Name: "Сидоров Олег Петрович"}},
	}, nil)

	got := reg.Suggest("Иванова Мария Сергевна", 2)
	require.NotEmpty(t, got)
	require.Equal(t, "Иванова Мария Сергеевна", got[0])
}
