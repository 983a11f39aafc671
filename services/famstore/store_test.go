package famstore

import (
	"path/filepath"
	"testing"
	"time"

	"formfiller-backend/lib/telemetry"
	"formfiller-backend/lib/timezone"
	"formfiller-backend/services/family"

	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) Store {
	cleanup := telemetry.SetupForTesting(t, "test:famstore")
	t.Cleanup(cleanup)

	dir := t.TempDir()
	return NewStore(
		filepath.Join(dir, "autosave_families.json"),
		filepath.Join(dir, "completed"),
	)
}

func sampleRecord(mother string) family.Record {
	rec := family.Record{
		Mother: family.Person{Name: mother, BirthDate: "15.03.1985", Workplace: "школа №3"},
		Children: []family.Child{
			{Name: "Иванов Петр", BirthDate: "01.09.2015", School: "школа №3"},
		},
		Income:  map[string]string{"salary": "25000", "benefits": "4500"},
		Housing: family.Housing{Rooms: 2, Area: "44.5", Amenities: "частичные", Ownership: "собственность"},
		Phone:   "79261234567",
		Address: "г. Тавда, ул. Ленина, д. 5",
		Alarm:   family.Alarm{Installed: true, InstallDate: "02.06.2021", CheckDate: "01.08.2025"},
	}
	rec.Clean()
	return rec
}

func TestWorkingSetRoundTrip(t *testing.T) {
	store := testStore(t)

	// missing file reads as empty
	records, err := store.LoadWorking()
	require.NoError(t, err)
	require.Empty(t, records)

	saved := []family.Record{sampleRecord("Иванова Мария Сергеевна")}
	require.NoError(t, store.SaveWorking(saved))

	loaded, err := store.LoadWorking()
	require.NoError(t, err)
	require.Equal(t, saved, loaded)

	// cleaning a reloaded record changes nothing
	reloaded := loaded[0]
	reloaded.Clean()
	require.Equal(t, saved[0], reloaded)
}

func TestArchiveMovesRecords(t *testing.T) {
	store := testStore(t)

	a := sampleRecord("Иванова Мария Сергеевна")
	b := sampleRecord("Петрова Анна Ивановна")
	require.NoError(t, store.SaveWorking([]family.Record{a, b}))

	now := timezone.Now()
	path, err := store.Archive([]family.Record{a}, now)
	require.NoError(t, err)
	require.Contains(t, path, timezone.WeekBucket(now))
	require.Contains(t, path, now.Format("02.01.2006"))

	archived, err := store.LoadArchive(path)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	require.Equal(t, a.Key(), archived[0].Key())

	working, err := store.LoadWorking()
	require.NoError(t, err)
	require.Len(t, working, 1)
	require.Equal(t, b.Key(), working[0].Key())
}

func TestArchiveAppendsSameDay(t *testing.T) {
	store := testStore(t)

	a := sampleRecord("Иванова Мария Сергеевна")
	b := sampleRecord("Петрова Анна Ивановна")
	require.NoError(t, store.SaveWorking([]family.Record{a, b}))

	now := time.Date(2025, 9, 1, 10, 0, 0, 0, timezone.Location)
	_, err := store.Archive([]family.Record{a}, now)
	require.NoError(t, err)
	path, err := store.Archive([]family.Record{b}, now)
	require.NoError(t, err)

	archived, err := store.LoadArchive(path)
	require.NoError(t, err)
	require.Len(t, archived, 2)
}

func TestScreenshotName(t *testing.T) {
	require.Equal(t, "007_Иванова_Мария.png", ScreenshotName(7, "Иванова /Мария?"))
}
