package runstore

import (
	"context"
	"database/sql"
	"testing"
	"time"
	dbschema "formfiller-backend/lib/runstore/db"
	"formfiller-backend/lib/telemetry"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setup(t *testing.T) Store {
	cleanup := telemetry.SetupForTesting(t, "test:runstore")
	t.Cleanup(cleanup)

	sqlite, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	_, err = sqlite.Exec(dbschema.Schema)
	require.NoError(t, err)

	return NewStore(sqlite)
}

func TestJournalRoundTrip(t *testing.T) {
	store := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	runID, err := store.BeginRun(ctx)
	require.NoError(t, err)

	err = store.RecordOutcome(ctx, runID, Outcome{
		RecordKey:      "иванова мария сергеевна",
		Status:         "success",
		Attempt:        1,
		ScreenshotPath: "screenshots/001_Иванова_Мария.png",
	})
	require.NoError(t, err)
	err = store.RecordOutcome(ctx, runID, Outcome{
		RecordKey: "петров иван иванович",
		Status:    "error",
		Attempt:   2,
		ErrorText: "search results never appeared",
	})
	require.NoError(t, err)

	err = store.FinishRun(ctx, runID)
	require.NoError(t, err)

	outcomes, err := store.Outcomes(ctx, runID)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.Equal(t, "success", outcomes[0].Status)
	require.Equal(t, "иванова мария сергеевна", outcomes[0].RecordKey)
	require.Equal(t, "error", outcomes[1].Status)
	require.Equal(t, 2, outcomes[1].Attempt)
}

func TestOutcomesIsolatedPerRun(t *testing.T) {
	store := setup(t)

	ctx := context.Background()

	run1, err := store.BeginRun(ctx)
	require.NoError(t, err)
	run2, err := store.BeginRun(ctx)
	require.NoError(t, err)

	require.NoError(t, store.RecordOutcome(ctx, run1, Outcome{RecordKey: "a", Status: "success", Attempt: 1}))
	require.NoError(t, store.RecordOutcome(ctx, run2, Outcome{RecordKey: "b", Status: "skipped", Attempt: 1}))

	outcomes, err := store.Outcomes(ctx, run2)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, "b", outcomes[0].RecordKey)
}
