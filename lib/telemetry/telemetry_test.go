package telemetry

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupFromEnvReportsMissingConfig(t *testing.T) {
	// callers distinguish "no telemetry.json5 anywhere" from real
	// setup failures with os.IsNotExist, so the sentinel must survive
	// the recursive search
	t.Chdir(t.TempDir())

	_, err := SetupFromEnv(context.Background(), "telemetry-test")
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}
