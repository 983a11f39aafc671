package main

import (
	"os"

	"formfiller-backend/cmd/formfiller/commands"
	"formfiller-backend/lib/serviceutil"
	"formfiller-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	// no telemetry.json5 means no exporters, not a broken install
	t, err := telemetry.SetupFromEnv(ctx, "formfiller")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	if err == nil {
		defer t.Shutdown(ctx)
		telemetry.InstrumentPerfStats(ctx)
	}
	telemetry.InitSlog(false)
	defer serviceutil.CrashGuard(".")

	commands.ExecuteContext(ctx)
}
