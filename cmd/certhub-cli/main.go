package main

import (
	"context"
	"os"

	"certifyhub-backend/cmd/certhub-cli/commands"
	"certifyhub-backend/lib/serviceutil"
	"certifyhub-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(true)
	err := telemetry.SetupFromEnv(ctx, "certhub-cli")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
