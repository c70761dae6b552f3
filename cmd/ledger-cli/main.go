package main

import (
	"context"

	"mealplan-backend/cmd/ledger-cli/commands"
	"mealplan-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "ledger-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
