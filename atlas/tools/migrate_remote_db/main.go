package main

import (
	"fmt"
	"os"
	"os/exec"

	"motifcore/src/config"
	"motifcore/src/database"
	"motifcore/src/datamodels"
)

// Applies the atlas migrations to the postgres journal named in the config.
// Run from the repo root so the migrations dir resolves.

func main() {
	appConfig, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !appConfig.JournalConfig.Enabled || appConfig.JournalConfig.Driver != datamodels.JournalDriverPostgres {
		fmt.Println("journal is not on postgres, nothing to migrate")
		return
	}

	uri := database.MakeConnectionString(&appConfig.DatabaseConfig)

	fmt.Printf("Executing migrations against db at: %s\n", appConfig.DatabaseConfig.Host)

	cmd := exec.Command("atlas", "migrate", "apply",
		"--url", uri,
		"--dir", "file://atlas/migrations",
	)
	output, err := cmd.CombinedOutput()

	fmt.Print(string(output))

	if err != nil {
		fmt.Printf("failed to run Atlas migrations: %v\n", err)
		os.Exit(1)
	}
}
