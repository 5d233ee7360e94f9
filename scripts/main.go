package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/fitclub/billing/scripts/internal"
)

type command struct {
	description string
	run         func() error
}

var commands = map[string]command{
	"import-plans": {
		description: "Import plans from the CSV file at FILE_PATH",
		run:         internal.ImportPlans,
	},
	"run-sweep": {
		description: "Run one sweep (SWEEP=expire|remind|auto_renew|expire_stale_sessions, optional DATE, DAYS_BEFORE)",
		run:         internal.RunSweep,
	},
}

func main() {
	cmdName := flag.String("cmd", os.Getenv("SCRIPT_CMD"), "script to run")
	flag.Parse()

	cmd, ok := commands[*cmdName]
	if !ok {
		printUsage()
		os.Exit(1)
	}

	if err := cmd.run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", *cmdName, err)
		os.Exit(1)
	}
}

func printUsage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("usage: go run scripts/main.go -cmd <name>")
	for _, name := range names {
		fmt.Printf("  %-14s %s\n", name, commands[name].description)
	}
}
