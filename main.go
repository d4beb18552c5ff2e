package main

import (
	"fmt"
	"os"

	"github.com/safeproject/camtrap-go/cmd"
	"github.com/safeproject/camtrap-go/internal/conf"
	"github.com/safeproject/camtrap-go/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(settings.Debug)

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
