// Package cmd assembles the camtrap command line interface.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/safeproject/camtrap-go/cmd/consolidate"
	"github.com/safeproject/camtrap-go/cmd/extract"
	"github.com/safeproject/camtrap-go/internal/conf"
	"github.com/safeproject/camtrap-go/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "camtrap",
		Short: "Camera trap deployment tools",
		Long: "Consolidates scattered camera trap image folders into standard " +
			"deployment folders and extracts their metadata into tabular reports.",
		SilenceUsage: true,
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		consolidate.Command(settings),
		extract.Command(settings),
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Flags override the config file; re-init logging once the final
		// debug value is known.
		settings.Debug = viper.GetBool("debug")
		logging.Init(settings.Debug)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		logging.Error("error binding flags", "error", err)
	}
}
