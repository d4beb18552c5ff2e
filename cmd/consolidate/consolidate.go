// Package consolidate implements the consolidate subcommand: build and
// validate a naming plan over the source folders, then optionally execute it.
package consolidate

import (
	"github.com/spf13/cobra"

	"github.com/safeproject/camtrap-go/internal/conf"
	"github.com/safeproject/camtrap-go/internal/deployment"
	"github.com/safeproject/camtrap-go/internal/logging"
	"github.com/safeproject/camtrap-go/internal/metadata"
)

// Command creates the consolidate subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consolidate [output_root] [image_dir]...",
		Short: "Consolidate camera trap folders into a deployment folder",
		Long: "Collects images from one or more source folders into a single " +
			"deployment folder named {location}_{date}, renaming every image to " +
			"a standard collision-checked format. Source files are never deleted " +
			"or modified. By default the command only validates and reports; " +
			"pass --execute to copy files.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Consolidate.OutputRoot = args[0]
			settings.Consolidate.SourceDirs = args[1:]
			return run(settings)
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags defines flags specific to the consolidate command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVarP(&settings.Consolidate.Location, "location", "l", "",
		"Location code used in folder and file names, checked against any location tags in the images")
	cmd.Flags().StringArrayVarP(&settings.Consolidate.CalibDirs, "calib", "c", nil,
		"Path to a folder of calibration images, repeatable")
	cmd.Flags().BoolVarP(&settings.Consolidate.Execute, "execute", "x", settings.Consolidate.Execute,
		"Actually copy files; the default is a validation dry run")
	cmd.Flags().IntVar(&settings.Consolidate.ReportLimit, "report", settings.Consolidate.ReportLimit,
		"Maximum number of problem files listed per diagnostic")
}

// run wires the metadata oracle, namer and consolidator together.
func run(settings *conf.Settings) error {
	log := logging.ForService("consolidate")

	tool, err := metadata.NewExifTool()
	if err != nil {
		return err
	}
	defer tool.Close()

	namer := deployment.NewNamer(tool, settings.Consolidate.ReportLimit)
	plan, err := namer.BuildPlan(
		settings.Consolidate.Location,
		settings.Consolidate.SourceDirs,
		settings.Consolidate.CalibDirs,
	)
	if err != nil {
		return err
	}

	consolidator := deployment.NewConsolidator(tool, settings.Consolidate.CopyWorkers)
	report, err := consolidator.Execute(plan, settings.Consolidate.OutputRoot, settings.Consolidate.Execute)
	if err != nil {
		return err
	}

	if !report.Executed {
		log.Info("validation passed, re-run with --execute to copy files",
			"deployment", report.DeploymentPath, "planned", report.Planned)
	}
	return nil
}
