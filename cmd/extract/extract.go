// Package extract implements the extract subcommand: read a consolidated
// deployment folder and write its metadata report.
package extract

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/safeproject/camtrap-go/internal/conf"
	"github.com/safeproject/camtrap-go/internal/extract"
	"github.com/safeproject/camtrap-go/internal/logging"
	"github.com/safeproject/camtrap-go/internal/metadata"
)

// Command creates the extract subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [deployment_dir]",
		Short: "Extract deployment metadata into a tab-delimited report",
		Long: "Reads every image in a deployment folder, including CALIB, " +
			"parses keyword annotations, checks deployment level fields for " +
			"consistency and writes a tab-delimited report.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Extract.Deployment = args[0]
			return run(settings)
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags defines flags specific to the extract command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVarP(&settings.Extract.OutputFile, "outfile", "o", settings.Extract.OutputFile,
		"Report file path, defaults to "+extract.DefaultReportName+" inside the deployment folder")
}

func run(settings *conf.Settings) error {
	log := logging.ForService("extract")

	tool, err := metadata.NewExifTool()
	if err != nil {
		return err
	}
	defer tool.Close()

	extractor := extract.NewExtractor(tool)
	record, err := extractor.Extract(settings.Extract.Deployment)
	if err != nil {
		return err
	}

	outfile := settings.Extract.OutputFile
	if outfile == "" {
		outfile = filepath.Join(settings.Extract.Deployment, extract.DefaultReportName)
	}
	if err := extract.WriteReportFile(outfile, record); err != nil {
		return err
	}
	log.Info("report written", "outfile", outfile, "rows", len(record.Rows))

	// Inconsistencies never block the report but do fail the run.
	if len(record.Inconsistencies) > 0 {
		return inconsistencyError(record)
	}
	return nil
}
