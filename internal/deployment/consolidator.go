package deployment

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/safeproject/camtrap-go/internal/errors"
	"github.com/safeproject/camtrap-go/internal/logging"
	"github.com/safeproject/camtrap-go/internal/metadata"
)

// CopyFailure records one file that could not be copied or tagged.
type CopyFailure struct {
	Source      string
	Destination string
	Err         error
}

// Report summarizes a Consolidator run.
type Report struct {
	DeploymentPath string
	Planned        int
	Copied         int
	Failures       []CopyFailure
	Executed       bool
}

// Consolidator executes a validated NamingPlan. It copies files to their
// planned destinations, never deleting or modifying sources, and records the
// original source path in each copy's metadata.
type Consolidator struct {
	writer  metadata.Writer
	log     *slog.Logger
	workers int
}

// NewConsolidator returns a Consolidator writing provenance tags through
// writer. workers bounds parallel file copies.
func NewConsolidator(writer metadata.Writer, workers int) *Consolidator {
	if workers < 1 {
		workers = 1
	}
	return &Consolidator{
		writer:  writer,
		log:     logging.ForService("deployment"),
		workers: workers,
	}
}

// Execute materializes the plan under outputRoot. With execute false it only
// reports what would happen and performs zero filesystem writes. Individual
// copy failures do not abort the remaining copies; they are collected in the
// report and returned as a joined error so the run's exit status reflects
// partial failure.
func (c *Consolidator) Execute(plan *NamingPlan, outputRoot string, execute bool) (*Report, error) {
	info, err := os.Stat(outputRoot)
	if err != nil || !info.IsDir() {
		return nil, errors.Newf("output root not found or not a directory: %s", outputRoot).
			Category(errors.CategoryNotFound).
			Context("dir", outputRoot).
			Build()
	}

	depPath, err := filepath.Abs(filepath.Join(outputRoot, plan.Identity.FolderName()))
	if err != nil {
		return nil, errors.Newf("failed to resolve deployment path: %w", err).
			Category(errors.CategoryFileIO).
			Build()
	}

	report := &Report{
		DeploymentPath: depPath,
		Planned:        len(plan.Entries),
		Executed:       execute,
	}

	if !execute {
		c.log.Info("dry run, no files will be copied",
			"deployment", depPath,
			"images", plan.MainCount(),
			"calib", plan.CalibCount(),
			"excluded", len(plan.Failures))
		return report, nil
	}

	// Single up-front existence check; copies must not race against it.
	if err := checkDestination(depPath); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(depPath, 0o755); err != nil {
		return nil, errors.Newf("failed to create deployment folder: %w", err).
			Category(errors.CategoryFileIO).
			Context("dir", depPath).
			Build()
	}
	if plan.CalibCount() > 0 {
		if err := os.MkdirAll(filepath.Join(depPath, CalibDir), 0o755); err != nil {
			return nil, errors.Newf("failed to create CALIB folder: %w", err).
				Category(errors.CategoryFileIO).
				Build()
		}
	}

	c.log.Info("copying files", "deployment", depPath, "count", len(plan.Entries))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(c.workers)
	for i := range plan.Entries {
		entry := plan.Entries[i]
		g.Go(func() error {
			dst := filepath.Join(depPath, entry.Destination)
			if err := c.copyOne(entry.Record.SourcePath, dst); err != nil {
				mu.Lock()
				report.Failures = append(report.Failures, CopyFailure{
					Source:      entry.Record.SourcePath,
					Destination: dst,
					Err:         err,
				})
				mu.Unlock()
				return nil // collect, do not abort the rest
			}
			mu.Lock()
			report.Copied++
			mu.Unlock()
			return nil
		})
	}
	// Group goroutines never return errors; failures are collected above.
	_ = g.Wait()

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Source < report.Failures[j].Source
	})

	if len(report.Failures) > 0 {
		errs := make([]error, 0, len(report.Failures))
		for _, f := range report.Failures {
			c.log.Error("copy failed", "source", f.Source, "error", f.Err)
			errs = append(errs, f.Err)
		}
		c.log.Warn("consolidation completed with failures",
			"copied", report.Copied, "failed", len(report.Failures))
		return report, errors.New(errors.Join(errs...)).
			Category(errors.CategoryCopy).
			Context("failed", len(report.Failures)).
			Build()
	}

	c.log.Info("consolidation complete", "deployment", depPath, "copied", report.Copied)
	return report, nil
}

// copyOne copies a single source image and writes its provenance tag.
func (c *Consolidator) copyOne(src, dst string) error {
	if err := copyFile(src, dst); err != nil {
		return errors.Newf("copy failed: %w", err).
			Category(errors.CategoryCopy).
			FileContext(src).
			Build()
	}

	// Preserve the original location in the copy's metadata.
	absSrc, err := filepath.Abs(src)
	if err != nil {
		absSrc = src
	}
	if err := c.writer.WriteTag(dst, metadata.TagPreservedName, absSrc); err != nil {
		return errors.Newf("provenance tag write failed: %w", err).
			Category(errors.CategoryCopy).
			FileContext(dst).
			Build()
	}
	return nil
}

// checkDestination rejects an existing, non-empty deployment folder. An
// empty leftover directory is reusable.
func checkDestination(depPath string) error {
	info, err := os.Stat(depPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Newf("failed to stat deployment folder: %w", err).
			Category(errors.CategoryFileIO).
			Context("dir", depPath).
			Build()
	}
	if !info.IsDir() {
		return errors.Newf("deployment path exists and is not a directory: %s", depPath).
			Category(errors.CategoryConflict).
			Context("dir", depPath).
			Build()
	}
	entries, err := os.ReadDir(depPath)
	if err != nil {
		return errors.Newf("failed to read deployment folder: %w", err).
			Category(errors.CategoryFileIO).
			Context("dir", depPath).
			Build()
	}
	if len(entries) > 0 {
		return errors.Newf("%w: %s", ErrDestinationExists, depPath).
			Category(errors.CategoryConflict).
			Context("dir", depPath).
			Build()
	}
	return nil
}

// copyFile copies src to dst without touching src.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}
