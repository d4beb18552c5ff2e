package extract

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/safeproject/camtrap-go/internal/errors"
	"github.com/safeproject/camtrap-go/internal/keywords"
)

// DefaultReportName is the report file written inside a deployment folder
// when no output path is given.
const DefaultReportName = "exif_data.dat"

// headerSeparator divides the deployment header block from the image table.
const headerSeparator = "---"

// WriteReport serializes a Record as tab-delimited text: the deployment
// header block, the separator line, a column header row, then one row per
// image in timestamp order.
func WriteReport(w io.Writer, record *Record) error {
	bw := bufio.NewWriter(w)

	for _, field := range record.Header {
		fmt.Fprintf(bw, "%s: %s\n", field.Key, field.Value)
	}
	fmt.Fprintln(bw, headerSeparator)

	columns := []string{"File", "Calib"}
	columns = append(columns, cameraFields...)
	columns = append(columns, imageFields...)
	for _, key := range record.KeywordKeys {
		columns = append(columns, keywords.ColumnName(key))
	}
	columns = append(columns, "Flags")
	fmt.Fprintln(bw, strings.Join(columns, "\t"))

	for i := range record.Rows {
		row := &record.Rows[i]
		cells := make([]string, 0, len(columns))
		cells = append(cells, row.File, calibCell(row.Calib))
		for _, field := range cameraFields {
			cells = append(cells, row.Fields[field])
		}
		for _, field := range imageFields {
			cells = append(cells, row.Fields[field])
		}
		for _, key := range record.KeywordKeys {
			cells = append(cells, row.Keywords[key])
		}
		cells = append(cells, strings.Join(row.Flags, ","))
		fmt.Fprintln(bw, strings.Join(cells, "\t"))
	}

	if err := bw.Flush(); err != nil {
		return errors.Newf("failed to write report: %w", err).
			Category(errors.CategoryFileIO).
			Build()
	}
	return nil
}

// WriteReportFile writes the report to path, creating or truncating it.
func WriteReportFile(path string, record *Record) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Newf("failed to create report file: %w", err).
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	defer f.Close()
	return WriteReport(f, record)
}

func calibCell(calib bool) string {
	if calib {
		return "1"
	}
	return "0"
}
