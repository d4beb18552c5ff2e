package extract

import (
	"sort"
	"strings"

	"github.com/safeproject/camtrap-go/internal/errors"
	"github.com/safeproject/camtrap-go/internal/extract"
)

// inconsistencyError summarizes cross-image disagreements into the error
// that sets the run's exit status after the report has been written.
func inconsistencyError(record *extract.Record) error {
	fields := make([]string, 0, len(record.Inconsistencies))
	for _, inc := range record.Inconsistencies {
		fields = append(fields, inc.Field)
	}
	sort.Strings(fields)
	return errors.Newf("deployment fields not consistent across images: %s", strings.Join(fields, ", ")).
		Category(errors.CategoryConsistency).
		Context("fields", fields).
		Build()
}
