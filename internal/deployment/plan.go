package deployment

import (
	"fmt"
	"strings"

	"github.com/safeproject/camtrap-go/internal/errors"
)

// CalibDir is the sub-directory holding calibration images inside a
// deployment folder.
const CalibDir = "CALIB"

var (
	// ErrNoValidTimestamps indicates no non-calibration image produced a
	// usable capture timestamp, so there is no identity to name the
	// deployment.
	ErrNoValidTimestamps = errors.NewStd("no images with valid capture timestamps")

	// ErrNameCollision indicates duplicate destination names in a plan.
	ErrNameCollision = errors.NewStd("duplicate destination file names")

	// ErrDestinationExists indicates the deployment folder already exists
	// and is not empty.
	ErrDestinationExists = errors.NewStd("deployment folder already exists and is not empty")
)

// PlanEntry maps one source image to its destination path relative to the
// deployment folder.
type PlanEntry struct {
	Record      ImageRecord
	Destination string
}

// NamingFailure records a file excluded from the plan, with the reason.
type NamingFailure struct {
	SourcePath string
	Reason     string
}

// Collision records one duplicated destination and every source that mapped
// to it.
type Collision struct {
	Destination string
	Sources     []string
}

// CollisionError is the fatal validation failure raised when destination
// names are not pairwise distinct. It carries every collision so all of them
// can be reported at once.
type CollisionError struct {
	Collisions []Collision
}

func (e *CollisionError) Error() string {
	parts := make([]string, 0, len(e.Collisions))
	for _, c := range e.Collisions {
		parts = append(parts, fmt.Sprintf("%s <- %s", c.Destination, strings.Join(c.Sources, ", ")))
	}
	return fmt.Sprintf("duplicate destination file names: %s", strings.Join(parts, "; "))
}

// Is allows errors.Is(err, ErrNameCollision) matching.
func (e *CollisionError) Is(target error) bool {
	return target == ErrNameCollision
}

// NamingPlan is the validated, immutable mapping from every source image to
// its destination. It is pure data: no filesystem action has happened by the
// time a plan exists.
type NamingPlan struct {
	Identity Identity
	Entries  []PlanEntry // ordered by timestamp, then destination
	Failures []NamingFailure
}

// MainCount returns the number of non-calibration entries.
func (p *NamingPlan) MainCount() int {
	n := 0
	for i := range p.Entries {
		if !p.Entries[i].Record.Calib {
			n++
		}
	}
	return n
}

// CalibCount returns the number of calibration entries.
func (p *NamingPlan) CalibCount() int {
	return len(p.Entries) - p.MainCount()
}
