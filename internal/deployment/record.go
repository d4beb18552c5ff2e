// Package deployment implements the consolidation core: naming plan
// construction over scattered source folders, collision detection and safe
// plan execution.
package deployment

import (
	"fmt"
	"time"
)

// ImageRecord describes a single source image once its capture metadata has
// been resolved. Records are immutable after the Namer creates them.
type ImageRecord struct {
	SourcePath string
	Timestamp  time.Time // second resolution, from capture metadata
	Sequence   int       // burst position, 0 when not part of a burst
	Calib      bool
}

// Identity is the derived deployment identity: the location code plus the
// earliest capture date across non-calibration images. It is computed once,
// after all records are known.
type Identity struct {
	Location  string
	StartDate time.Time
}

// FolderName returns the canonical deployment folder name.
func (id Identity) FolderName() string {
	return fmt.Sprintf("%s_%s", id.Location, id.StartDate.Format("20060102"))
}
