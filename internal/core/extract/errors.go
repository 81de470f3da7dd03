package extract

import (
	"fmt"

	"firestige.xyz/cobslog/internal/core"
)

// SizeMismatchError describes a frame that decoded cleanly to a length that is
// neither a record nor an uncaptured metadata frame. It is a diagnostic only.
type SizeMismatchError struct {
	Got       int
	Want      int
	Duplicate bool // Metadata-length frame seen after metadata was captured
}

func (e *SizeMismatchError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("invalid packet size: %d not %d (metadata already captured)", e.Got, e.Want)
	}
	return fmt.Sprintf("invalid packet size: %d not %d", e.Got, e.Want)
}

func (e *SizeMismatchError) Unwrap() error {
	return core.ErrSizeMismatch
}
