package shared

import (
	"errors"
	"fmt"
)

// ErrDataIntegrity is the sentinel matched by every DataIntegrityError.
var ErrDataIntegrity = errors.New("data integrity violation")

// DataIntegrityError reports a record that cannot be aggregated safely, such as
// an account without a category or a row pointing at unknown reference data.
type DataIntegrityError struct {
	RecordID string
	Reason   string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: record %s: %s", e.RecordID, e.Reason)
}

// Is lets errors.Is(err, ErrDataIntegrity) match.
func (e *DataIntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}

// NewDataIntegrityError builds a DataIntegrityError with a formatted reason.
func NewDataIntegrityError(recordID string, format string, args ...any) *DataIntegrityError {
	return &DataIntegrityError{RecordID: recordID, Reason: fmt.Sprintf(format, args...)}
}
