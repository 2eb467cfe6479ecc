package histogram

import (
	"errors"
	"fmt"
)

// Sentinel errors for per-day load failures. All of them are recoverable: a
// scan records them and moves on to the next day.
var (
	ErrDataNotFound  = errors.New("data file not found")
	ErrEmptyData     = errors.New("data file is empty")
	ErrMalformedData = errors.New("data file is malformed")
)

// DataNotFoundError reports a missing archive file.
type DataNotFoundError struct {
	Path string
	Err  error
}

func (e *DataNotFoundError) Error() string {
	return fmt.Sprintf("could not find file: %s", e.Path)
}

func (e *DataNotFoundError) Is(target error) bool { return target == ErrDataNotFound }

func (e *DataNotFoundError) Unwrap() error { return e.Err }

// EmptyDataError reports an archive file that decoded to zero rows.
type EmptyDataError struct {
	Path string
}

func (e *EmptyDataError) Error() string {
	return fmt.Sprintf("no data in file: %s", e.Path)
}

func (e *EmptyDataError) Is(target error) bool { return target == ErrEmptyData }

// MalformedDataError reports an archive file with an unexpected layout.
type MalformedDataError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed file %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed file %s: %s", e.Path, e.Reason)
}

func (e *MalformedDataError) Is(target error) bool { return target == ErrMalformedData }

func (e *MalformedDataError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err is a per-day load failure that a scan
// should record and skip.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrDataNotFound) || errors.Is(err, ErrEmptyData) || errors.Is(err, ErrMalformedData)
}
