// Package delivererr defines the errors raised while discovering and
// organising runfolders.
//
// Errors fall into four classes:
//   - not found: a resource the request depends on is absent
//   - conflict: the request would overwrite an earlier organisation
//   - data integrity: a file on disk violates the naming convention
//   - soft: logged and tolerated, never returned from an operation
//
// Callers match with errors.Is against the sentinels below.
package delivererr

import (
	"errors"
	"fmt"
)

// Not-found class.
var (
	ErrRunfolderNotFound     = errors.New("runfolder not found")
	ErrProjectsDirNotFound   = errors.New("projects directory not found")
	ErrProjectNotFound       = errors.New("project not found")
	ErrProjectReportNotFound = errors.New("project report not found")
	ErrSamplesheetNotFound   = errors.New("samplesheet not found")
	ErrChecksumFileNotFound  = errors.New("checksum file not found")
)

// Conflict class.
var ErrProjectAlreadyOrganised = errors.New("project already organised")

// Internal class. A name matching several projects breaks the directory
// naming invariant.
var ErrTooManyProjects = errors.New("more than one project matches")

// Data-integrity class.
var ErrFileNameParsing = errors.New("could not parse file name")

// Soft class. Never returned by the discovery or organise operations.
var ErrChecksumNotFound = errors.New("checksum not found")

// FileNameError reports a sequence file whose name does not follow the
// expected naming convention.
type FileNameError struct {
	Name string
}

func (e *FileNameError) Error() string {
	return fmt.Sprintf("could not parse information from file name '%s'", e.Name)
}

// Is makes errors.Is(err, ErrFileNameParsing) hold for a *FileNameError.
func (e *FileNameError) Is(target error) bool {
	return target == ErrFileNameParsing
}

// IsNotFound returns true if err belongs to the not-found class.
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrRunfolderNotFound,
		ErrProjectsDirNotFound,
		ErrProjectNotFound,
		ErrProjectReportNotFound,
		ErrSamplesheetNotFound,
		ErrChecksumFileNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true if err belongs to the conflict class.
func IsConflict(err error) bool {
	return errors.Is(err, ErrProjectAlreadyOrganised)
}

// IsDataIntegrity returns true if err belongs to the data-integrity class.
func IsDataIntegrity(err error) bool {
	return errors.Is(err, ErrFileNameParsing)
}

// Class returns a short label for the class of err, for logs and records.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return "not_found"
	case IsConflict(err):
		return "conflict"
	case IsDataIntegrity(err):
		return "data_integrity"
	default:
		return "internal"
	}
}
