// Package services implements the questionnaire workflows: submitting and
// resuming responses, exporting the response matrix and importing questions.
package services

import (
	"errors"
	"fmt"

	"github.com/vnkhanh/erp-questionnaire/questionnaire"
)

// Expected outcomes. Callers show these to the user as plain notices.
var (
	ErrRespondentNotFound = errors.New("no saved progress for this email")
	ErrNoData             = errors.New("no responses to export")
	ErrExportInProgress   = errors.New("an export for this form is already running")
	ErrEmailRequired      = errors.New("email is required")
)

// LookupError wraps an unexpected failure while reading.
type LookupError struct {
	Op  string
	Err error
}

func (e *LookupError) Error() string { return fmt.Sprintf("lookup %s: %v", e.Op, e.Err) }
func (e *LookupError) Unwrap() error { return e.Err }

// PersistError wraps a failed insert, update or upsert.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string { return fmt.Sprintf("persist %s: %v", e.Op, e.Err) }
func (e *PersistError) Unwrap() error { return e.Err }

// UploadError wraps a failed blob upload for one file answer.
type UploadError struct {
	QuestionID questionnaire.QuestionID
	Filename   string
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q for question %d: %v", e.Filename, e.QuestionID, e.Err)
}
func (e *UploadError) Unwrap() error { return e.Err }
