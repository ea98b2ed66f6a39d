package aicontext

import (
	"fmt"

	"github.com/google/uuid"
)

// IntegrityError reports that a patient exists but a structurally mandatory
// section cannot be derived. It is fatal: the assembler never defaults
// missing demographics.
type IntegrityError struct {
	PatientID uuid.UUID
	Reason    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("data integrity fault for patient %s: %s", e.PatientID, e.Reason)
}

// FetchError wraps a failed record-store call with the section and patient
// it was fetching for. Any FetchError aborts the whole assembly; partial
// contexts are never returned.
type FetchError struct {
	Section   Section
	PatientID uuid.UUID
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for patient %s: %v", e.Section, e.PatientID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
