// Package aicontext assembles bounded, purpose-specific snapshots of a
// patient's clinical record for downstream language-model pipelines. A
// snapshot is guaranteed to fit within a token budget before it is handed
// to a prompt compiler: the assembler fans out to the record store, a
// heuristic estimator measures the draft, and a priority-ordered
// degradation pipeline trades completeness for budget compliance.
package aicontext

import (
	"time"

	"github.com/google/uuid"

	"github.com/claritybh/clarity/internal/records"
)

// Demographics is a derived view of the patient record with a calculated,
// calendar-correct age.
type Demographics struct {
	PatientID   uuid.UUID `json:"patient_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Age         int       `json:"age"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
}

// DiagnosisRecord is a diagnosis with its provider reference resolved.
type DiagnosisRecord struct {
	records.Diagnosis
	Provider *records.Provider `json:"provider,omitempty"`
}

// MedicationRecord is a medication with its provider reference resolved.
type MedicationRecord struct {
	records.Medication
	Provider *records.Provider `json:"provider,omitempty"`
}

// TreatmentPlanDetail is the single active treatment plan with its ordered
// goals and provider attached. A nil TreatmentPlanDetail on PatientContext
// means the patient has no active plan, which is a legal empty state.
type TreatmentPlanDetail struct {
	records.TreatmentPlan
	Goals    []*records.TreatmentGoal `json:"goals"`
	Provider *records.Provider        `json:"provider,omitempty"`
}

// SessionRecord is a completed session, optionally carrying its transcript.
type SessionRecord struct {
	records.Session
	Transcript *records.Transcript `json:"transcript,omitempty"`
	Provider   *records.Provider   `json:"provider,omitempty"`
}

// AssessmentResult is a scored instrument administration with its provider
// reference resolved.
type AssessmentResult struct {
	records.Assessment
	Provider *records.Provider `json:"provider,omitempty"`
}

// ContextMetadata carries the provenance of an assembled context. TokenCount
// always reflects the final, post-optimization state of the context.
type ContextMetadata struct {
	Version         string    `json:"version"`
	GeneratedAt     time.Time `json:"generated_at"`
	TokenCount      int       `json:"token_count"`
	Purpose         Purpose   `json:"purpose"`
	Truncated       bool      `json:"truncated"`
	QueryDurationMs int64     `json:"query_duration_ms"`
}

// PatientContext is the aggregate deliverable. Collection sections are always
// non-nil: a purpose that excludes a section yields an empty slice, never
// null, so consumers never need a nil check. The context is immutable once
// returned by the assembler.
type PatientContext struct {
	Patient           *records.PatientRecord `json:"patient"`
	Demographics      *Demographics          `json:"demographics"`
	Diagnoses         []*DiagnosisRecord     `json:"diagnoses"`
	Medications       []*MedicationRecord    `json:"medications"`
	TreatmentPlan     *TreatmentPlanDetail   `json:"treatment_plan,omitempty"`
	RecentSessions    []*SessionRecord       `json:"recent_sessions"`
	AssessmentHistory []*AssessmentResult    `json:"assessment_history"`
	Alerts            []*records.Alert       `json:"alerts"`
	Metadata          ContextMetadata        `json:"metadata"`
}

// Options tunes a single assembly. Zero values defer to the resolved purpose
// profile; IncludeTranscripts is a pointer so "unset" can be distinguished
// from an explicit false.
type Options struct {
	Purpose            Purpose
	MaxTokens          int
	MaxSessionCount    int
	MaxAssessmentCount int
	IncludeTranscripts *bool
}

// CalculateAge computes the integer age at "today" using calendar semantics:
// the year difference is decremented when today's month/day has not yet
// reached the birth month/day. Exact at leap-year and birthday boundaries.
func CalculateAge(dateOfBirth, today time.Time) int {
	age := today.Year() - dateOfBirth.Year()
	if today.Month() < dateOfBirth.Month() ||
		(today.Month() == dateOfBirth.Month() && today.Day() < dateOfBirth.Day()) {
		age--
	}
	return age
}

func deriveDemographics(p *records.PatientRecord, now time.Time) (*Demographics, error) {
	if p.DateOfBirth == nil || p.DateOfBirth.IsZero() {
		return nil, &IntegrityError{PatientID: p.ID, Reason: "patient record has no date of birth"}
	}
	return &Demographics{
		PatientID:   p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DateOfBirth: *p.DateOfBirth,
		Age:         CalculateAge(*p.DateOfBirth, now),
		Email:       p.Email,
		Phone:       p.Phone,
	}, nil
}
