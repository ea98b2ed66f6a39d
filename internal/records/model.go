package records

import (
	"time"

	"github.com/google/uuid"
)

// PatientRecord maps to the patients table.
type PatientRecord struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Provider maps to the providers table.
type Provider struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Credentials *string   `db:"credentials" json:"credentials,omitempty"`
	Specialty   *string   `db:"specialty" json:"specialty,omitempty"`
}

// Diagnosis maps to the diagnoses table.
type Diagnosis struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID  *uuid.UUID `db:"provider_id" json:"provider_id,omitempty"`
	Code        string     `db:"code" json:"code"`
	Description string     `db:"description" json:"description"`
	Status      string     `db:"status" json:"status"`
	OnsetDate   *time.Time `db:"onset_date" json:"onset_date,omitempty"`
	DiagnosedAt time.Time  `db:"diagnosed_at" json:"diagnosed_at"`
}

// Medication maps to the medications table.
type Medication struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID *uuid.UUID `db:"provider_id" json:"provider_id,omitempty"`
	Name       string     `db:"name" json:"name"`
	Dosage     string     `db:"dosage" json:"dosage"`
	Frequency  string     `db:"frequency" json:"frequency"`
	Status     string     `db:"status" json:"status"`
	StartDate  time.Time  `db:"start_date" json:"start_date"`
	EndDate    *time.Time `db:"end_date" json:"end_date,omitempty"`
}

// TreatmentPlan maps to the treatment_plans table.
type TreatmentPlan struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID *uuid.UUID `db:"provider_id" json:"provider_id,omitempty"`
	Title      string     `db:"title" json:"title"`
	Status     string     `db:"status" json:"status"`
	StartDate  time.Time  `db:"start_date" json:"start_date"`
	ReviewDate *time.Time `db:"review_date" json:"review_date,omitempty"`
}

// TreatmentGoal maps to the treatment_goals table. Goals are ordered by
// sort_order within a plan.
type TreatmentGoal struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PlanID      uuid.UUID  `db:"plan_id" json:"plan_id"`
	Description string     `db:"description" json:"description"`
	Status      string     `db:"status" json:"status"`
	TargetDate  *time.Time `db:"target_date" json:"target_date,omitempty"`
	SortOrder   int        `db:"sort_order" json:"sort_order"`
}

// Session maps to the sessions table.
type Session struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID      *uuid.UUID `db:"provider_id" json:"provider_id,omitempty"`
	SessionDate     time.Time  `db:"session_date" json:"session_date"`
	SessionType     string     `db:"session_type" json:"session_type"`
	Status          string     `db:"status" json:"status"`
	DurationMinutes *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
}

// TranscriptEntry is a single utterance within a session transcript.
// Timestamp is the offset in seconds from the start of the session.
type TranscriptEntry struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
}

// Transcript maps to the transcripts table. Entries are stored as a JSONB
// array ordered by timestamp.
type Transcript struct {
	SessionID uuid.UUID         `db:"session_id" json:"session_id"`
	Entries   []TranscriptEntry `db:"entries" json:"entries"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// Assessment maps to the assessments table (a scored instrument
// administration such as PHQ-9 or GAD-7).
type Assessment struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID     *uuid.UUID `db:"provider_id" json:"provider_id,omitempty"`
	Type           string     `db:"type" json:"type"`
	Score          int        `db:"score" json:"score"`
	MaxScore       int        `db:"max_score" json:"max_score"`
	AdministeredAt time.Time  `db:"administered_at" json:"administered_at"`
}

// Alert maps to the alerts table.
type Alert struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	AlertType string    `db:"alert_type" json:"alert_type"`
	Severity  string    `db:"severity" json:"severity"`
	Status    string    `db:"status" json:"status"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
