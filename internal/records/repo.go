package records

import (
	"context"

	"github.com/google/uuid"
)

// Store is the read-only fetch surface the context assembler depends on.
// Point lookups return (nil, nil) when the entity does not exist; list
// methods return an empty slice. Retry and timeout policy, if any, belongs
// to implementations of this interface, not to callers.
type Store interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*PatientRecord, error)
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	ListDiagnosesByPatient(ctx context.Context, patientID uuid.UUID, status string) ([]*Diagnosis, error)
	ListMedicationsByPatient(ctx context.Context, patientID uuid.UUID, status string) ([]*Medication, error)
	ListTreatmentPlansByPatient(ctx context.Context, patientID uuid.UUID, status string) ([]*TreatmentPlan, error)
	ListTreatmentGoalsByPlan(ctx context.Context, planID uuid.UUID) ([]*TreatmentGoal, error)
	ListSessionsByPatient(ctx context.Context, patientID uuid.UUID, limit int, status string) ([]*Session, error)
	GetTranscriptBySession(ctx context.Context, sessionID uuid.UUID) (*Transcript, error)
	ListAssessmentsByPatient(ctx context.Context, patientID uuid.UUID, assessmentType string, limit int) ([]*Assessment, error)
	ListAlertsByPatient(ctx context.Context, patientID uuid.UUID, status, severity string) ([]*Alert, error)
}
