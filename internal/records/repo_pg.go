package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type storePG struct{ pool *pgxpool.Pool }

// NewStorePG returns a Store backed by PostgreSQL.
func NewStorePG(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

const patientCols = `id, first_name, last_name, date_of_birth, email, phone, created_at, updated_at`

func (r *storePG) GetPatientByID(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	var p PatientRecord
	err := r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *storePG) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	var p Provider
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, credentials, specialty FROM providers WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Credentials, &p.Specialty)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const diagnosisCols = `id, patient_id, provider_id, code, description, status, onset_date, diagnosed_at`

func (r *storePG) ListDiagnosesByPatient(ctx context.Context, patientID uuid.UUID, status string) ([]*Diagnosis, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+diagnosisCols+` FROM diagnoses WHERE patient_id = $1 AND status = $2 ORDER BY diagnosed_at DESC`,
		patientID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*Diagnosis, 0)
	for rows.Next() {
		var d Diagnosis
		if err := rows.Scan(&d.ID, &d.PatientID, &d.ProviderID, &d.Code, &d.Description,
			&d.Status, &d.OnsetDate, &d.DiagnosedAt); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}

const medicationCols = `id, patient_id, provider_id, name, dosage, frequency, status, start_date, end_date`

func (r *storePG) ListMedicationsByPatient(ctx context.Context, patientID uuid.UUID, status string) ([]*Medication, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+medicationCols+` FROM medications WHERE patient_id = $1 AND status = $2 ORDER BY start_date DESC`,
		patientID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*Medication, 0)
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.PatientID, &m.ProviderID, &m.Name, &m.Dosage,
			&m.Frequency, &m.Status, &m.StartDate, &m.EndDate); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}

const planCols = `id, patient_id, provider_id, title, status, start_date, review_date`

func (r *storePG) ListTreatmentPlansByPatient(ctx context.Context, patientID uuid.UUID, status string) ([]*TreatmentPlan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+planCols+` FROM treatment_plans WHERE patient_id = $1 AND status = $2 ORDER BY start_date DESC`,
		patientID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*TreatmentPlan, 0)
	for rows.Next() {
		var p TreatmentPlan
		if err := rows.Scan(&p.ID, &p.PatientID, &p.ProviderID, &p.Title, &p.Status,
			&p.StartDate, &p.ReviewDate); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

func (r *storePG) ListTreatmentGoalsByPlan(ctx context.Context, planID uuid.UUID) ([]*TreatmentGoal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, plan_id, description, status, target_date, sort_order
		 FROM treatment_goals WHERE plan_id = $1 ORDER BY sort_order ASC`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*TreatmentGoal, 0)
	for rows.Next() {
		var g TreatmentGoal
		if err := rows.Scan(&g.ID, &g.PlanID, &g.Description, &g.Status, &g.TargetDate, &g.SortOrder); err != nil {
			return nil, err
		}
		items = append(items, &g)
	}
	return items, rows.Err()
}

const sessionCols = `id, patient_id, provider_id, session_date, session_type, status, duration_minutes, notes`

func (r *storePG) ListSessionsByPatient(ctx context.Context, patientID uuid.UUID, limit int, status string) ([]*Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE patient_id = $1 AND status = $2 ORDER BY session_date DESC LIMIT $3`,
		patientID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*Session, 0)
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.PatientID, &s.ProviderID, &s.SessionDate, &s.SessionType,
			&s.Status, &s.DurationMinutes, &s.Notes); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *storePG) GetTranscriptBySession(ctx context.Context, sessionID uuid.UUID) (*Transcript, error) {
	var t Transcript
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, entries, created_at FROM transcripts WHERE session_id = $1`, sessionID).
		Scan(&t.SessionID, &raw, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &t.Entries); err != nil {
		return nil, fmt.Errorf("decode transcript entries for session %s: %w", sessionID, err)
	}
	return &t, nil
}

const assessmentCols = `id, patient_id, provider_id, type, score, max_score, administered_at`

func (r *storePG) ListAssessmentsByPatient(ctx context.Context, patientID uuid.UUID, assessmentType string, limit int) ([]*Assessment, error) {
	query := `SELECT ` + assessmentCols + ` FROM assessments WHERE patient_id = $1`
	args := []interface{}{patientID}
	if assessmentType != "" {
		query += ` AND type = $2 ORDER BY administered_at DESC LIMIT $3`
		args = append(args, assessmentType, limit)
	} else {
		query += ` ORDER BY administered_at DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*Assessment, 0)
	for rows.Next() {
		var a Assessment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.ProviderID, &a.Type, &a.Score,
			&a.MaxScore, &a.AdministeredAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *storePG) ListAlertsByPatient(ctx context.Context, patientID uuid.UUID, status, severity string) ([]*Alert, error) {
	query := `SELECT id, patient_id, alert_type, severity, status, message, created_at
		 FROM alerts WHERE patient_id = $1 AND status = $2`
	args := []interface{}{patientID, status}
	if severity != "" {
		query += ` AND severity = $3`
		args = append(args, severity)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*Alert, 0)
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.PatientID, &a.AlertType, &a.Severity, &a.Status,
			&a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}
