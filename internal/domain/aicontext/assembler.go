package aicontext

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/claritybh/clarity/internal/records"
)

// Statuses used when fetching sections. Callers of the record store only
// ever see active/completed clinical data in an assembled context.
const (
	activeStatus           = "active"
	completedSessionStatus = "completed"
)

// Service assembles patient contexts from the record store.
type Service struct {
	store   records.Store
	logger  zerolog.Logger
	version string
}

func NewService(store records.Store, logger zerolog.Logger, version string) *Service {
	return &Service{store: store, logger: logger, version: version}
}

// AssemblePatientContext produces a PatientContext for the patient, scoped
// and sized according to opts. It returns (nil, nil) when the patient does
// not exist, a *IntegrityError when demographics cannot be derived, and a
// *FetchError when any underlying fetch fails. A fetch failure aborts the
// whole assembly; partial contexts are never returned.
func (s *Service) AssemblePatientContext(ctx context.Context, patientID uuid.UUID, opts Options) (*PatientContext, error) {
	start := time.Now()

	purpose, profile := ProfileFor(opts.Purpose)
	sessionLimit := profile.SessionLimit
	if opts.MaxSessionCount > 0 {
		sessionLimit = opts.MaxSessionCount
	}
	assessmentLimit := profile.AssessmentLimit
	if opts.MaxAssessmentCount > 0 {
		assessmentLimit = opts.MaxAssessmentCount
	}
	includeTranscripts := profile.IncludeTranscripts
	if opts.IncludeTranscripts != nil {
		includeTranscripts = *opts.IncludeTranscripts
	}
	budget := profile.MaxTokens
	if opts.MaxTokens > 0 {
		budget = opts.MaxTokens
	}

	logger := s.logger.With().
		Str("assembly_id", uuid.NewString()).
		Str("patient_id", patientID.String()).
		Str("purpose", string(purpose)).
		Logger()

	logger.Debug().Int("budget", budget).Msg("assembly started")

	patient, err := s.store.GetPatientByID(ctx, patientID)
	if err != nil {
		return nil, &FetchError{Section: SectionDemographics, PatientID: patientID, Err: err}
	}
	if patient == nil {
		logger.Info().Msg("patient not found")
		return nil, nil
	}

	demographics, err := deriveDemographics(patient, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	// Unrequested sections stay as these empty collections so that no
	// consumer ever needs a nil check.
	pc := &PatientContext{
		Patient:           patient,
		Demographics:      demographics,
		Diagnoses:         make([]*DiagnosisRecord, 0),
		Medications:       make([]*MedicationRecord, 0),
		RecentSessions:    make([]*SessionRecord, 0),
		AssessmentHistory: make([]*AssessmentResult, 0),
		Alerts:            make([]*records.Alert, 0),
	}

	// Fan out the required section fetches. Each goroutine writes only its
	// own field of pc; the errgroup join is the synchronous barrier before
	// estimation. The first failure cancels the group and aborts assembly.
	g, gctx := errgroup.WithContext(ctx)

	if profile.Requires(SectionDiagnoses) {
		g.Go(func() error {
			items, err := s.fetchDiagnoses(gctx, patientID)
			if err != nil {
				return err
			}
			pc.Diagnoses = items
			return nil
		})
	}
	if profile.Requires(SectionMedications) {
		g.Go(func() error {
			items, err := s.fetchMedications(gctx, patientID)
			if err != nil {
				return err
			}
			pc.Medications = items
			return nil
		})
	}
	if profile.Requires(SectionTreatmentPlan) {
		g.Go(func() error {
			plan, err := s.fetchTreatmentPlan(gctx, patientID)
			if err != nil {
				return err
			}
			pc.TreatmentPlan = plan
			return nil
		})
	}
	if profile.Requires(SectionRecentSessions) {
		g.Go(func() error {
			items, err := s.fetchSessions(gctx, patientID, sessionLimit, includeTranscripts)
			if err != nil {
				return err
			}
			pc.RecentSessions = items
			return nil
		})
	}
	if profile.Requires(SectionAssessmentHistory) {
		g.Go(func() error {
			items, err := s.fetchAssessments(gctx, patientID, assessmentLimit)
			if err != nil {
				return err
			}
			pc.AssessmentHistory = items
			return nil
		})
	}
	if profile.Requires(SectionAlerts) {
		g.Go(func() error {
			items, err := s.store.ListAlertsByPatient(gctx, patientID, activeStatus, "")
			if err != nil {
				return &FetchError{Section: SectionAlerts, PatientID: patientID, Err: err}
			}
			if items == nil {
				items = make([]*records.Alert, 0)
			}
			pc.Alerts = items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("assembly aborted")
		return nil, err
	}
	logger.Debug().Msg("section fetches complete")

	pc.Metadata = ContextMetadata{
		Version:     s.version,
		GeneratedAt: time.Now().UTC(),
		Purpose:     purpose,
	}

	Optimize(pc, budget, logger)

	pc.Metadata.QueryDurationMs = time.Since(start).Milliseconds()

	logger.Info().
		Int("token_count", pc.Metadata.TokenCount).
		Bool("truncated", pc.Metadata.Truncated).
		Int64("duration_ms", pc.Metadata.QueryDurationMs).
		Msg("assembly complete")

	return pc, nil
}

func (s *Service) fetchDiagnoses(ctx context.Context, patientID uuid.UUID) ([]*DiagnosisRecord, error) {
	raw, err := s.store.ListDiagnosesByPatient(ctx, patientID, activeStatus)
	if err != nil {
		return nil, &FetchError{Section: SectionDiagnoses, PatientID: patientID, Err: err}
	}
	items := make([]*DiagnosisRecord, len(raw))
	for i, d := range raw {
		items[i] = &DiagnosisRecord{Diagnosis: *d}
	}
	err = s.attachProviders(ctx, len(items),
		func(i int) *uuid.UUID { return items[i].ProviderID },
		func(i int, p *records.Provider) { items[i].Provider = p })
	if err != nil {
		return nil, &FetchError{Section: SectionDiagnoses, PatientID: patientID, Err: err}
	}
	return items, nil
}

func (s *Service) fetchMedications(ctx context.Context, patientID uuid.UUID) ([]*MedicationRecord, error) {
	raw, err := s.store.ListMedicationsByPatient(ctx, patientID, activeStatus)
	if err != nil {
		return nil, &FetchError{Section: SectionMedications, PatientID: patientID, Err: err}
	}
	items := make([]*MedicationRecord, len(raw))
	for i, m := range raw {
		items[i] = &MedicationRecord{Medication: *m}
	}
	err = s.attachProviders(ctx, len(items),
		func(i int) *uuid.UUID { return items[i].ProviderID },
		func(i int, p *records.Provider) { items[i].Provider = p })
	if err != nil {
		return nil, &FetchError{Section: SectionMedications, PatientID: patientID, Err: err}
	}
	return items, nil
}

func (s *Service) fetchTreatmentPlan(ctx context.Context, patientID uuid.UUID) (*TreatmentPlanDetail, error) {
	plans, err := s.store.ListTreatmentPlansByPatient(ctx, patientID, activeStatus)
	if err != nil {
		return nil, &FetchError{Section: SectionTreatmentPlan, PatientID: patientID, Err: err}
	}
	if len(plans) == 0 {
		// No active plan is a legal empty state, not an error.
		return nil, nil
	}

	detail := &TreatmentPlanDetail{TreatmentPlan: *plans[0], Goals: make([]*records.TreatmentGoal, 0)}
	goals, err := s.store.ListTreatmentGoalsByPlan(ctx, detail.ID)
	if err != nil {
		return nil, &FetchError{Section: SectionTreatmentPlan, PatientID: patientID, Err: err}
	}
	if goals != nil {
		detail.Goals = goals
	}
	if detail.ProviderID != nil {
		p, err := s.store.GetProviderByID(ctx, *detail.ProviderID)
		if err != nil {
			return nil, &FetchError{Section: SectionTreatmentPlan, PatientID: patientID, Err: err}
		}
		detail.Provider = p
	}
	return detail, nil
}

func (s *Service) fetchSessions(ctx context.Context, patientID uuid.UUID, limit int, includeTranscripts bool) ([]*SessionRecord, error) {
	raw, err := s.store.ListSessionsByPatient(ctx, patientID, limit, completedSessionStatus)
	if err != nil {
		return nil, &FetchError{Section: SectionRecentSessions, PatientID: patientID, Err: err}
	}
	items := make([]*SessionRecord, len(raw))
	for i, sess := range raw {
		items[i] = &SessionRecord{Session: *sess}
	}

	if includeTranscripts {
		g, gctx := errgroup.WithContext(ctx)
		for i := range items {
			i := i
			g.Go(func() error {
				t, err := s.store.GetTranscriptBySession(gctx, items[i].Session.ID)
				if err != nil {
					return err
				}
				items[i].Transcript = t
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, &FetchError{Section: SectionRecentSessions, PatientID: patientID, Err: err}
		}
	}

	err = s.attachProviders(ctx, len(items),
		func(i int) *uuid.UUID { return items[i].ProviderID },
		func(i int, p *records.Provider) { items[i].Provider = p })
	if err != nil {
		return nil, &FetchError{Section: SectionRecentSessions, PatientID: patientID, Err: err}
	}
	return items, nil
}

func (s *Service) fetchAssessments(ctx context.Context, patientID uuid.UUID, limit int) ([]*AssessmentResult, error) {
	raw, err := s.store.ListAssessmentsByPatient(ctx, patientID, "", limit)
	if err != nil {
		return nil, &FetchError{Section: SectionAssessmentHistory, PatientID: patientID, Err: err}
	}
	items := make([]*AssessmentResult, len(raw))
	for i, a := range raw {
		items[i] = &AssessmentResult{Assessment: *a}
	}
	err = s.attachProviders(ctx, len(items),
		func(i int) *uuid.UUID { return items[i].ProviderID },
		func(i int, p *records.Provider) { items[i].Provider = p })
	if err != nil {
		return nil, &FetchError{Section: SectionAssessmentHistory, PatientID: patientID, Err: err}
	}
	return items, nil
}

// attachProviders resolves the provider reference of each record in a
// section with one point lookup per record, issued in parallel. The fan-out
// is bounded only by the record count; batching these into a single query
// would change the store contract and is deliberately not done here.
func (s *Service) attachProviders(ctx context.Context, n int,
	providerID func(int) *uuid.UUID, assign func(int, *records.Provider)) error {

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		id := providerID(i)
		if id == nil {
			continue
		}
		i := i
		g.Go(func() error {
			p, err := s.store.GetProviderByID(gctx, *id)
			if err != nil {
				return err
			}
			assign(i, p)
			return nil
		})
	}
	return g.Wait()
}
