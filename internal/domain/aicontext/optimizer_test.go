package aicontext

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claritybh/clarity/internal/records"
)

// loadedContext builds a context with sessions carrying transcripts of a
// known size and a populated assessment history. All variable-length data
// is fixed-width (uuid strings, fixed dates) so estimates are stable
// across builds.
func loadedContext(nSessions, entriesPerSession, entryLen, nAssessments int) *PatientContext {
	pc := emptyContext()
	base := date(2024, time.March, 1)

	for i := 0; i < nSessions; i++ {
		entries := make([]records.TranscriptEntry, entriesPerSession)
		for j := 0; j < entriesPerSession; j++ {
			entries[j] = records.TranscriptEntry{
				Speaker:   "clinician",
				Text:      strings.Repeat("a", entryLen),
				Timestamp: float64(j * 30),
			}
		}
		sid := uuid.New()
		pc.RecentSessions = append(pc.RecentSessions, &SessionRecord{
			Session: records.Session{
				ID:          sid,
				PatientID:   pc.Patient.ID,
				SessionDate: base.AddDate(0, 0, -i),
				SessionType: "individual_therapy",
				Status:      "completed",
			},
			Transcript: &records.Transcript{SessionID: sid, Entries: entries, CreatedAt: base},
		})
	}

	for i := 0; i < nAssessments; i++ {
		pc.AssessmentHistory = append(pc.AssessmentHistory, &AssessmentResult{
			Assessment: records.Assessment{
				ID:             uuid.New(),
				PatientID:      pc.Patient.ID,
				Type:           "PHQ-9",
				Score:          12,
				MaxScore:       27,
				AdministeredAt: base.AddDate(0, 0, -i*7),
			},
		})
	}

	return pc
}

func TestOptimize_UnderBudgetIsUntouched(t *testing.T) {
	pc := loadedContext(5, 4, 100, 10)
	budget := EstimateTokens(pc) + 100

	before, _ := json.Marshal(pc)
	Optimize(pc, budget, testLogger())
	after, _ := json.Marshal(pc)

	if pc.Metadata.Truncated {
		t.Error("context under budget must not be marked truncated")
	}
	// TokenCount is written by the optimizer, so compare bodies only.
	var b1, b2 PatientContext
	json.Unmarshal(before, &b1)
	json.Unmarshal(after, &b2)
	b1.Metadata, b2.Metadata = ContextMetadata{}, ContextMetadata{}
	s1, _ := json.Marshal(&b1)
	s2, _ := json.Marshal(&b2)
	if string(s1) != string(s2) {
		t.Error("context under budget must not be altered")
	}
	if pc.Metadata.TokenCount > budget {
		t.Errorf("token count %d exceeds budget %d", pc.Metadata.TokenCount, budget)
	}
}

func TestOptimize_TruncatesTranscriptsBeforeDroppingSessions(t *testing.T) {
	// Budget that fits exactly after transcript truncation alone.
	fitted := loadedContext(5, 10, 300, 10)
	truncateTranscripts(fitted)
	budget := EstimateTokens(fitted)

	pc := loadedContext(5, 10, 300, 10)
	Optimize(pc, budget, testLogger())

	if len(pc.RecentSessions) != 5 {
		t.Fatalf("a context that fits after transcript truncation must retain all 5 sessions, got %d", len(pc.RecentSessions))
	}
	if len(pc.AssessmentHistory) != 10 {
		t.Errorf("assessments must not be pruned when earlier stages satisfy the budget, got %d", len(pc.AssessmentHistory))
	}
	if !pc.Metadata.Truncated {
		t.Error("transcript truncation must set the truncated flag")
	}
	for _, s := range pc.RecentSessions {
		last := s.Transcript.Entries[len(s.Transcript.Entries)-1]
		if last.Text != truncationMarkerText {
			t.Errorf("truncated transcript must end with the marker entry, got %q", last.Text)
		}
	}
}

func TestOptimize_PrunesSessionsWhenTruncationIsNotEnough(t *testing.T) {
	fitted := loadedContext(5, 10, 300, 10)
	truncateTranscripts(fitted)
	pruneSessions(fitted)
	budget := EstimateTokens(fitted)

	pc := loadedContext(5, 10, 300, 10)
	mostRecent := pc.RecentSessions[0].Session.ID
	Optimize(pc, budget, testLogger())

	if len(pc.RecentSessions) != 1 {
		t.Fatalf("expected sessions pruned to 1, got %d", len(pc.RecentSessions))
	}
	if pc.RecentSessions[0].Session.ID != mostRecent {
		t.Error("session pruning must keep the first (most recent) session")
	}
	if len(pc.AssessmentHistory) != 10 {
		t.Errorf("assessment pruning must not fire when session pruning satisfies the budget, got %d", len(pc.AssessmentHistory))
	}
	if !pc.Metadata.Truncated {
		t.Error("session pruning must set the truncated flag")
	}
}

func TestOptimize_PrunesAssessmentsLast(t *testing.T) {
	pc := loadedContext(5, 10, 300, 10)
	Optimize(pc, 1, testLogger())

	if len(pc.RecentSessions) != 1 {
		t.Errorf("expected 1 session after full degradation, got %d", len(pc.RecentSessions))
	}
	if len(pc.AssessmentHistory) != 3 {
		t.Errorf("expected assessment history capped at 3, got %d", len(pc.AssessmentHistory))
	}
	if !pc.Metadata.Truncated {
		t.Error("full degradation must set the truncated flag")
	}
	// The budget is unreachable; the optimizer still returns the smallest
	// achievable context with an accurate final count.
	if pc.Metadata.TokenCount != EstimateTokens(pc) {
		t.Error("token count must reflect the final state of the context")
	}
}

func TestOptimize_Idempotent(t *testing.T) {
	budgets := []int{1, 500, 2000}
	for _, budget := range budgets {
		pc := loadedContext(5, 10, 300, 10)
		Optimize(pc, budget, testLogger())
		first, _ := json.Marshal(pc)
		firstTruncated := pc.Metadata.Truncated

		Optimize(pc, budget, testLogger())
		second, _ := json.Marshal(pc)

		if string(first) != string(second) {
			t.Errorf("budget %d: re-optimizing its own output must be a no-op", budget)
		}
		if pc.Metadata.Truncated != firstTruncated {
			t.Errorf("budget %d: truncated flag changed on re-run", budget)
		}
	}
}

func TestTruncateEntries_KeepsEarliestWithinBudget(t *testing.T) {
	sid := uuid.New()
	tr := &records.Transcript{
		SessionID: sid,
		Entries: []records.TranscriptEntry{
			{Speaker: "clinician", Text: strings.Repeat("x", 400), Timestamp: 0},
			{Speaker: "patient", Text: strings.Repeat("y", 400), Timestamp: 30},
			{Speaker: "clinician", Text: strings.Repeat("z", 400), Timestamp: 60},
			{Speaker: "patient", Text: strings.Repeat("w", 400), Timestamp: 90},
		},
	}

	if !truncateEntries(tr) {
		t.Fatal("expected truncation for a 1600-char transcript")
	}
	if len(tr.Entries) != 3 {
		t.Fatalf("expected 2 kept entries plus the marker, got %d entries", len(tr.Entries))
	}
	if tr.Entries[0].Speaker != "clinician" || tr.Entries[1].Speaker != "patient" {
		t.Error("truncation must keep the earliest entries in order")
	}
	marker := tr.Entries[2]
	if marker.Text != truncationMarkerText || marker.Speaker != "system" {
		t.Errorf("unexpected marker entry: %+v", marker)
	}
	if marker.Timestamp != 30 {
		t.Errorf("marker timestamp should carry the last kept entry's timestamp, got %v", marker.Timestamp)
	}
}

func TestTruncateEntries_NoChangeUnderBudget(t *testing.T) {
	tr := &records.Transcript{
		SessionID: uuid.New(),
		Entries: []records.TranscriptEntry{
			{Speaker: "clinician", Text: strings.Repeat("x", 400)},
			{Speaker: "patient", Text: strings.Repeat("y", 400)},
		},
	}

	if truncateEntries(tr) {
		t.Error("an 800-char transcript fits the per-session budget and must not change")
	}
	if len(tr.Entries) != 2 {
		t.Errorf("expected entries untouched, got %d", len(tr.Entries))
	}
}
