package aicontext

import (
	"github.com/rs/zerolog"

	"github.com/claritybh/clarity/internal/records"
)

const (
	// transcriptCharBudget is the per-session character budget applied by
	// the transcript truncation stage.
	transcriptCharBudget = 1000

	// truncationMarkerText replaces the excluded remainder of a transcript.
	truncationMarkerText = "[transcript truncated]"

	prunedSessionCount    = 1
	prunedAssessmentCount = 3
)

// Optimize reduces the context until its estimated size is at or under
// maxTokens, or until no further reduction is possible. Stages run in a
// strict order — transcript truncation, session pruning, assessment
// pruning — each re-measuring afterwards and stopping early once the budget
// is satisfied. No stage is ever reversed or re-ordered, so re-running the
// optimizer on its own output is a no-op. Metadata.TokenCount is left
// reflecting the final state and Metadata.Truncated is set (monotonically)
// when any stage removed or altered data.
func Optimize(pc *PatientContext, maxTokens int, logger zerolog.Logger) {
	tokens := EstimateTokens(pc)
	altered := false

	if tokens > maxTokens {
		if truncateTranscripts(pc) {
			altered = true
			tokens = EstimateTokens(pc)
			logger.Debug().Int("tokens", tokens).Int("budget", maxTokens).
				Msg("optimizer stage applied: transcript truncation")
		}
	}

	if tokens > maxTokens {
		if pruneSessions(pc) {
			altered = true
			tokens = EstimateTokens(pc)
			logger.Debug().Int("tokens", tokens).Int("budget", maxTokens).
				Msg("optimizer stage applied: session pruning")
		}
	}

	if tokens > maxTokens {
		if pruneAssessments(pc) {
			altered = true
			tokens = EstimateTokens(pc)
			logger.Debug().Int("tokens", tokens).Int("budget", maxTokens).
				Msg("optimizer stage applied: assessment pruning")
		}
	}

	pc.Metadata.TokenCount = tokens
	if altered {
		pc.Metadata.Truncated = true
	}
}

// truncateTranscripts applies the per-session character budget to every
// session transcript. Earlier entries are preferred; once the running text
// total would exceed the budget, remaining entries are replaced by a single
// marker entry. Returns true if any transcript lost entries.
func truncateTranscripts(pc *PatientContext) bool {
	changed := false
	for _, s := range pc.RecentSessions {
		if s.Transcript == nil {
			continue
		}
		if truncateEntries(s.Transcript) {
			changed = true
		}
	}
	return changed
}

func truncateEntries(t *records.Transcript) bool {
	total := 0
	kept := make([]records.TranscriptEntry, 0, len(t.Entries))
	dropped := false
	for _, e := range t.Entries {
		if total+len(e.Text) > transcriptCharBudget {
			dropped = true
			break
		}
		total += len(e.Text)
		kept = append(kept, e)
	}
	if !dropped {
		return false
	}

	marker := records.TranscriptEntry{Speaker: "system", Text: truncationMarkerText}
	if len(kept) > 0 {
		marker.Timestamp = kept[len(kept)-1].Timestamp
	}
	t.Entries = append(kept, marker)
	return true
}

// pruneSessions keeps only the most recent session, relying on the
// newest-first ordering the fetch already returned.
func pruneSessions(pc *PatientContext) bool {
	if len(pc.RecentSessions) <= prunedSessionCount {
		return false
	}
	pc.RecentSessions = pc.RecentSessions[:prunedSessionCount]
	return true
}

// pruneAssessments caps assessment history to the most recent entries.
func pruneAssessments(pc *PatientContext) bool {
	if len(pc.AssessmentHistory) <= prunedAssessmentCount {
		return false
	}
	pc.AssessmentHistory = pc.AssessmentHistory[:prunedAssessmentCount]
	return true
}
