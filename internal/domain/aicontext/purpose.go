package aicontext

// Purpose identifies why a context is being assembled. Each purpose maps to
// a static profile describing which sections it needs and how large it may be.
type Purpose string

const (
	PurposeSafetyReview   Purpose = "safety_review"
	PurposeBilling        Purpose = "billing"
	PurposeProgressReview Purpose = "progress_review"
	PurposeGeneral        Purpose = "general"
)

// Section names one of the seven fetchable parts of a patient context.
type Section string

const (
	SectionDemographics      Section = "demographics"
	SectionDiagnoses         Section = "diagnoses"
	SectionMedications       Section = "medications"
	SectionTreatmentPlan     Section = "treatment_plan"
	SectionRecentSessions    Section = "recent_sessions"
	SectionAssessmentHistory Section = "assessment_history"
	SectionAlerts            Section = "alerts"
)

// Default section limits for full assembly.
const (
	DefaultSessionLimit    = 5
	DefaultAssessmentLimit = 10
	DefaultMaxTokens       = 8000
)

// Profile declares the data requirements and token budget of one purpose.
// This table is the single source of truth for "what does purpose X need";
// the assembler never branches on purpose anywhere else.
type Profile struct {
	Sections           map[Section]bool
	SessionLimit       int
	AssessmentLimit    int
	IncludeTranscripts bool
	MaxTokens          int
}

// Requires reports whether the profile needs the given section.
func (p Profile) Requires(s Section) bool {
	return p.Sections[s]
}

var profiles = map[Purpose]Profile{
	PurposeSafetyReview: {
		Sections: map[Section]bool{
			SectionDemographics:      true,
			SectionDiagnoses:         true,
			SectionMedications:       true,
			SectionAssessmentHistory: true,
			SectionAlerts:            true,
		},
		AssessmentLimit: 5,
		MaxTokens:       4000,
	},
	PurposeBilling: {
		Sections: map[Section]bool{
			SectionDemographics:   true,
			SectionDiagnoses:      true,
			SectionRecentSessions: true,
		},
		SessionLimit:       1,
		IncludeTranscripts: true,
		MaxTokens:          3000,
	},
	PurposeProgressReview: {
		Sections: map[Section]bool{
			SectionDemographics:      true,
			SectionDiagnoses:         true,
			SectionTreatmentPlan:     true,
			SectionRecentSessions:    true,
			SectionAssessmentHistory: true,
		},
		SessionLimit:    3,
		AssessmentLimit: 5,
		MaxTokens:       6000,
	},
	PurposeGeneral: {
		Sections: map[Section]bool{
			SectionDemographics:      true,
			SectionDiagnoses:         true,
			SectionMedications:       true,
			SectionTreatmentPlan:     true,
			SectionRecentSessions:    true,
			SectionAssessmentHistory: true,
			SectionAlerts:            true,
		},
		SessionLimit:       DefaultSessionLimit,
		AssessmentLimit:    DefaultAssessmentLimit,
		IncludeTranscripts: true,
		MaxTokens:          DefaultMaxTokens,
	},
}

// ProfileFor resolves the profile for a purpose. An empty or unknown purpose
// falls back to the general/full profile.
func ProfileFor(p Purpose) (Purpose, Profile) {
	if prof, ok := profiles[p]; ok {
		return p, prof
	}
	return PurposeGeneral, profiles[PurposeGeneral]
}
