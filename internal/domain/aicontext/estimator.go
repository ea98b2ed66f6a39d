package aicontext

import "encoding/json"

// charsPerToken is the fixed characters-per-token heuristic. It is an
// intentional approximation and is not expected to match any real
// tokenizer exactly; no caller may assume exactness.
const charsPerToken = 4

// EstimateTokens returns an approximate token count for the context body.
// The context is serialized to canonical JSON with its metadata zeroed
// (metadata describes the estimate, so it must not feed back into it) and
// the byte length is divided by charsPerToken, rounding up.
func EstimateTokens(pc *PatientContext) int {
	body := *pc
	body.Metadata = ContextMetadata{}

	b, err := json.Marshal(&body)
	if err != nil {
		// The context is built from plain data types; marshaling cannot
		// fail for a well-formed context.
		return 0
	}
	return (len(b) + charsPerToken - 1) / charsPerToken
}
