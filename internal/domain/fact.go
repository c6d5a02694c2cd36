package domain

// FactCategory classifies an extracted fact.
type FactCategory string

const (
	CategoryPreference FactCategory = "preference"
	CategoryInterest   FactCategory = "interest"
	CategoryFact       FactCategory = "fact"
)

// ValidCategory reports whether c is one of the known fact categories.
func ValidCategory(c FactCategory) bool {
	switch c {
	case CategoryPreference, CategoryInterest, CategoryFact:
		return true
	}
	return false
}

// ExtractedFact is a single piece of information pulled out of a
// conversation by the content extractor.
type ExtractedFact struct {
	Content    string       `json:"content"`
	Category   FactCategory `json:"type"`
	Confidence float64      `json:"confidence"`
	Namespace  string       `json:"namespace"`
}

// ExtractionResult carries the facts produced by one extraction pass.
// Degraded is set when the model call or response parsing failed and the
// extractor fell back to an empty result; callers can then distinguish
// "nothing worth remembering" from "extraction broke".
type ExtractionResult struct {
	Facts    []ExtractedFact
	Degraded bool
}
