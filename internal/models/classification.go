package models

// QueryType is the fixed, exhaustive set of intent categories.
type QueryType string

const (
	QueryTypeDataQuery       QueryType = "data_query"
	QueryTypeGeneralQuestion QueryType = "general_question"
	QueryTypeGreeting        QueryType = "greeting"
	QueryTypeHelpRequest     QueryType = "help_request"
	QueryTypeUnclear         QueryType = "unclear"
)

// ParseQueryType maps a free-form category string (the remote completion
// service may answer in either case) to a QueryType, defaulting to unclear.
func ParseQueryType(s string) QueryType {
	switch QueryType(normalizeCategory(s)) {
	case QueryTypeDataQuery:
		return QueryTypeDataQuery
	case QueryTypeGeneralQuestion:
		return QueryTypeGeneralQuestion
	case QueryTypeGreeting:
		return QueryTypeGreeting
	case QueryTypeHelpRequest:
		return QueryTypeHelpRequest
	case QueryTypeUnclear:
		return QueryTypeUnclear
	default:
		return QueryTypeUnclear
	}
}

func normalizeCategory(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// Classification is the derived result of intent classification. It is
// produced fresh per question and never cached.
type Classification struct {
	Type                  QueryType `json:"type"`
	Confidence            float64   `json:"confidence"`
	Reasoning             string    `json:"reasoning"`
	RequiresSQL           bool      `json:"requires_sql"`
	SuggestedResponseType string    `json:"suggested_response_type"`
	DataKeywords          []string  `json:"data_keywords,omitempty"`
	IntentAnalysis        string    `json:"intent_analysis,omitempty"`
}
