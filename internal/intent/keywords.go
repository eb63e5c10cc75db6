package intent

// Keyword lists driving the heuristic fallback. Matching is case-insensitive
// substring matching against the lowercased question, in priority order:
// greetings, help indicators, data indicators, SQL-learning terms.

var greetingPhrases = []string{
	"hello", "hi", "hey", "good morning", "good afternoon", "good evening", "how are you",
}

var helpIndicators = []string{
	"what can you do", "help", "capabilities", "how does this work", "what are your features",
}

var dataIndicators = []string{
	// quantitative
	"how many", "how much", "count", "total", "sum", "average", "avg", "maximum", "minimum",
	"top", "bottom", "highest", "lowest", "best", "worst", "most", "least",

	// business terms
	"sales", "revenue", "customers", "orders", "products", "users", "performance",
	"profit", "cost", "price", "value", "growth", "trends", "metrics", "kpi",

	// action words
	"show", "display", "get", "find", "analyze", "breakdown", "compare", "list",
	"report", "view", "see", "give me", "tell me about",

	// time-related
	"last month", "this year", "quarterly", "monthly", "daily", "weekly",
	"yesterday", "today", "recent", "current", "past", "previous",

	// data words
	"data", "table", "database", "records", "rows", "results",

	// SQL-like words
	"select", "from", "where", "group by", "order by",

	// comparison words
	"vs", "versus", "compared to", "difference", "change", "increase", "decrease",
}

var sqlLearningTerms = []string{
	"how to", "what is", "explain", "join", "query", "primary key", "foreign key",
}
