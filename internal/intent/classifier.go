package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"warehouse-chat/internal/common/logger"
	"warehouse-chat/internal/common/metrics"
	"warehouse-chat/internal/completion"
	"warehouse-chat/internal/models"
)

// Classifier maps a free-text question to a query category. The primary
// path asks the completion service for a structured JSON verdict; any
// failure along that path degrades to local keyword heuristics, so
// Classify always produces a usable result.
type Classifier struct {
	completions completion.Service
	logger      logger.Logger
}

func NewClassifier(completions completion.Service, log logger.Logger) *Classifier {
	return &Classifier{
		completions: completions,
		logger:      log,
	}
}

// Classify determines the category of a user question. It never returns an
// error: remote failures and unparsable output fall back to heuristics.
func (c *Classifier) Classify(ctx context.Context, question string, hasSemanticModel bool) models.Classification {
	if c.completions == nil {
		return c.heuristicResult(question)
	}

	prompt := buildClassificationPrompt(question, hasSemanticModel)

	raw, err := c.completions.Complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("Classification call failed, falling back to heuristics", map[string]interface{}{
			"error": err.Error(),
		})
		return c.heuristicResult(question)
	}

	result, ok := c.parseClassification(raw)
	if !ok {
		c.logger.Warn("Classification response unparsable, falling back to heuristics", map[string]interface{}{
			"response_length": len(raw),
		})
		return c.heuristicResult(question)
	}

	metrics.ClassificationTotal.WithLabelValues(string(result.Type), "remote").Inc()
	c.logger.Debug("Question classified", map[string]interface{}{
		"type":       string(result.Type),
		"confidence": result.Confidence,
		"path":       "remote",
	})
	return result
}

func (c *Classifier) heuristicResult(question string) models.Classification {
	result := c.classifyHeuristic(question)
	metrics.ClassificationTotal.WithLabelValues(string(result.Type), "heuristic").Inc()
	return result
}

// parseClassification extracts the first-{ to last-} substring of the
// response and decodes it as a classification JSON object.
func (c *Classifier) parseClassification(raw string) (models.Classification, bool) {
	cleaned := strings.TrimSpace(raw)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return models.Classification{}, false
	}

	var payload struct {
		Type                  string   `json:"type"`
		Confidence            float64  `json:"confidence"`
		Reasoning             string   `json:"reasoning"`
		RequiresSQL           *bool    `json:"requires_sql"`
		SuggestedResponseType string   `json:"suggested_response_type"`
		DataKeywords          []string `json:"data_keywords"`
		IntentAnalysis        string   `json:"intent_analysis"`
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err != nil {
		return models.Classification{}, false
	}

	result := models.Classification{
		Type:                  models.ParseQueryType(payload.Type),
		Confidence:            payload.Confidence,
		Reasoning:             payload.Reasoning,
		SuggestedResponseType: payload.SuggestedResponseType,
		DataKeywords:          payload.DataKeywords,
		IntentAnalysis:        payload.IntentAnalysis,
	}

	if result.Confidence == 0 {
		result.Confidence = 0.7
	}
	if result.Reasoning == "" {
		result.Reasoning = "Classified by completion service"
	}
	if payload.RequiresSQL != nil {
		result.RequiresSQL = *payload.RequiresSQL
	} else {
		result.RequiresSQL = result.Type == models.QueryTypeDataQuery
	}
	if result.SuggestedResponseType == "" {
		result.SuggestedResponseType = "conversational"
	}
	if result.DataKeywords == nil {
		result.DataKeywords = []string{}
	}
	if result.IntentAnalysis == "" {
		result.IntentAnalysis = "No intent analysis provided"
	}

	return result, true
}

// classifyHeuristic applies ordered keyword matching. The final branch
// deliberately assumes data intent: attempting SQL generation on an
// ambiguous question beats refusing to try.
func (c *Classifier) classifyHeuristic(question string) models.Classification {
	lowered := strings.ToLower(strings.TrimSpace(question))

	if containsAny(lowered, greetingPhrases) && len(strings.Fields(lowered)) <= 5 {
		return models.Classification{
			Type:                  models.QueryTypeGreeting,
			Confidence:            0.9,
			Reasoning:             "Contains greeting words",
			RequiresSQL:           false,
			SuggestedResponseType: "greeting",
			DataKeywords:          []string{},
			IntentAnalysis:        "Social greeting",
		}
	}

	if containsAny(lowered, helpIndicators) {
		return models.Classification{
			Type:                  models.QueryTypeHelpRequest,
			Confidence:            0.8,
			Reasoning:             "Contains help request indicators",
			RequiresSQL:           false,
			SuggestedResponseType: "help",
			DataKeywords:          []string{},
			IntentAnalysis:        "Request for assistant capabilities",
		}
	}

	var found []string
	for _, word := range dataIndicators {
		if strings.Contains(lowered, word) {
			found = append(found, word)
		}
	}
	if len(found) > 0 {
		return models.Classification{
			Type:                  models.QueryTypeDataQuery,
			Confidence:            0.8,
			Reasoning:             fmt.Sprintf("Contains data query indicators: %v", found),
			RequiresSQL:           true,
			SuggestedResponseType: "sql_generation",
			DataKeywords:          found,
			IntentAnalysis:        "Likely data analysis request based on keywords",
		}
	}

	if containsAny(lowered, sqlLearningTerms) {
		return models.Classification{
			Type:                  models.QueryTypeGeneralQuestion,
			Confidence:            0.7,
			Reasoning:             "Contains SQL learning indicators",
			RequiresSQL:           false,
			SuggestedResponseType: "conversational",
			DataKeywords:          []string{},
			IntentAnalysis:        "Request for SQL/database knowledge",
		}
	}

	return models.Classification{
		Type:                  models.QueryTypeDataQuery,
		Confidence:            0.6,
		Reasoning:             "Default classification - assuming data query intent",
		RequiresSQL:           true,
		SuggestedResponseType: "sql_generation",
		DataKeywords:          []string{},
		IntentAnalysis:        "Uncertain intent - defaulting to data query",
	}
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func buildClassificationPrompt(question string, hasSemanticModel bool) string {
	var b strings.Builder

	b.WriteString("You are an expert assistant specialized in understanding user intent for a data analytics chatbot.\n")
	b.WriteString("Your job is to deeply analyze user questions and classify them with high accuracy.\n\n")
	b.WriteString("CRITICAL INSTRUCTIONS:\n")
	b.WriteString("- Analyze the user's ACTUAL INTENT, not just keywords\n")
	b.WriteString("- Look for subtle data-related patterns and business contexts\n")
	b.WriteString("- Consider variations in how users might phrase data questions\n")
	b.WriteString("- Default to DATA_QUERY when there's any possibility of data analysis intent\n\n")
	b.WriteString("CONTEXT:\n")
	b.WriteString(fmt.Sprintf("- Semantic model available: %t\n", hasSemanticModel))
	b.WriteString("- Users want to analyze business data, get insights, and generate reports\n")
	b.WriteString("- Most questions are likely about data analysis\n\n")
	b.WriteString("CLASSIFICATION CATEGORIES (in order of priority):\n\n")
	b.WriteString("1. DATA_QUERY - HIGH PRIORITY - Questions requiring SQL generation and data analysis\n")
	b.WriteString("   Indicators: business metrics, time-based analysis, aggregations, comparisons,\n")
	b.WriteString("   data exploration verbs, business entities, performance questions, quantitative terms\n\n")
	b.WriteString("2. GENERAL_QUESTION - Questions about SQL, databases, or technical concepts\n")
	b.WriteString("   Indicators: SQL syntax, database concepts, technical definitions, learning questions\n\n")
	b.WriteString("3. GREETING - Simple social interactions with no data intent\n\n")
	b.WriteString("4. HELP_REQUEST - Questions about chatbot capabilities\n\n")
	b.WriteString("5. UNCLEAR - Only for truly ambiguous or nonsensical questions\n\n")
	b.WriteString("ANALYSIS FRAMEWORK:\n")
	b.WriteString("1. Identify any business/data keywords or context\n")
	b.WriteString("2. Look for quantitative language or measurement words\n")
	b.WriteString("3. Consider if this could be answered with database data\n")
	b.WriteString("4. If there's ANY possibility of data analysis, classify as DATA_QUERY\n\n")
	b.WriteString(fmt.Sprintf("USER QUESTION: %q\n\n", question))
	b.WriteString("Analyze the question deeply and respond with a JSON object:\n")
	b.WriteString("{\n")
	b.WriteString("    \"type\": \"one of: DATA_QUERY, GENERAL_QUESTION, GREETING, HELP_REQUEST, UNCLEAR\",\n")
	b.WriteString("    \"confidence\": \"float between 0.0 and 1.0\",\n")
	b.WriteString("    \"reasoning\": \"explanation of why you chose this classification\",\n")
	b.WriteString("    \"requires_sql\": \"boolean - true if SQL generation needed\",\n")
	b.WriteString("    \"suggested_response_type\": \"one of: sql_generation, conversational, greeting, help, clarification\",\n")
	b.WriteString("    \"data_keywords\": \"list of business/data-related keywords found\",\n")
	b.WriteString("    \"intent_analysis\": \"analysis of the user's likely intent\"\n")
	b.WriteString("}\n\n")
	b.WriteString("Respond with ONLY the JSON object, no additional text.\n")

	return b.String()
}
