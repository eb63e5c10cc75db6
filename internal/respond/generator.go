package respond

import (
	"context"
	"fmt"
	"strings"

	"warehouse-chat/internal/common/logger"
	"warehouse-chat/internal/completion"
	"warehouse-chat/internal/models"
)

// Response is the outcome of a non-data turn.
type Response struct {
	Text        string
	Type        string
	RequiresSQL bool
}

// SessionContext carries the session facts the templates embed.
type SessionContext struct {
	HasSemanticModel bool
	QueryCount       int
	WebSearchContext string
}

// Generator produces conversational replies for the non-data categories.
// Each category has its own prompt template and its own canned fallback, so
// a dead completion service still yields a sensible reply. UNCLEAR never
// calls the completion service at all.
type Generator struct {
	completions completion.Service
	logger      logger.Logger
}

func NewGenerator(completions completion.Service, log logger.Logger) *Generator {
	return &Generator{
		completions: completions,
		logger:      log,
	}
}

func (g *Generator) Generate(ctx context.Context, question string, classification models.Classification, sessCtx SessionContext) Response {
	switch classification.Type {
	case models.QueryTypeGreeting:
		return g.greeting(ctx, question, sessCtx)
	case models.QueryTypeHelpRequest:
		return g.help(ctx, question, sessCtx)
	case models.QueryTypeGeneralQuestion:
		return g.general(ctx, question, sessCtx)
	default:
		return g.clarification(question)
	}
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, bool) {
	if g.completions == nil {
		return "", false
	}
	text, err := g.completions.Complete(ctx, prompt)
	if err != nil {
		g.logger.Warn("Response generation call failed, using canned fallback", map[string]interface{}{
			"error": err.Error(),
		})
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

func (g *Generator) greeting(ctx context.Context, question string, sessCtx SessionContext) Response {
	contextInfo := ""
	if sessCtx.QueryCount > 0 {
		contextInfo = fmt.Sprintf("The user has asked %d questions in this session. ", sessCtx.QueryCount)
	}
	semanticStatus := "No semantic model is currently loaded."
	if sessCtx.HasSemanticModel {
		semanticStatus = "Custom semantic model is loaded and ready for data queries."
	}

	prompt := fmt.Sprintf(`You are a friendly and helpful data analytics assistant. Generate a warm, personalized greeting response.

CONTEXT:
- User greeting: %q
- Semantic model status: %s
- Session context: %s

GUIDELINES:
- Be warm and welcoming
- Briefly mention your capabilities (natural-language data analysis)
- Reference the semantic model status naturally
- Keep it concise but informative
- Don't use technical jargon

Generate a friendly greeting response in 2-3 sentences.
`, question, semanticStatus, contextInfo)

	if text, ok := g.complete(ctx, prompt); ok {
		return Response{Text: text, Type: "greeting"}
	}

	statusMsg := "I'm ready to help, though uploading a semantic model would improve data query accuracy."
	if sessCtx.HasSemanticModel {
		statusMsg = "I have your semantic model loaded and ready for accurate data queries!"
	}
	return Response{
		Text: fmt.Sprintf("Hello! I'm your data analytics assistant. %s I can help you analyze data with natural language queries or answer questions about SQL and databases. What would you like to explore?", statusMsg),
		Type: "greeting",
	}
}

func (g *Generator) help(ctx context.Context, question string, sessCtx SessionContext) Response {
	semanticStatus := "active without semantic model"
	accuracyNote := "Data queries may be less accurate without a semantic model"
	if sessCtx.HasSemanticModel {
		semanticStatus = "active with custom semantic model"
		accuracyNote = "Data queries will have enhanced accuracy due to semantic model"
	}

	prompt := fmt.Sprintf(`You are a data analytics assistant. Generate a helpful response about your capabilities.

USER REQUEST: %q
CURRENT STATUS: %s

CAPABILITIES TO MENTION:
1. Data Analysis: Convert natural language to SQL queries and execute them
2. SQL Assistance: Help with SQL concepts, syntax, and best practices
3. Database Support: Explain warehouse features and database concepts
4. Semantic Models: Enhanced accuracy when custom semantic models are uploaded

CURRENT LIMITATIONS:
- %s

Generate a helpful, structured response that explains capabilities clearly and addresses their specific question. Keep it practical and actionable.
`, question, semanticStatus, accuracyNote)

	if text, ok := g.complete(ctx, prompt); ok {
		return Response{Text: text, Type: "help"}
	}

	semanticInfo := "No semantic model uploaded - data queries may be less accurate"
	if sessCtx.HasSemanticModel {
		semanticInfo = "Custom semantic model loaded - ready for accurate data queries!"
	}
	return Response{
		Text: fmt.Sprintf(`I'm your data analytics assistant! Here's what I can help you with:

**Data Analysis**: Ask questions about your data in natural language, and I'll convert them to SQL queries and show you the results.

**SQL Help**: Get assistance with SQL syntax, query optimization, and database concepts.

**Technical Support**: Learn about warehouse features, best practices, and data analysis techniques.

**Current Status**: %s

What would you like to explore? You can ask me anything from "Show me sales by region" to "How do I write a JOIN query".`, semanticInfo),
		Type: "help",
	}
}

func (g *Generator) general(ctx context.Context, question string, sessCtx SessionContext) Response {
	searchContext := ""
	if sessCtx.WebSearchContext != "" {
		searchContext = fmt.Sprintf("\n\nCURRENT WEB INFORMATION:\n%s\n", sessCtx.WebSearchContext)
	}

	prompt := fmt.Sprintf(`You are a knowledgeable data analytics assistant. Answer the user's question about SQL, databases, or data analysis concepts.

USER QUESTION: %q%s

GUIDELINES:
- Provide accurate, helpful information
- Focus on practical examples when possible
- Keep explanations clear and accessible
- If it's about SQL, include simple examples
- Be concise but thorough
- Don't generate actual SQL queries - this is for conceptual help
- If web search information is provided, incorporate relevant current information

Provide a helpful, informative response.
`, question, searchContext)

	if text, ok := g.complete(ctx, prompt); ok {
		return Response{Text: text, Type: "general"}
	}

	return Response{
		Text: fmt.Sprintf(`I understand you're asking about %q. While I'm specialized in helping with data analysis, I can also assist with:

- SQL query writing and optimization
- Database concepts and terminology
- Warehouse features and best practices
- Data analysis methodologies

If you have specific questions about your data, I can help generate SQL queries to find answers. For the most accurate results with data queries, consider uploading a semantic model first.

Could you provide more details about what you'd like to know?`, question),
		Type: "general",
	}
}

// clarification is fully local: unclear intent gets a fixed menu of the
// three things the assistant can do.
func (g *Generator) clarification(question string) Response {
	return Response{
		Text: fmt.Sprintf(`I want to help you with %q, but I'm not quite sure what you're looking for.

Could you clarify if you want to:
- **Analyze data** - Ask questions about your data that I can convert to SQL queries
- **Learn about SQL** - Get help with database concepts, syntax, or best practices
- **Get system help** - Understand my capabilities or how to use this tool

For example:
- "Show me sales data by region" (data analysis)
- "How do I write a JOIN query?" (SQL help)
- "What can you help me with?" (system help)

What specifically would you like assistance with?`, question),
		Type: "clarification",
	}
}
