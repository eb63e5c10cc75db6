package respond

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-chat/internal/common/logger"
	"warehouse-chat/internal/models"
)

type fakeCompletions struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCompletions) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func classification(qt models.QueryType) models.Classification {
	return models.Classification{Type: qt, Confidence: 0.9}
}

func TestGenerate_Greeting_Remote(t *testing.T) {
	fake := &fakeCompletions{response: "Hi there! Ready to dig into your data."}
	g := NewGenerator(fake, logger.NewTestLogger(t))

	resp := g.Generate(context.Background(), "Hello", classification(models.QueryTypeGreeting), SessionContext{
		HasSemanticModel: true,
		QueryCount:       3,
	})

	assert.Equal(t, "greeting", resp.Type)
	assert.Equal(t, "Hi there! Ready to dig into your data.", resp.Text)
	assert.False(t, resp.RequiresSQL)
	require.Len(t, fake.prompts, 1)
	assert.Contains(t, fake.prompts[0], "Custom semantic model is loaded")
	assert.Contains(t, fake.prompts[0], "asked 3 questions")
}

func TestGenerate_Greeting_FallbackOnError(t *testing.T) {
	fake := &fakeCompletions{err: errors.New("unreachable")}
	g := NewGenerator(fake, logger.NewTestLogger(t))

	resp := g.Generate(context.Background(), "Hi", classification(models.QueryTypeGreeting), SessionContext{})

	assert.Equal(t, "greeting", resp.Type)
	assert.Contains(t, resp.Text, "Hello! I'm your data analytics assistant.")
	assert.Contains(t, resp.Text, "uploading a semantic model")
}

func TestGenerate_Help_FallbackOnEmptyCompletion(t *testing.T) {
	fake := &fakeCompletions{response: "   "}
	g := NewGenerator(fake, logger.NewTestLogger(t))

	resp := g.Generate(context.Background(), "what can you do", classification(models.QueryTypeHelpRequest), SessionContext{
		HasSemanticModel: true,
	})

	assert.Equal(t, "help", resp.Type)
	assert.Contains(t, resp.Text, "Data Analysis")
	assert.Contains(t, resp.Text, "Custom semantic model loaded")
}

func TestGenerate_General_IncludesWebSearchContext(t *testing.T) {
	fake := &fakeCompletions{response: "A JOIN combines rows from two tables."}
	g := NewGenerator(fake, logger.NewTestLogger(t))

	resp := g.Generate(context.Background(), "what is a join", classification(models.QueryTypeGeneralQuestion), SessionContext{
		WebSearchContext: "Web Search Results for: what is a join\nSummary: joins combine tables",
	})

	assert.Equal(t, "general", resp.Type)
	require.Len(t, fake.prompts, 1)
	assert.Contains(t, fake.prompts[0], "CURRENT WEB INFORMATION")
	assert.Contains(t, fake.prompts[0], "joins combine tables")
}

func TestGenerate_Unclear_NeverCallsRemote(t *testing.T) {
	fake := &fakeCompletions{response: "should never be used"}
	g := NewGenerator(fake, logger.NewTestLogger(t))

	resp := g.Generate(context.Background(), "????", classification(models.QueryTypeUnclear), SessionContext{})

	assert.Empty(t, fake.prompts, "clarification must not call the completion service")
	assert.Equal(t, "clarification", resp.Type)
	assert.Contains(t, resp.Text, "Analyze data")
	assert.Contains(t, resp.Text, "Learn about SQL")
	assert.Contains(t, resp.Text, "Get system help")
	assert.Contains(t, resp.Text, "How do I write a JOIN query?")
}

func TestGenerate_NilCompletionServiceUsesFallbacks(t *testing.T) {
	g := NewGenerator(nil, logger.NewTestLogger(t))

	resp := g.Generate(context.Background(), "hello", classification(models.QueryTypeGreeting), SessionContext{})

	assert.Equal(t, "greeting", resp.Type)
	assert.NotEmpty(t, resp.Text)
}
