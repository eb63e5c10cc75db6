package prompter

import (
	"fmt"
	"strings"

	"warehouse-chat/internal/semmodel"
	"warehouse-chat/internal/warehouse"
)

// Assembler builds the text sent to the completion service for SQL
// generation. It is pure string construction: deterministic for identical
// inputs, no external calls.
type Assembler struct{}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// BuildSQLPrompt produces the SQL-generation prompt for a question. The
// richest available context wins: an active semantic model, then an
// introspected schema, then bare database/schema names, then nothing.
func (a *Assembler) BuildSQLPrompt(question string, model *semmodel.Model, schema *warehouse.SchemaContext, database, dbSchema string) string {
	if model != nil {
		switch model.Shape {
		case semmodel.ShapeCurrent:
			return a.buildCurrentModelPrompt(question, model)
		case semmodel.ShapeLegacy:
			return a.buildLegacyModelPrompt(question, model.Legacy, database, dbSchema)
		}
	}

	if schema != nil && len(schema.Tables) > 0 {
		return a.buildSchemaPrompt(question, schema)
	}

	if database != "" && dbSchema != "" {
		return a.buildQualifiedPrompt(question, database, dbSchema)
	}

	return fmt.Sprintf("Convert this question to SQL: %s\nReturn only the SQL query without any explanations.", question)
}

// buildSchemaPrompt uses an auto-discovered schema as context.
func (a *Assembler) buildSchemaPrompt(question string, schema *warehouse.SchemaContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Database: %s\n", schema.Database)
	fmt.Fprintf(&b, "Schema: %s\n\n", schema.Schema)
	b.WriteString("Available Tables and Columns:\n")

	for _, table := range schema.Tables {
		fmt.Fprintf(&b, "\n%s:\n", table.Name)
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "  - %s (%s)\n", col.Name, col.DataType)
		}
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	fmt.Fprintf(&b, "Use fully qualified table names in the form %s.%s.TABLE_NAME.\n", schema.Database, schema.Schema)
	b.WriteString("Generate a SQL query to answer this question. Return only the SQL query without any explanations.")

	return b.String()
}

// buildQualifiedPrompt covers the case where only connection parameters are
// known.
func (a *Assembler) buildQualifiedPrompt(question, database, dbSchema string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are generating SQL for the database %s, schema %s.\n", database, dbSchema)
	fmt.Fprintf(&b, "All table references must be fully qualified as %s.%s.TABLE_NAME.\n\n", database, dbSchema)
	fmt.Fprintf(&b, "Question: %s\n", question)
	b.WriteString("Generate a SQL query to answer this question. Return only the SQL query without any explanations.")

	return b.String()
}

func (a *Assembler) buildLegacyModelPrompt(question string, model *semmodel.LegacyModel, database, dbSchema string) string {
	var b strings.Builder

	b.WriteString("You are generating SQL using the following data model.\n\n")
	b.WriteString("Tables:\n")
	for _, table := range model.Tables {
		fmt.Fprintf(&b, "\n%s", table.Name)
		if table.Description != "" {
			fmt.Fprintf(&b, " - %s", table.Description)
		}
		b.WriteString(":\n")
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "  - %s (%s)", col.Name, col.Type)
			if col.Description != "" {
				fmt.Fprintf(&b, ": %s", col.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(model.Relationships) > 0 {
		b.WriteString("\nRelationships:\n")
		for _, rel := range model.Relationships {
			fmt.Fprintf(&b, "  - %s.%s %s %s.%s\n", rel.FromTable, rel.FromColumn, rel.Type, rel.ToTable, rel.ToColumn)
		}
	}

	if database != "" && dbSchema != "" {
		fmt.Fprintf(&b, "\nAll table references must be fully qualified as %s.%s.TABLE_NAME.\n", database, dbSchema)
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	b.WriteString("Generate a SQL query to answer this question. Return only the SQL query without any explanations.")

	return b.String()
}

func (a *Assembler) buildCurrentModelPrompt(question string, full *semmodel.Model) string {
	model := full.Current
	var b strings.Builder

	b.WriteString("You are generating SQL using the following semantic model.\n\n")
	b.WriteString("Logical Tables:\n")
	for _, table := range model.LogicalTables {
		fmt.Fprintf(&b, "\n%s (physical table: %s)", table.Name, table.BaseTable)
		if table.Description != "" {
			fmt.Fprintf(&b, " - %s", table.Description)
		}
		b.WriteString(":\n")
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "  - %s (%s)", col.Name, col.Type)
			if col.Description != "" {
				fmt.Fprintf(&b, ": %s", col.Description)
			}
			if len(col.Synonyms) > 0 {
				fmt.Fprintf(&b, " [synonyms: %s]", strings.Join(col.Synonyms, ", "))
			}
			b.WriteString("\n")
		}
	}

	if len(model.Relationships) > 0 {
		b.WriteString("\nRelationships:\n")
		for _, rel := range model.Relationships {
			fmt.Fprintf(&b, "  - %s.%s %s %s.%s\n", rel.FromTable, rel.FromColumn, rel.Type, rel.ToTable, rel.ToColumn)
		}
	}

	if len(model.Metrics) > 0 {
		b.WriteString("\nMetrics:\n")
		for _, metric := range model.Metrics {
			fmt.Fprintf(&b, "  - %s = %s", metric.Name, metric.Expr)
			if metric.Description != "" {
				fmt.Fprintf(&b, " (%s)", metric.Description)
			}
			if len(metric.Synonyms) > 0 {
				fmt.Fprintf(&b, " [synonyms: %s]", strings.Join(metric.Synonyms, ", "))
			}
			b.WriteString("\n")
		}
	}

	if len(model.VerifiedQueries) > 0 {
		b.WriteString("\nVerified Example Queries:\n")
		for _, vq := range model.VerifiedQueries {
			fmt.Fprintf(&b, "\nQuestion: %s\nSQL: %s\n", vq.Question, vq.SQL)
		}
	}

	if database, dbSchema := full.InferDatabaseSchema(); database != "" {
		fmt.Fprintf(&b, "\nAll table references must be fully qualified as %s.%s.TABLE_NAME.\n", database, dbSchema)
	}

	b.WriteString(sqlRules)
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	b.WriteString("Generate a SQL query to answer this question. Return only the SQL query without any explanations.")

	return b.String()
}

const sqlRules = `
SQL Generation Rules:
1. Use consistent table aliases throughout the query
2. Use exact column names as listed in the semantic model
3. Every non-aggregated column in the SELECT list must appear in GROUP BY
4. When a metric is requested, use its defining SQL expression exactly
5. Prefer explicit JOIN conditions from the listed relationships

Example Query Patterns:
-- Aggregate by category:
SELECT t.category, SUM(t.amount) AS total FROM DB.SCHEMA.TABLE t GROUP BY t.category ORDER BY total DESC

-- Time window filter:
SELECT * FROM DB.SCHEMA.TABLE t WHERE t.event_date >= DATEADD(month, -1, CURRENT_DATE)

-- Top N:
SELECT t.name, COUNT(*) AS cnt FROM DB.SCHEMA.TABLE t GROUP BY t.name ORDER BY cnt DESC LIMIT 10
`
