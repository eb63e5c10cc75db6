// Package semmodel loads and holds user-supplied semantic models: structured
// documents describing tables, columns, relationships, metrics, and verified
// example queries, used to improve generated-SQL accuracy. Two document
// shapes are recognized and resolved into a tagged union at load time.
package semmodel

import "strings"

// Shape tags which of the two recognized document shapes a model has.
type Shape string

const (
	// ShapeLegacy is the tables/relationships document shape.
	ShapeLegacy Shape = "legacy"
	// ShapeCurrent is the logical_tables/metrics/verified_queries shape.
	ShapeCurrent Shape = "current"
)

// Model is a loaded semantic model. Exactly one of Legacy or Current is
// non-nil, matching Shape.
type Model struct {
	Name        string
	Description string
	Version     string
	Shape       Shape
	Legacy      *LegacyModel
	Current     *CurrentModel
}

type LegacyModel struct {
	Tables        []LegacyTable  `yaml:"tables"`
	Relationships []Relationship `yaml:"relationships"`
}

type LegacyTable struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Columns     []Column `yaml:"columns"`
}

type CurrentModel struct {
	LogicalTables   []LogicalTable  `yaml:"logical_tables"`
	Relationships   []Relationship  `yaml:"relationships"`
	Metrics         []Metric        `yaml:"metrics"`
	VerifiedQueries []VerifiedQuery `yaml:"verified_queries"`
}

type LogicalTable struct {
	Name        string   `yaml:"name"`
	BaseTable   string   `yaml:"base_table"`
	Description string   `yaml:"description"`
	Columns     []Column `yaml:"columns"`
}

type Column struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Synonyms    []string `yaml:"synonyms"`
}

type Relationship struct {
	FromTable  string `yaml:"from_table"`
	FromColumn string `yaml:"from_column"`
	ToTable    string `yaml:"to_table"`
	ToColumn   string `yaml:"to_column"`
	Type       string `yaml:"type"`
}

type Metric struct {
	Name        string   `yaml:"name"`
	Expr        string   `yaml:"expr"`
	Description string   `yaml:"description"`
	Synonyms    []string `yaml:"synonyms"`
}

type VerifiedQuery struct {
	Name     string `yaml:"name"`
	Question string `yaml:"question"`
	SQL      string `yaml:"sql"`
}

// InferDatabaseSchema splits the first logical table's physical table name
// on "." and returns (database, schema). It expects exactly DB.SCHEMA.TABLE;
// anything else returns empty strings.
func (m *Model) InferDatabaseSchema() (string, string) {
	if m == nil || m.Shape != ShapeCurrent || m.Current == nil || len(m.Current.LogicalTables) == 0 {
		return "", ""
	}
	parts := strings.Split(m.Current.LogicalTables[0].BaseTable, ".")
	if len(parts) != 3 {
		return "", ""
	}
	return parts[0], parts[1]
}
