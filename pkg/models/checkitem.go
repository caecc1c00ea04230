package models

// CheckGroup is one node of the check catalog tree. Groups own items; the
// engine only ever reads them.
type CheckGroup struct {
	ID          string      `yaml:"id" json:"id"`
	Key         string      `yaml:"key" json:"key"`
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	SortOrder   int         `yaml:"sort_order" json:"sort_order"`
	Enabled     bool        `yaml:"enabled" json:"enabled"`
	Items       []CheckItem `yaml:"items" json:"items"`
}

// CheckItem is a single configurable check. The prompt template drives
// model-backed checkers; rule-backed checkers key off ItemKey alone.
type CheckItem struct {
	ID             string `yaml:"id" json:"id"`
	GroupID        string `yaml:"group_id" json:"group_id"`
	ItemKey        string `yaml:"key" json:"key"`
	ItemName       string `yaml:"name" json:"name"`
	Description    string `yaml:"description,omitempty" json:"description,omitempty"`
	PromptTemplate string `yaml:"prompt_template,omitempty" json:"prompt_template,omitempty"`
	Severity       string `yaml:"severity" json:"severity"`
	SortOrder      int    `yaml:"sort_order" json:"sort_order"`
	Enabled        bool   `yaml:"enabled" json:"enabled"`
}
