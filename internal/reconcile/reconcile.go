// Package reconcile converts between the tabular CSV representation and the
// per-item relational records. Export produces one row per item; import
// upserts by natural key with full-replacement semantics for multi-valued
// columns.
package reconcile

import (
	"strings"

	"content-service/internal/model"
)

// Store is the record surface the reconciler needs. *store.Store implements
// it; tests use an in-memory fake.
type Store interface {
	ItemsByProject(projectID uint) ([]model.Item, error)
	ItemByNaturalKey(projectID uint, productCode string) (*model.Item, error)
	CreateItem(item *model.Item) error
	SaveItem(item *model.Item) error
	KeywordsByItem(itemID uint) ([]model.Keyword, error)
	ReplaceKeywords(itemID uint, words []string) error
	QuestionsByItem(itemID uint) ([]model.Question, error)
	ReplaceQuestions(itemID uint, texts []string) error
	AttributesByProject(projectID uint) ([]model.Attribute, error)
	CreateAttribute(attr *model.Attribute) error
	AttributeValuesByItem(itemID uint) ([]model.AttributeValue, error)
	SetAttributeValue(itemID, attributeID uint, value string) error
}

// Reconciler performs CSV export and import for one record store.
type Reconciler struct {
	store Store
}

// New creates a reconciler over the given store.
func New(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// ColumnNaturalKey is the join column for import; a row without it is
// skipped entirely.
const ColumnNaturalKey = "product_code"

// Multi-valued columns use | between values so commas never need
// CSV-escaping inside a cell.
const ValueSeparator = "|"

const (
	columnKeywords  = "keywords"
	columnQuestions = "questions"
)

// scalarColumns lists the fixed item columns in export order. The natural
// key comes first.
var scalarColumns = []string{
	ColumnNaturalKey,
	"name",
	"description",
	"category",
	"target_audience",
	"tone",
	"notes",
}

var scalarGetters = map[string]func(*model.Item) string{
	ColumnNaturalKey:  func(i *model.Item) string { return i.ProductCode },
	"name":            func(i *model.Item) string { return i.Name },
	"description":     func(i *model.Item) string { return i.Description },
	"category":        func(i *model.Item) string { return i.Category },
	"target_audience": func(i *model.Item) string { return i.TargetAudience },
	"tone":            func(i *model.Item) string { return i.Tone },
	"notes":           func(i *model.Item) string { return i.Notes },
}

var scalarSetters = map[string]func(*model.Item, string){
	ColumnNaturalKey:  func(i *model.Item, v string) { i.ProductCode = v },
	"name":            func(i *model.Item, v string) { i.Name = v },
	"description":     func(i *model.Item, v string) { i.Description = v },
	"category":        func(i *model.Item, v string) { i.Category = v },
	"target_audience": func(i *model.Item, v string) { i.TargetAudience = v },
	"tone":            func(i *model.Item, v string) { i.Tone = v },
	"notes":           func(i *model.Item, v string) { i.Notes = v },
}

func isScalarColumn(name string) bool {
	_, ok := scalarSetters[name]
	return ok
}

func isMultiValueColumn(name string) bool {
	return name == columnKeywords || name == columnQuestions
}

// joinValues serializes a multi-valued collection into one cell. Newlines
// inside values are flattened so the cell stays single-line.
func joinValues(values []string) string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ReplaceAll(v, "\r", "")
		v = strings.ReplaceAll(v, "\n", " ")
		cleaned = append(cleaned, v)
	}
	return strings.Join(cleaned, ValueSeparator)
}

// splitValues parses a multi-valued cell: split on |, trim, drop empties.
func splitValues(cell string) []string {
	parts := strings.Split(cell, ValueSeparator)
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			values = append(values, p)
		}
	}
	return values
}
