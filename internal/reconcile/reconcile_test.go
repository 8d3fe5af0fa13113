package reconcile

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"testing"

	"content-service/internal/model"
	"content-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for reconciler tests. Creation can be
// made to fail for chosen product codes to exercise row-error collection.
type memStore struct {
	nextID     uint
	items      map[uint]*model.Item
	keywords   map[uint][]string
	questions  map[uint][]string
	attrs      []model.Attribute
	values     map[uint]map[uint]string
	rejectKeys map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		items:      map[uint]*model.Item{},
		keywords:   map[uint][]string{},
		questions:  map[uint][]string{},
		values:     map[uint]map[uint]string{},
		rejectKeys: map[string]bool{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) ItemsByProject(projectID uint) ([]model.Item, error) {
	var items []model.Item
	for _, it := range m.items {
		if it.ProjectID == projectID {
			items = append(items, *it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductCode < items[j].ProductCode })
	return items, nil
}

func (m *memStore) ItemByNaturalKey(projectID uint, productCode string) (*model.Item, error) {
	for _, it := range m.items {
		if it.ProjectID == projectID && it.ProductCode == productCode {
			clone := *it
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) CreateItem(item *model.Item) error {
	if m.rejectKeys[item.ProductCode] {
		return fmt.Errorf("insert rejected for %s", item.ProductCode)
	}
	item.ID = m.id()
	clone := *item
	m.items[item.ID] = &clone
	return nil
}

func (m *memStore) SaveItem(item *model.Item) error {
	if _, ok := m.items[item.ID]; !ok {
		return store.ErrNotFound
	}
	clone := *item
	m.items[item.ID] = &clone
	return nil
}

func (m *memStore) KeywordsByItem(itemID uint) ([]model.Keyword, error) {
	var out []model.Keyword
	for _, w := range m.keywords[itemID] {
		out = append(out, model.Keyword{ItemID: itemID, Word: w})
	}
	return out, nil
}

func (m *memStore) ReplaceKeywords(itemID uint, words []string) error {
	m.keywords[itemID] = append([]string(nil), words...)
	return nil
}

func (m *memStore) QuestionsByItem(itemID uint) ([]model.Question, error) {
	var out []model.Question
	for _, q := range m.questions[itemID] {
		out = append(out, model.Question{ItemID: itemID, Text: q})
	}
	return out, nil
}

func (m *memStore) ReplaceQuestions(itemID uint, texts []string) error {
	m.questions[itemID] = append([]string(nil), texts...)
	return nil
}

func (m *memStore) AttributesByProject(projectID uint) ([]model.Attribute, error) {
	var out []model.Attribute
	for _, a := range m.attrs {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) CreateAttribute(attr *model.Attribute) error {
	attr.ID = m.id()
	m.attrs = append(m.attrs, *attr)
	return nil
}

func (m *memStore) AttributeValuesByItem(itemID uint) ([]model.AttributeValue, error) {
	var out []model.AttributeValue
	for attrID, v := range m.values[itemID] {
		out = append(out, model.AttributeValue{ItemID: itemID, AttributeID: attrID, Value: v})
	}
	return out, nil
}

func (m *memStore) SetAttributeValue(itemID, attributeID uint, value string) error {
	if m.values[itemID] == nil {
		m.values[itemID] = map[uint]string{}
	}
	m.values[itemID][attributeID] = value
	return nil
}

func (m *memStore) mustItem(t *testing.T, projectID uint, code string) *model.Item {
	t.Helper()
	item, err := m.ItemByNaturalKey(projectID, code)
	require.NoError(t, err)
	return item
}

const projectID = uint(7)

func seedStore(t *testing.T) *memStore {
	t.Helper()
	m := newMemStore()

	a := &model.Item{
		ProjectID:      projectID,
		ProductCode:    "SKU-A",
		Name:           "Trail Jacket",
		Description:    "Light shell,\nwind resistant",
		Category:       "outdoor",
		TargetAudience: "hikers",
		Tone:           "confident",
		Notes:          `says "warm" a lot`,
	}
	require.NoError(t, m.CreateItem(a))
	require.NoError(t, m.ReplaceKeywords(a.ID, []string{"waterproof", "breathable"}))
	require.NoError(t, m.ReplaceQuestions(a.ID, []string{"Is it packable?", "Does it have a hood?"}))

	b := &model.Item{ProjectID: projectID, ProductCode: "SKU-B", Name: "City Bottle"}
	require.NoError(t, m.CreateItem(b))

	attr := &model.Attribute{ProjectID: projectID, Name: "material"}
	require.NoError(t, m.CreateAttribute(attr))
	require.NoError(t, m.SetAttributeValue(a.ID, attr.ID, "nylon"))
	require.NoError(t, m.SetAttributeValue(b.ID, attr.ID, "steel"))

	return m
}

func TestExport_Layout(t *testing.T) {
	m := seedStore(t)
	data, err := New(m).Export(projectID)
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}), "export must lead with a UTF-8 BOM")

	text := string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	lines := strings.SplitN(text, "\n", 2)
	assert.Equal(t,
		"product_code,name,description,category,target_audience,tone,notes,keywords,questions,material",
		lines[0])

	// Multi-valued cells are |-joined, never comma-joined.
	assert.Contains(t, text, "waterproof|breathable")
	assert.Contains(t, text, "Is it packable?|Does it have a hood?")

	// Embedded quotes survive CSV escaping.
	assert.Contains(t, text, `"says ""warm"" a lot"`)
}

func TestImport_RoundTrip(t *testing.T) {
	src := seedStore(t)
	data, err := New(src).Export(projectID)
	require.NoError(t, err)

	dst := newMemStore()
	report, err := New(dst).Import(projectID, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Empty(t, report.Errors)

	a := dst.mustItem(t, projectID, "SKU-A")
	assert.Equal(t, "Trail Jacket", a.Name)
	assert.Equal(t, "Light shell,\nwind resistant", a.Description)
	assert.Equal(t, "outdoor", a.Category)
	assert.Equal(t, "hikers", a.TargetAudience)
	assert.Equal(t, "confident", a.Tone)
	assert.Equal(t, `says "warm" a lot`, a.Notes)

	assert.ElementsMatch(t, []string{"waterproof", "breathable"}, dst.keywords[a.ID])
	assert.ElementsMatch(t, []string{"Is it packable?", "Does it have a hood?"}, dst.questions[a.ID])

	attrs, _ := dst.AttributesByProject(projectID)
	require.Len(t, attrs, 1)
	assert.Equal(t, "material", attrs[0].Name)
	assert.Equal(t, "nylon", dst.values[a.ID][attrs[0].ID])

	b := dst.mustItem(t, projectID, "SKU-B")
	assert.Equal(t, "City Bottle", b.Name)
	assert.Equal(t, "steel", dst.values[b.ID][attrs[0].ID])
}

func TestImport_PreservesCellWhitespace(t *testing.T) {
	src := newMemStore()
	item := &model.Item{
		ProjectID:   projectID,
		ProductCode: "SKU-WS",
		Name:        "  padded name  ",
		Notes:       "trailing tab\t",
	}
	require.NoError(t, src.CreateItem(item))
	attr := &model.Attribute{ProjectID: projectID, Name: "finish"}
	require.NoError(t, src.CreateAttribute(attr))
	require.NoError(t, src.SetAttributeValue(item.ID, attr.ID, " matte "))

	data, err := New(src).Export(projectID)
	require.NoError(t, err)

	dst := newMemStore()
	report, err := New(dst).Import(projectID, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	// Only the natural key is trimmed; every other cell round-trips verbatim.
	got := dst.mustItem(t, projectID, "SKU-WS")
	assert.Equal(t, "  padded name  ", got.Name)
	assert.Equal(t, "trailing tab\t", got.Notes)

	attrs, _ := dst.AttributesByProject(projectID)
	require.Len(t, attrs, 1)
	assert.Equal(t, " matte ", dst.values[got.ID][attrs[0].ID])
}

func TestImport_TrimsNaturalKey(t *testing.T) {
	m := newMemStore()

	csv := "product_code,name\n  SKU-1  ,First\n"
	report, err := New(m).Import(projectID, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	m.mustItem(t, projectID, "SKU-1")
}

func TestImport_UpdatesInPlaceByNaturalKey(t *testing.T) {
	m := seedStore(t)
	before := m.mustItem(t, projectID, "SKU-A")

	csv := "product_code,name\nSKU-A,Renamed Jacket\n"
	report, err := New(m).Import(projectID, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Updated)

	after := m.mustItem(t, projectID, "SKU-A")
	assert.Equal(t, before.ID, after.ID, "update in place, not recreate")
	assert.Equal(t, "Renamed Jacket", after.Name)
	// Columns absent from the header stay untouched.
	assert.Equal(t, "outdoor", after.Category)
	assert.ElementsMatch(t, []string{"waterproof", "breathable"}, m.keywords[after.ID])
}

func TestImport_EmptyScalarCellClears(t *testing.T) {
	m := seedStore(t)

	csv := "product_code,category\nSKU-A,\n"
	_, err := New(m).Import(projectID, strings.NewReader(csv))
	require.NoError(t, err)

	after := m.mustItem(t, projectID, "SKU-A")
	assert.Equal(t, "", after.Category, "an empty cell clears the field, never merges")
	assert.Equal(t, "Trail Jacket", after.Name)
}

func TestImport_MultiValueReplaceSemantics(t *testing.T) {
	t.Run("present cell fully replaces", func(t *testing.T) {
		m := seedStore(t)
		csv := "product_code,keywords\nSKU-A,recycled| insulated |\n"
		_, err := New(m).Import(projectID, strings.NewReader(csv))
		require.NoError(t, err)

		item := m.mustItem(t, projectID, "SKU-A")
		assert.Equal(t, []string{"recycled", "insulated"}, m.keywords[item.ID],
			"old entries are deleted, tokens trimmed, empties dropped")
	})

	t.Run("present but empty cell clears the list", func(t *testing.T) {
		m := seedStore(t)
		csv := "product_code,keywords\nSKU-A,\n"
		_, err := New(m).Import(projectID, strings.NewReader(csv))
		require.NoError(t, err)

		item := m.mustItem(t, projectID, "SKU-A")
		assert.Empty(t, m.keywords[item.ID])
	})

	t.Run("absent column leaves the list untouched", func(t *testing.T) {
		m := seedStore(t)
		csv := "product_code,name\nSKU-A,Still Jacket\n"
		_, err := New(m).Import(projectID, strings.NewReader(csv))
		require.NoError(t, err)

		item := m.mustItem(t, projectID, "SKU-A")
		assert.ElementsMatch(t, []string{"waterproof", "breathable"}, m.keywords[item.ID])
	})
}

func TestImport_SkipsBlankAndKeylessRows(t *testing.T) {
	m := newMemStore()

	csv := "product_code,name\n" +
		"SKU-1,First\n" +
		",Orphan\n" +
		"   ,Whitespace Key\n" +
		",,\n" +
		"SKU-2,Second\n"
	report, err := New(m).Import(projectID, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 3, report.Skipped)
	assert.Empty(t, report.Errors)

	items, _ := m.ItemsByProject(projectID)
	require.Len(t, items, 2)
}

func TestImport_UnknownHeaderCreatesAttribute(t *testing.T) {
	m := newMemStore()

	csv := "product_code,fit,fabric_weight\nSKU-1,slim,220gsm\nSKU-2,relaxed,\n"
	report, err := New(m).Import(projectID, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)

	attrs, _ := m.AttributesByProject(projectID)
	names := []string{}
	for _, a := range attrs {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"fit", "fabric_weight"}, names)

	one := m.mustItem(t, projectID, "SKU-1")
	two := m.mustItem(t, projectID, "SKU-2")
	byName := map[string]uint{}
	for _, a := range attrs {
		byName[a.Name] = a.ID
	}
	assert.Equal(t, "slim", m.values[one.ID][byName["fit"]])
	assert.Equal(t, "220gsm", m.values[one.ID][byName["fabric_weight"]])
	assert.Equal(t, "", m.values[two.ID][byName["fabric_weight"]], "empty attribute cell clears")
}

func TestImport_RowFailuresAreCollectedNotFatal(t *testing.T) {
	m := newMemStore()
	m.rejectKeys["SKU-BAD"] = true

	csv := "product_code,name\nSKU-1,First\nSKU-BAD,Broken\nSKU-2,Second\n"
	report, err := New(m).Import(projectID, strings.NewReader(csv))
	require.NoError(t, err, "row failures must not abort the run")

	assert.Equal(t, 2, report.Created)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 3, report.Errors[0].Line)
	assert.Equal(t, "SKU-BAD", report.Errors[0].NaturalKey)
	assert.Contains(t, report.Errors[0].Message, "insert rejected")

	// The row after the failure was still processed.
	m.mustItem(t, projectID, "SKU-2")
}

func TestImport_HonorsQuotedFields(t *testing.T) {
	m := newMemStore()

	csv := "product_code,name,description\n" +
		"SKU-1,\"Jacket, Blue\",\"First line\nsecond line with \"\"quotes\"\"\"\n"
	_, err := New(m).Import(projectID, strings.NewReader(csv))
	require.NoError(t, err)

	item := m.mustItem(t, projectID, "SKU-1")
	assert.Equal(t, "Jacket, Blue", item.Name)
	assert.Equal(t, "First line\nsecond line with \"quotes\"", item.Description)
}

func TestImport_StripsLeadingBOM(t *testing.T) {
	m := newMemStore()

	csv := "\xEF\xBB\xBFproduct_code,name\nSKU-1,First\n"
	report, err := New(m).Import(projectID, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
}

func TestImport_MissingKeyColumnFails(t *testing.T) {
	m := newMemStore()

	_, err := New(m).Import(projectID, strings.NewReader("name,notes\nJacket,hello\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product_code")
}

func TestImport_EmptyFileFails(t *testing.T) {
	m := newMemStore()

	_, err := New(m).Import(projectID, strings.NewReader(""))
	require.Error(t, err)
}

func TestImport_ShortRowLeavesTrailingColumnsUntouched(t *testing.T) {
	m := seedStore(t)

	// Header names keywords, but the row ends before that column; the
	// collection must be left alone, unlike a present-but-empty cell.
	csv := "product_code,name,keywords\nSKU-A,Short Row\n"
	_, err := New(m).Import(projectID, strings.NewReader(csv))
	require.NoError(t, err)

	item := m.mustItem(t, projectID, "SKU-A")
	assert.Equal(t, "Short Row", item.Name)
	assert.ElementsMatch(t, []string{"waterproof", "breathable"}, m.keywords[item.ID])
}

func TestSplitValues(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitValues("a|b"))
	assert.Equal(t, []string{"a", "b"}, splitValues(" a | b "))
	assert.Empty(t, splitValues(""))
	assert.Empty(t, splitValues("||"))
}

func TestJoinValues_StripsNewlines(t *testing.T) {
	assert.Equal(t, "one two|three", joinValues([]string{"one\r\ntwo", "three"}))
}
