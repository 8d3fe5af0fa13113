package reconcile

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// utf8BOM leads the exported file so spreadsheet tools detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Export renders the project's items as CSV: the fixed scalar columns, the
// two |-joined multi-valued columns, then one column per project attribute.
func (r *Reconciler) Export(projectID uint) ([]byte, error) {
	items, err := r.store.ItemsByProject(projectID)
	if err != nil {
		return nil, err
	}
	attrs, err := r.store.AttributesByProject(projectID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(scalarColumns)+2+len(attrs))
	header = append(header, scalarColumns...)
	header = append(header, columnKeywords, columnQuestions)
	for _, a := range attrs {
		header = append(header, a.Name)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for i := range items {
		item := &items[i]

		keywords, err := r.store.KeywordsByItem(item.ID)
		if err != nil {
			return nil, err
		}
		questions, err := r.store.QuestionsByItem(item.ID)
		if err != nil {
			return nil, err
		}
		values, err := r.store.AttributeValuesByItem(item.ID)
		if err != nil {
			return nil, err
		}
		byAttr := make(map[uint]string, len(values))
		for _, v := range values {
			byAttr[v.AttributeID] = v.Value
		}

		row := make([]string, 0, len(header))
		for _, col := range scalarColumns {
			row = append(row, scalarGetters[col](item))
		}

		words := make([]string, len(keywords))
		for j, k := range keywords {
			words[j] = k.Word
		}
		texts := make([]string, len(questions))
		for j, q := range questions {
			texts[j] = q.Text
		}
		row = append(row, joinValues(words), joinValues(texts))

		for _, a := range attrs {
			row = append(row, byAttr[a.ID])
		}

		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}
	return buf.Bytes(), nil
}
