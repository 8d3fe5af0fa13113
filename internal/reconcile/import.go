package reconcile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"content-service/internal/model"
	"content-service/internal/store"
)

// RowError is one row-level import failure. Row failures never abort the
// run; they are collected and reported together.
type RowError struct {
	Line       int    `json:"line"`
	NaturalKey string `json:"natural_key"`
	Message    string `json:"message"`
}

// Report summarizes an import run.
type Report struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors"`
}

// Import parses the CSV and reconciles each row against the project's
// items, strictly in file order. Rows resolve by natural key: update in
// place when the key exists, create otherwise. Blank rows and rows with an
// empty natural key are skipped.
func (r *Reconciler) Import(projectID uint, src io.Reader) (*Report, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty csv: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	keyCol := -1
	for i, name := range header {
		if name == ColumnNaturalKey {
			keyCol = i
			break
		}
	}
	if keyCol < 0 {
		return nil, fmt.Errorf("csv header is missing the %s column", ColumnNaturalKey)
	}

	// Any header that is not a scalar or multi-valued column is a custom
	// attribute; attributes unseen so far are created before any values
	// are written.
	attrIDs, err := r.ensureAttributes(projectID, header)
	if err != nil {
		return nil, err
	}

	report := &Report{Errors: []RowError{}}
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			report.Errors = append(report.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}

		if blankRow(row) {
			report.Skipped++
			continue
		}

		naturalKey := ""
		if keyCol < len(row) {
			naturalKey = strings.TrimSpace(row[keyCol])
		}
		if naturalKey == "" {
			// An item must never end up with an empty natural key, so
			// keyless rows are skipped entirely.
			report.Skipped++
			continue
		}

		created, err := r.applyRow(projectID, header, row, naturalKey, attrIDs)
		if err != nil {
			report.Errors = append(report.Errors, RowError{
				Line:       line,
				NaturalKey: naturalKey,
				Message:    err.Error(),
			})
			continue
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}

	return report, nil
}

// applyRow executes steps 2..6 for one row, strictly in order: the item
// upsert completes first since the child writes need the item id.
func (r *Reconciler) applyRow(projectID uint, header, row []string, naturalKey string, attrIDs map[string]uint) (bool, error) {
	item, err := r.store.ItemByNaturalKey(projectID, naturalKey)
	created := false
	switch {
	case errors.Is(err, store.ErrNotFound):
		item = &model.Item{ProjectID: projectID, ProductCode: naturalKey}
		created = true
	case err != nil:
		return false, err
	}

	// Scalar columns present in the header: empty clears, non-empty
	// overwrites. Columns absent from the header are left untouched.
	// Cells are stored verbatim so exported values survive a re-import;
	// only the natural key is trimmed.
	for i, col := range header {
		if i >= len(row) || !isScalarColumn(col) {
			continue
		}
		scalarSetters[col](item, row[i])
	}
	// The key cell itself was already validated non-empty.
	item.ProductCode = naturalKey

	if created {
		if err := r.store.CreateItem(item); err != nil {
			return false, fmt.Errorf("creating item: %w", err)
		}
	} else {
		if err := r.store.SaveItem(item); err != nil {
			return false, fmt.Errorf("updating item: %w", err)
		}
	}

	for i, col := range header {
		if i >= len(row) {
			continue
		}
		cell := row[i]
		switch {
		case col == columnKeywords:
			// Full replacement: a present-but-empty cell clears the list.
			if err := r.store.ReplaceKeywords(item.ID, splitValues(cell)); err != nil {
				return created, fmt.Errorf("replacing keywords: %w", err)
			}
		case col == columnQuestions:
			if err := r.store.ReplaceQuestions(item.ID, splitValues(cell)); err != nil {
				return created, fmt.Errorf("replacing questions: %w", err)
			}
		case isScalarColumn(col):
			// Already applied on the item record.
		default:
			attrID, ok := attrIDs[col]
			if !ok {
				continue
			}
			if err := r.store.SetAttributeValue(item.ID, attrID, cell); err != nil {
				return created, fmt.Errorf("writing attribute %q: %w", col, err)
			}
		}
	}

	return created, nil
}

// ensureAttributes resolves every custom-attribute header to an attribute
// id, creating missing attributes.
func (r *Reconciler) ensureAttributes(projectID uint, header []string) (map[string]uint, error) {
	attrs, err := r.store.AttributesByProject(projectID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]uint, len(attrs))
	for _, a := range attrs {
		ids[a.Name] = a.ID
	}

	for _, col := range header {
		if col == "" || isScalarColumn(col) || isMultiValueColumn(col) {
			continue
		}
		if _, ok := ids[col]; ok {
			continue
		}
		attr := &model.Attribute{ProjectID: projectID, Name: col}
		if err := r.store.CreateAttribute(attr); err != nil {
			return nil, fmt.Errorf("creating attribute %q: %w", col, err)
		}
		ids[col] = attr.ID
	}
	return ids, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
