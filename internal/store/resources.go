// ABOUTME: Generic resource record storage backed by JSON documents.
// ABOUTME: Supports CRUD plus filtered, searched, ordered, and paginated listing.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Record is a resource document. The "id" key is always the row id.
type Record = map[string]any

// ErrInvalidField is returned for filter or ordering keys that are not
// plain identifiers.
var ErrInvalidField = errors.New("invalid field name")

var fieldPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ListQuery selects a page of records.
type ListQuery struct {
	Page     int // 1-based; values below 1 mean 1
	PageSize int // values below 1 mean DefaultPageSize
	// Ordering fields; a "-" prefix sorts descending. Ties break on id.
	Ordering []string
	// Search matches any top-level string value, case-insensitively.
	Search string
	// Filters are equality matches; several values for one key are ORed.
	Filters map[string][]string
}

const (
	DefaultPageSize = 25
	MaxPageSize     = 1000
)

// ListRecords returns one page of matching records and the total match count.
func (s *Store) ListRecords(resource string, q ListQuery) ([]Record, int, error) {
	where, args, err := recordWhere(resource, q)
	if err != nil {
		return nil, 0, err
	}
	orderBy, err := recordOrder(q.Ordering)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM records"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	rows, err := s.db.Query("SELECT id, data FROM records"+where+orderBy+" LIMIT ? OFFSET ?",
		append(args, size, (page-1)*size)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// GetRecord retrieves one record.
func (s *Store) GetRecord(resource string, id int64) (Record, error) {
	rec, err := scanRecord(s.db.QueryRow(`SELECT id, data FROM records WHERE resource = ? AND id = ?`, resource, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rec, err
}

// CreateRecord stores data as a new record. Any "id" in data is ignored.
func (s *Store) CreateRecord(resource string, data Record) (Record, error) {
	doc, err := encodeRecord(data)
	if err != nil {
		return nil, err
	}
	result, err := s.db.Exec(`INSERT INTO records (resource, data) VALUES (?, ?)`, resource, doc)
	if err != nil {
		return nil, errors.Wrapf(err, "insert %s record", resource)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetRecord(resource, id)
}

// UpdateRecord changes a record. With partial set the top-level keys of
// data are merged into the stored document; otherwise data replaces it.
func (s *Store) UpdateRecord(resource string, id int64, data Record, partial bool) (Record, error) {
	next := Record{}
	if partial {
		current, err := s.GetRecord(resource, id)
		if err != nil {
			return nil, err
		}
		for key, value := range current {
			next[key] = value
		}
	}
	for key, value := range data {
		next[key] = value
	}

	doc, err := encodeRecord(next)
	if err != nil {
		return nil, err
	}
	result, err := s.db.Exec(`
		UPDATE records SET data = ?, updated_at = CURRENT_TIMESTAMP
		WHERE resource = ? AND id = ?
	`, doc, resource, id)
	if err != nil {
		return nil, errors.Wrapf(err, "update %s record %d", resource, id)
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}
	return s.GetRecord(resource, id)
}

// DeleteRecord removes a record.
func (s *Store) DeleteRecord(resource string, id int64) error {
	result, err := s.db.Exec(`DELETE FROM records WHERE resource = ? AND id = ?`, resource, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ResourceCount is the number of stored records for one resource.
type ResourceCount struct {
	Resource string
	Count    int
}

// ListResources returns every resource name with its record count.
func (s *Store) ListResources() ([]ResourceCount, error) {
	rows, err := s.db.Query(`SELECT resource, COUNT(*) FROM records GROUP BY resource ORDER BY resource`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ResourceCount
	for rows.Next() {
		var c ResourceCount
		if err := rows.Scan(&c.Resource, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func recordWhere(resource string, q ListQuery) (string, []any, error) {
	clauses := []string{"resource = ?"}
	args := []any{resource}

	if q.Search != "" {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM json_each(records.data)
			WHERE json_each.type = 'text' AND json_each.value LIKE ? ESCAPE '\')`)
		args = append(args, "%"+escapeSQLLike(q.Search)+"%")
	}

	for key, values := range q.Filters {
		if !fieldPattern.MatchString(key) {
			return "", nil, errors.Wrap(ErrInvalidField, key)
		}
		if len(values) == 0 {
			continue
		}
		expr := "CAST(id AS TEXT)"
		if key != "id" {
			path := "$." + key
			expr = `(CASE json_type(data, ?) WHEN 'true' THEN 'true' WHEN 'false' THEN 'false'
				ELSE CAST(json_extract(data, ?) AS TEXT) END)`
			args = append(args, path, path)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", expr, placeholders))
		for _, v := range values {
			args = append(args, v)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func recordOrder(fields []string) (string, error) {
	var terms []string
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		if !fieldPattern.MatchString(field) {
			return "", errors.Wrap(ErrInvalidField, field)
		}
		if field == "id" {
			terms = append(terms, "id "+dir)
			continue
		}
		// Field names are validated above so the path is safe to inline.
		terms = append(terms, fmt.Sprintf("json_extract(data, '$.%s') %s", field, dir))
	}
	terms = append(terms, "id ASC")
	return " ORDER BY " + strings.Join(terms, ", "), nil
}

func encodeRecord(data Record) (string, error) {
	doc := make(Record, len(data))
	for key, value := range data {
		if key == "id" {
			continue
		}
		doc[key] = value
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, "encode record")
	}
	return string(b), nil
}

func scanRecord(row rowScanner) (Record, error) {
	var id int64
	var doc string
	if err := row.Scan(&id, &doc); err != nil {
		return nil, err
	}
	rec := Record{}
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, errors.Wrapf(err, "decode record %d", id)
	}
	rec["id"] = id
	return rec, nil
}
