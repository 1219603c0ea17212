package student

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/metrics"
)

// NameRecord is one student row in an export or import file.
type NameRecord struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
}

// ExportDoc is the JSON document produced by Export and accepted by Import.
type ExportDoc struct {
	ExportedAt time.Time    `json:"exported_at"`
	Count      int          `json:"count"`
	Students   []NameRecord `json:"students"`
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Rejected int `json:"rejected"`
}

// Export returns the teacher's students as an export document.
func (s *Service) Export(ctx context.Context, teacherID string) (ExportDoc, error) {
	students, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return ExportDoc{}, err
	}
	doc := ExportDoc{ExportedAt: time.Now().UTC(), Students: []NameRecord{}}
	for _, st := range students {
		doc.Students = append(doc.Students, NameRecord{
			FirstName:  st.FirstName,
			MiddleName: st.MiddleName,
			LastName:   st.LastName,
		})
	}
	doc.Count = len(doc.Students)
	return doc, nil
}

// Import bulk-creates students from an export document or a bare record
// list. Rows whose full name matches an existing student (case-insensitive)
// are skipped; rows with both first and last name blank are rejected.
func (s *Service) Import(ctx context.Context, teacherID string, data []byte) (ImportResult, error) {
	records, err := parseImport(data)
	if err != nil {
		return ImportResult{}, err
	}

	existing, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return ImportResult{}, err
	}
	seen := make(map[string]bool, len(existing))
	for _, st := range existing {
		seen[nameKey(st.FirstName, st.MiddleName, st.LastName)] = true
	}

	var res ImportResult
	for _, rec := range records {
		first := strings.TrimSpace(rec.FirstName)
		middle := strings.TrimSpace(rec.MiddleName)
		last := strings.TrimSpace(rec.LastName)
		if first == "" && last == "" {
			res.Rejected++
			metrics.ImportRows.WithLabelValues("rejected").Inc()
			continue
		}
		key := nameKey(first, middle, last)
		if seen[key] {
			res.Skipped++
			metrics.ImportRows.WithLabelValues("skipped").Inc()
			continue
		}
		if _, err := s.repo.Insert(ctx, Student{
			FirstName:  first,
			MiddleName: middle,
			LastName:   last,
		}, teacherID); err != nil {
			return res, err
		}
		seen[key] = true
		res.Imported++
		metrics.ImportRows.WithLabelValues("imported").Inc()
	}
	return res, nil
}

func parseImport(data []byte) ([]NameRecord, error) {
	var doc ExportDoc
	if err := json.Unmarshal(data, &doc); err == nil && doc.Students != nil {
		return doc.Students, nil
	}
	var list []NameRecord
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	return nil, apperr.Invalid("import file is not a valid student list")
}

func nameKey(first, middle, last string) string {
	return strings.ToLower(first) + "\x00" + strings.ToLower(middle) + "\x00" + strings.ToLower(last)
}
