// Package taxonomy implements hierarchical term management and
// entity-term assignment over the Matrix CSV format, mirroring
// ReedCMS's .reed/taxonomie.matrix.csv and
// .reed/entity_taxonomy.matrix.csv stores.
package taxonomy

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vvoss-dev/reedcms/internal/csv"
	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// TermInfo is one taxonomy term.
type TermInfo struct {
	TermID      string
	Term        string
	ParentID    string
	Category    string
	Description string
	Color       string
	Icon        string
	Status      string
	CreatedBy   string
	UsageCount  int
	CreatedAt   string
	UpdatedAt   string
}

var termFieldOrder = []string{
	"term_id", "term", "category", "parent_id", "description",
	"color", "icon", "status", "created_by", "usage_count",
	"created_at", "updated_at",
}

var termNamePattern = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)
var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Store manages a single taxonomie.matrix.csv file.
type Store struct {
	path string
}

// NewStore wraps the taxonomy term file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) read() ([]csv.MatrixRecord, error) {
	records, err := csv.ReadMatrixCSV(s.path, nil)
	if err != nil {
		if reedErr, ok := reedstream.AsReedError(err); ok && reedErr.Kind == reedstream.KindIoError {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

func (s *Store) write(records []csv.MatrixRecord) error {
	return csv.WriteMatrixCSV(s.path, append(termFieldOrder, "desc"), records)
}

// CreateTerm validates term/category/color, rejects duplicate
// term+category pairs and dangling parent references, and appends a new
// active term with usage_count 0.
func (s *Store) CreateTerm(term, parentID, category, description, color, icon, createdBy string) (TermInfo, error) {
	if err := validateTermName(term); err != nil {
		return TermInfo{}, err
	}
	if category == "" || len(category) > 32 {
		return TermInfo{}, reedstream.Validation("category", category, "1-32 characters")
	}
	if strings.Contains(category, ":") {
		return TermInfo{}, reedstream.Validation("category", category, "must not contain ':'")
	}
	if color != "" {
		if err := validateColor(color); err != nil {
			return TermInfo{}, err
		}
	}

	records, err := s.read()
	if err != nil {
		return TermInfo{}, err
	}

	for _, r := range records {
		if r.Fields["term"].Single == term && r.Fields["category"].Single == category {
			return TermInfo{}, reedstream.Validation("term", term, "already exists in category '"+category+"'")
		}
	}

	if parentID != "" && !termExists(records, parentID) {
		return TermInfo{}, reedstream.Validation("parent_id", parentID, "parent term does not exist")
	}

	now := nowRFC3339()
	termID := category + ":" + term

	rec := csv.MatrixRecord{
		Fields:      map[string]csv.MatrixValue{},
		FieldOrder:  termFieldOrder,
		Description: "Taxonomy term",
	}
	setSingle(&rec, "term_id", termID)
	setSingle(&rec, "term", term)
	setSingle(&rec, "category", category)
	setSingle(&rec, "parent_id", parentID)
	setSingle(&rec, "description", description)
	setSingle(&rec, "color", color)
	setSingle(&rec, "icon", icon)
	setSingle(&rec, "status", "active")
	setSingle(&rec, "created_by", createdBy)
	setSingle(&rec, "usage_count", "0")
	setSingle(&rec, "created_at", now)
	setSingle(&rec, "updated_at", now)

	records = append(records, rec)
	if err := s.write(records); err != nil {
		return TermInfo{}, err
	}

	return parseTermInfo(rec), nil
}

// GetTerm finds one term by its term_id.
func (s *Store) GetTerm(termID string) (TermInfo, error) {
	records, err := s.read()
	if err != nil {
		return TermInfo{}, err
	}
	for _, r := range records {
		if r.Fields["term_id"].Single == termID {
			return parseTermInfo(r), nil
		}
	}
	return TermInfo{}, reedstream.NotFound("term: " + termID)
}

// ListTerms returns terms matching the given optional filters; an empty
// filter value means "no filter" for that dimension, except parentID ==
// "root" which means "no parent".
func (s *Store) ListTerms(category, parentID, status string) ([]TermInfo, error) {
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	var out []TermInfo
	for _, r := range records {
		if category != "" && r.Fields["category"].Single != category {
			continue
		}
		if parentID != "" {
			recParent := r.Fields["parent_id"].Single
			if parentID == "root" {
				if recParent != "" {
					continue
				}
			} else if recParent != parentID {
				continue
			}
		}
		if status != "" && r.Fields["status"].Single != status {
			continue
		}
		out = append(out, parseTermInfo(r))
	}
	return out, nil
}

// SearchTerms matches query case-insensitively against term name,
// category, and description.
func (s *Store) SearchTerms(query, category string) ([]TermInfo, error) {
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(query)
	var out []TermInfo
	for _, r := range records {
		if category != "" && r.Fields["category"].Single != category {
			continue
		}
		if !strings.Contains(strings.ToLower(r.Fields["term"].Single), lower) &&
			!strings.Contains(strings.ToLower(r.Fields["category"].Single), lower) &&
			!strings.Contains(strings.ToLower(r.Fields["description"].Single), lower) {
			continue
		}
		out = append(out, parseTermInfo(r))
	}
	return out, nil
}

// TermUpdate carries the optional fields update_term may change;
// nil means "leave unchanged", a non-nil pointer to an empty string
// clears an optional field.
type TermUpdate struct {
	Term        *string
	ParentID    *string
	Description *string
	Color       *string
	Icon        *string
	Status      *string
}

// UpdateTerm applies a partial update to an existing term, validating
// any changed fields (name, parent existence, no self-parenting, color
// format, status enum) before writing.
func (s *Store) UpdateTerm(termID string, update TermUpdate) (TermInfo, error) {
	records, err := s.read()
	if err != nil {
		return TermInfo{}, err
	}

	idx := -1
	for i, r := range records {
		if r.Fields["term_id"].Single == termID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return TermInfo{}, reedstream.NotFound("term: " + termID)
	}

	if update.Term != nil {
		if err := validateTermName(*update.Term); err != nil {
			return TermInfo{}, err
		}
	}
	if update.ParentID != nil && *update.ParentID != "" {
		if *update.ParentID == termID {
			return TermInfo{}, reedstream.Validation("parent_id", *update.ParentID, "cannot set term as its own parent")
		}
		if !termExists(records, *update.ParentID) {
			return TermInfo{}, reedstream.Validation("parent_id", *update.ParentID, "parent term does not exist")
		}
	}
	if update.Color != nil && *update.Color != "" {
		if err := validateColor(*update.Color); err != nil {
			return TermInfo{}, err
		}
	}
	if update.Status != nil && *update.Status != "active" && *update.Status != "inactive" {
		return TermInfo{}, reedstream.Validation("status", *update.Status, "must be 'active' or 'inactive'")
	}

	rec := records[idx]
	if update.Term != nil {
		setSingle(&rec, "term", *update.Term)
	}
	if update.ParentID != nil {
		setSingle(&rec, "parent_id", *update.ParentID)
	}
	if update.Description != nil {
		setSingle(&rec, "description", *update.Description)
	}
	if update.Color != nil {
		setSingle(&rec, "color", *update.Color)
	}
	if update.Icon != nil {
		setSingle(&rec, "icon", *update.Icon)
	}
	if update.Status != nil {
		setSingle(&rec, "status", *update.Status)
	}
	setSingle(&rec, "updated_at", nowRFC3339())
	records[idx] = rec

	if err := s.write(records); err != nil {
		return TermInfo{}, err
	}
	return parseTermInfo(rec), nil
}

// DeleteTerm removes a term, refusing when it has children unless force
// is set.
func (s *Store) DeleteTerm(termID string, force bool) error {
	records, err := s.read()
	if err != nil {
		return err
	}

	found := false
	hasChildren := false
	kept := make([]csv.MatrixRecord, 0, len(records))
	for _, r := range records {
		if r.Fields["term_id"].Single == termID {
			found = true
			continue
		}
		if r.Fields["parent_id"].Single == termID {
			hasChildren = true
		}
		kept = append(kept, r)
	}
	if !found {
		return reedstream.NotFound("term: " + termID)
	}
	if hasChildren && !force {
		return reedstream.Validation("term_id", termID, "has child terms; use force to delete anyway")
	}
	if hasChildren && force {
		kept = removeDescendants(kept, termID)
	}
	return s.write(kept)
}

func removeDescendants(records []csv.MatrixRecord, parentID string) []csv.MatrixRecord {
	kept := make([]csv.MatrixRecord, 0, len(records))
	var toRemove []string
	for _, r := range records {
		if r.Fields["parent_id"].Single == parentID {
			toRemove = append(toRemove, r.Fields["term_id"].Single)
			continue
		}
		kept = append(kept, r)
	}
	for _, childID := range toRemove {
		kept = removeDescendants(kept, childID)
	}
	return kept
}

func termExists(records []csv.MatrixRecord, termID string) bool {
	for _, r := range records {
		if r.Fields["term_id"].Single == termID {
			return true
		}
	}
	return false
}

func setSingle(rec *csv.MatrixRecord, field, value string) {
	rec.Fields[field] = csv.MatrixValue{Single: value}
}

func parseTermInfo(r csv.MatrixRecord) TermInfo {
	status := r.Fields["status"].Single
	if status == "" {
		status = "active"
	}
	usage, _ := strconv.Atoi(r.Fields["usage_count"].Single)
	return TermInfo{
		TermID:      r.Fields["term_id"].Single,
		Term:        r.Fields["term"].Single,
		ParentID:    r.Fields["parent_id"].Single,
		Category:    r.Fields["category"].Single,
		Description: r.Fields["description"].Single,
		Color:       r.Fields["color"].Single,
		Icon:        r.Fields["icon"].Single,
		Status:      status,
		CreatedBy:   r.Fields["created_by"].Single,
		UsageCount:  usage,
		CreatedAt:   r.Fields["created_at"].Single,
		UpdatedAt:   r.Fields["updated_at"].Single,
	}
}

func validateTermName(term string) error {
	if len(term) < 2 || len(term) > 64 {
		return reedstream.Validation("term", term, "2-64 characters")
	}
	if !termNamePattern.MatchString(term) {
		return reedstream.Validation("term", term, "alphanumeric + spaces/hyphens/underscores only")
	}
	return nil
}

func validateColor(color string) error {
	if !colorPattern.MatchString(color) {
		return reedstream.Validation("color", color, "must be #RRGGBB format")
	}
	return nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
