package taxonomy

import (
	"strconv"

	"github.com/vvoss-dev/reedcms/internal/csv"
	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// EntityType names what kind of object a taxonomy assignment belongs to.
type EntityType int

const (
	EntityUser EntityType = iota
	EntityContent
	EntityTemplate
	EntityProject
	EntityAsset
	EntityRole
)

func (t EntityType) String() string {
	switch t {
	case EntityUser:
		return "user"
	case EntityContent:
		return "content"
	case EntityTemplate:
		return "template"
	case EntityProject:
		return "project"
	case EntityAsset:
		return "asset"
	case EntityRole:
		return "role"
	default:
		return "unknown"
	}
}

// EntityTerms is the set of taxonomy terms assigned to one entity.
type EntityTerms struct {
	EntityType EntityType
	EntityID   string
	TermIDs    []string
	AssignedBy string
	AssignedAt string
	UpdatedAt  string
}

var entityFieldOrder = []string{
	"entity_key", "entity_type", "entity_id", "term_ids",
	"assigned_by", "assigned_at", "updated_at",
}

// EntityStore manages a single entity_taxonomy.matrix.csv file and keeps
// term usage_count in sync on assignment/unassignment via its paired
// terms Store.
type EntityStore struct {
	path  string
	terms *Store
}

// NewEntityStore wraps the entity-taxonomy file at path, tracking usage
// counts against terms.
func NewEntityStore(path string, terms *Store) *EntityStore {
	return &EntityStore{path: path, terms: terms}
}

func (s *EntityStore) read() ([]csv.MatrixRecord, error) {
	listFields := map[string]bool{"term_ids": true}
	records, err := csv.ReadMatrixCSV(s.path, listFields)
	if err != nil {
		if reedErr, ok := reedstream.AsReedError(err); ok && reedErr.Kind == reedstream.KindIoError {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

func (s *EntityStore) write(records []csv.MatrixRecord) error {
	return csv.WriteMatrixCSV(s.path, append(entityFieldOrder, "desc"), records)
}

// AssignTerms verifies every term ID exists, replaces entityType/entityID's
// term list (creating the assignment row if absent), and increments
// usage_count once for every term in termIDs, including terms the entity
// already had; terms dropped from the list by the replacement are not
// decremented.
func (s *EntityStore) AssignTerms(entityType EntityType, entityID string, termIDs []string, assignedBy string) (EntityTerms, error) {
	if entityID == "" {
		return EntityTerms{}, reedstream.Validation("entity_id", entityID, "cannot be empty")
	}
	if err := s.verifyTermsExist(termIDs); err != nil {
		return EntityTerms{}, err
	}

	records, err := s.read()
	if err != nil {
		return EntityTerms{}, err
	}

	entityKey := entityType.String() + ":" + entityID
	now := nowRFC3339()

	idx := -1
	for i, r := range records {
		if r.Fields["entity_key"].Single == entityKey {
			idx = i
			break
		}
	}

	rec := csv.MatrixRecord{
		Fields:      map[string]csv.MatrixValue{},
		FieldOrder:  entityFieldOrder,
		Description: "Entity-term assignment",
	}
	if idx >= 0 {
		rec = records[idx]
	}
	setSingle(&rec, "entity_key", entityKey)
	setSingle(&rec, "entity_type", entityType.String())
	setSingle(&rec, "entity_id", entityID)
	rec.Fields["term_ids"] = csv.MatrixValue{List: termIDs, IsList: true}
	setSingle(&rec, "assigned_by", assignedBy)
	if idx == -1 {
		setSingle(&rec, "assigned_at", now)
	}
	setSingle(&rec, "updated_at", now)

	if idx >= 0 {
		records[idx] = rec
	} else {
		records = append(records, rec)
	}

	if err := s.write(records); err != nil {
		return EntityTerms{}, err
	}
	if err := s.updateTermUsage(termIDs, 1); err != nil {
		return EntityTerms{}, err
	}

	return parseEntityTerms(rec), nil
}

// GetEntityTerms returns the terms assigned to one entity.
func (s *EntityStore) GetEntityTerms(entityType EntityType, entityID string) (EntityTerms, error) {
	records, err := s.read()
	if err != nil {
		return EntityTerms{}, err
	}
	entityKey := entityType.String() + ":" + entityID
	for _, r := range records {
		if r.Fields["entity_key"].Single == entityKey {
			return parseEntityTerms(r), nil
		}
	}
	return EntityTerms{}, reedstream.NotFound("entity: " + entityKey)
}

// ListEntitiesByTerm returns every entity-term record that references
// termID.
func (s *EntityStore) ListEntitiesByTerm(termID string) ([]EntityTerms, error) {
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	var out []EntityTerms
	for _, r := range records {
		for _, tid := range r.Fields["term_ids"].List {
			if tid == termID {
				out = append(out, parseEntityTerms(r))
				break
			}
		}
	}
	return out, nil
}

// UnassignTerms removes termIDs from entityType/entityID's assignment
// and decrements usage_count for each removed term.
func (s *EntityStore) UnassignTerms(entityType EntityType, entityID string, termIDs []string) (EntityTerms, error) {
	records, err := s.read()
	if err != nil {
		return EntityTerms{}, err
	}
	entityKey := entityType.String() + ":" + entityID

	idx := -1
	for i, r := range records {
		if r.Fields["entity_key"].Single == entityKey {
			idx = i
			break
		}
	}
	if idx == -1 {
		return EntityTerms{}, reedstream.NotFound("entity: " + entityKey)
	}

	rec := records[idx]
	remaining := make([]string, 0, len(rec.Fields["term_ids"].List))
	removed := make([]string, 0, len(termIDs))
	removeSet := make(map[string]bool, len(termIDs))
	for _, tid := range termIDs {
		removeSet[tid] = true
	}
	for _, tid := range rec.Fields["term_ids"].List {
		if removeSet[tid] {
			removed = append(removed, tid)
			continue
		}
		remaining = append(remaining, tid)
	}

	rec.Fields["term_ids"] = csv.MatrixValue{List: remaining, IsList: true}
	setSingle(&rec, "updated_at", nowRFC3339())
	records[idx] = rec

	if err := s.write(records); err != nil {
		return EntityTerms{}, err
	}
	if len(removed) > 0 {
		if err := s.updateTermUsage(removed, -1); err != nil {
			return EntityTerms{}, err
		}
	}

	return parseEntityTerms(rec), nil
}

func (s *EntityStore) verifyTermsExist(termIDs []string) error {
	records, err := s.terms.read()
	if err != nil {
		return err
	}
	for _, tid := range termIDs {
		if !termExists(records, tid) {
			return reedstream.Validation("term_ids", tid, "term does not exist")
		}
	}
	return nil
}

func (s *EntityStore) updateTermUsage(termIDs []string, delta int) error {
	if s.terms == nil || len(termIDs) == 0 {
		return nil
	}
	records, err := s.terms.read()
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(termIDs))
	for _, tid := range termIDs {
		set[tid] = true
	}
	for i, r := range records {
		if !set[r.Fields["term_id"].Single] {
			continue
		}
		info := parseTermInfo(r)
		usage := info.UsageCount + delta
		if usage < 0 {
			usage = 0
		}
		setSingle(&records[i], "usage_count", strconv.Itoa(usage))
	}
	return s.terms.write(records)
}

func parseEntityTerms(r csv.MatrixRecord) EntityTerms {
	return EntityTerms{
		EntityType: parseEntityType(r.Fields["entity_type"].Single),
		EntityID:   r.Fields["entity_id"].Single,
		TermIDs:    r.Fields["term_ids"].List,
		AssignedBy: r.Fields["assigned_by"].Single,
		AssignedAt: r.Fields["assigned_at"].Single,
		UpdatedAt:  r.Fields["updated_at"].Single,
	}
}

func parseEntityType(s string) EntityType {
	switch s {
	case "user":
		return EntityUser
	case "content":
		return EntityContent
	case "template":
		return EntityTemplate
	case "project":
		return EntityProject
	case "asset":
		return EntityAsset
	case "role":
		return EntityRole
	default:
		return EntityContent
	}
}
