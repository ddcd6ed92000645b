package taxonomy

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "taxonomie.matrix.csv"))
}

func TestCreateTermAndGetTerm(t *testing.T) {
	s := newTestStore(t)

	term, err := s.CreateTerm("Rust", "", "Programming", "Systems language", "#FF6600", "gear", "admin")
	require.NoError(t, err)
	assert.Equal(t, "Programming:Rust", term.TermID)
	assert.Equal(t, "active", term.Status)
	assert.Equal(t, 0, term.UsageCount)

	fetched, err := s.GetTerm("Programming:Rust")
	require.NoError(t, err)
	assert.Equal(t, "Rust", fetched.Term)
}

func TestCreateTermRejectsDuplicateInSameCategory(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateTerm("Rust", "", "Programming", "", "", "", "admin")
	require.NoError(t, err)

	_, err = s.CreateTerm("Rust", "", "Programming", "", "", "", "admin")
	require.Error(t, err)
}

func TestCreateTermRejectsMissingParent(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateTerm("Rust", "Programming:Missing", "Programming", "", "", "", "admin")
	require.Error(t, err)
}

func TestCreateTermValidatesColor(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateTerm("Rust", "", "Programming", "", "not-a-color", "", "admin")
	require.Error(t, err)
}

func TestListTermsFiltersByCategoryAndStatus(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateTerm("Rust", "", "Programming", "", "", "", "admin")
	require.NoError(t, err)
	_, err = s.CreateTerm("Go", "", "Programming", "", "", "", "admin")
	require.NoError(t, err)
	_, err = s.CreateTerm("Coffee", "", "Drinks", "", "", "", "admin")
	require.NoError(t, err)

	terms, err := s.ListTerms("Programming", "", "")
	require.NoError(t, err)
	assert.Len(t, terms, 2)
}

func TestSearchTermsMatchesDescription(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateTerm("Rust", "", "Programming", "Systems programming language", "", "", "admin")
	require.NoError(t, err)

	results, err := s.SearchTerms("systems", "")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestUpdateTermAppliesPartialChanges(t *testing.T) {
	s := newTestStore(t)
	term, err := s.CreateTerm("Rust", "", "Programming", "", "", "", "admin")
	require.NoError(t, err)

	newDesc := "updated description"
	updated, err := s.UpdateTerm(term.TermID, TermUpdate{Description: &newDesc})
	require.NoError(t, err)
	assert.Equal(t, newDesc, updated.Description)
}

func TestUpdateTermRejectsSelfParent(t *testing.T) {
	s := newTestStore(t)
	term, err := s.CreateTerm("Rust", "", "Programming", "", "", "", "admin")
	require.NoError(t, err)

	selfID := term.TermID
	_, err = s.UpdateTerm(term.TermID, TermUpdate{ParentID: &selfID})
	require.Error(t, err)
}

func TestDeleteTermRejectsWithChildrenWithoutForce(t *testing.T) {
	s := newTestStore(t)
	parent, err := s.CreateTerm("Programming", "", "Topics", "", "", "", "admin")
	require.NoError(t, err)
	_, err = s.CreateTerm("Rust", parent.TermID, "Topics", "", "", "", "admin")
	require.NoError(t, err)

	err = s.DeleteTerm(parent.TermID, false)
	require.Error(t, err)

	err = s.DeleteTerm(parent.TermID, true)
	require.NoError(t, err)

	_, err = s.GetTerm(parent.TermID)
	assert.Error(t, err)
}

func TestAssignAndUnassignTermsTracksUsageCount(t *testing.T) {
	termsPath := filepath.Join(t.TempDir(), "taxonomie.matrix.csv")
	terms := NewStore(termsPath)
	term, err := terms.CreateTerm("Rust", "", "Programming", "", "", "", "admin")
	require.NoError(t, err)

	entities := NewEntityStore(filepath.Join(filepath.Dir(termsPath), "entity_taxonomy.matrix.csv"), terms)

	assigned, err := entities.AssignTerms(EntityContent, "post-1", []string{term.TermID}, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{term.TermID}, assigned.TermIDs)

	afterAssign, err := terms.GetTerm(term.TermID)
	require.NoError(t, err)
	assert.Equal(t, 1, afterAssign.UsageCount)

	byTerm, err := entities.ListEntitiesByTerm(term.TermID)
	require.NoError(t, err)
	assert.Len(t, byTerm, 1)

	_, err = entities.UnassignTerms(EntityContent, "post-1", []string{term.TermID})
	require.NoError(t, err)

	afterUnassign, err := terms.GetTerm(term.TermID)
	require.NoError(t, err)
	assert.Equal(t, 0, afterUnassign.UsageCount)
}

func TestAssignTermsRejectsUnknownTerm(t *testing.T) {
	termsPath := filepath.Join(t.TempDir(), "taxonomie.matrix.csv")
	terms := NewStore(termsPath)
	entities := NewEntityStore(filepath.Join(filepath.Dir(termsPath), "entity_taxonomy.matrix.csv"), terms)

	_, err := entities.AssignTerms(EntityContent, "post-1", []string{"Programming:Missing"}, "admin")
	require.Error(t, err)
}
