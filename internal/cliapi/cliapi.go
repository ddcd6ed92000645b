// Package cliapi defines the small set of contracts cmd/reedcmsd's
// cobra commands are built against, keeping command wiring independent
// of any one cache/store's concrete constructor.
package cliapi

import (
	"github.com/vvoss-dev/reedcms/internal/reedstream"
	"github.com/vvoss-dev/reedcms/internal/taxonomy"
)

// KVStore is the subset of reedbase.Cache every "get"/"set" CLI command
// needs: look up or persist one key, optionally scoped by language and
// environment.
type KVStore interface {
	Get(req reedstream.Request) (reedstream.Response[string], error)
	SetWithBackup(req reedstream.Request) (reedstream.Response[string], error)
}

// TermStore is the subset of taxonomy.Store the "taxonomy" command group
// needs.
type TermStore interface {
	CreateTerm(term, parentID, category, description, color, icon, createdBy string) (taxonomy.TermInfo, error)
	GetTerm(termID string) (taxonomy.TermInfo, error)
	ListTerms(category, parentID, status string) ([]taxonomy.TermInfo, error)
	DeleteTerm(termID string, force bool) error
}
