package sql

import (
	"database/sql"

	"github.com/iyhunko/storefront-admin/internal/repository"
)

// GetTxFromEventRepo is a test helper to extract transaction from EventRepository.
func GetTxFromEventRepo(repo *EventRepository) *sql.Tx {
	return repo.txn
}

// BuildListQuery exposes the list query builder to tests.
func BuildListQuery(query repository.Query) (string, []any) {
	return buildListQuery(query)
}
