package sheets

import (
	"context"

	"github.com/Vynetoob/Financeiro/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter mirrors ledger records into an external spreadsheet.
	LedgerWriter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}
)
