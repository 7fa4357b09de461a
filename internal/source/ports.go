// Package source defines the ports through which transaction records enter
// the service. Adapters live in the memory, google and postgres subpackages
// and in the storage package.
package source

import (
	"context"

	"taichinh/internal/core"
)

// Ports for inbound record adapters.
type (
	// TransactionReader returns every stored record, income and expense alike.
	TransactionReader interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	// UnitReader returns the registered business units in display order.
	UnitReader interface {
		ListUnits(ctx context.Context) ([]string, error)
	}

	// TransactionWriter inserts or replaces records keyed by their code.
	TransactionWriter interface {
		UpsertTransactions(ctx context.Context, txs []core.Transaction) (int, error)
	}

	// Reader is what the report pipeline needs from a backend.
	Reader interface {
		TransactionReader
		UnitReader
	}
)
