// Package services orchestrates the ledger engine: series creation, joint
// splitting, edits and deletions with their cascades, and card statements.
// Storage is reached through the store interfaces below so the services can
// be exercised against in-memory ports in tests.
package services

import (
	"context"

	"github.com/Vynetoob/Financeiro/internal/core"
)

// TransactionFilter narrows a List call. Zero values mean "no constraint".
type TransactionFilter struct {
	OwnerID            string
	Kind               core.Kind
	Scope              core.AccountScope
	CardID             string
	SeriesMasterID     string
	JointTransactionID string
	From               core.Date
	To                 core.Date
	OnlyUnpaid         bool
}

// Patch carries the fields an edit may change. Nil pointers leave the stored
// value untouched. Dates and series linkage are never patched; a wrong date
// means deleting and recreating the record.
type Patch struct {
	Description   *string
	Amount        *core.Money
	CategoryID    *string
	PaymentMethod *core.PaymentMethod
	CardID        *string
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.Description == nil && p.Amount == nil && p.CategoryID == nil &&
		p.PaymentMethod == nil && p.CardID == nil
}

// TransactionStore persists individual ledger records, including the derived
// halves of joint transactions.
type TransactionStore interface {
	Insert(ctx context.Context, t core.Transaction) error
	InsertBatch(ctx context.Context, txs []core.Transaction) error
	Get(ctx context.Context, id string) (core.Transaction, error)
	List(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	ApplyPatch(ctx context.Context, id string, p Patch) error
	// ApplyPatchBySeries patches the master and every member chained to it.
	ApplyPatchBySeries(ctx context.Context, masterID string, p Patch) error
	SetPaid(ctx context.Context, id string, paid bool) error
	Delete(ctx context.Context, id string) error
	// DeleteSeries removes the master and every member chained to it.
	DeleteSeries(ctx context.Context, masterID string) error
}

// JointStore persists jointly-owned records.
type JointStore interface {
	Insert(ctx context.Context, j core.JointTransaction) error
	InsertBatch(ctx context.Context, js []core.JointTransaction) error
	Get(ctx context.Context, id string) (core.JointTransaction, error)
	ListSeries(ctx context.Context, masterID string) ([]core.JointTransaction, error)
	ApplyPatch(ctx context.Context, id string, p Patch) error
	ApplyPatchBySeries(ctx context.Context, masterID string, p Patch) error
	SetPaid(ctx context.Context, id string, paid bool) error
	Delete(ctx context.Context, id string) error
	DeleteSeries(ctx context.Context, masterID string) error
}

// CardStore persists credit cards.
type CardStore interface {
	Insert(ctx context.Context, c core.Card) error
	Get(ctx context.Context, id string) (core.Card, error)
	ListByOwner(ctx context.Context, ownerID string) ([]core.Card, error)
	Update(ctx context.Context, c core.Card) error
	Delete(ctx context.Context, id string) error
}

// CategoryStore persists transaction categories.
type CategoryStore interface {
	Insert(ctx context.Context, c core.Category) error
	ListForUser(ctx context.Context, ownerID string, kind core.Kind) ([]core.Category, error)
}

// ProfileStore persists user profiles and their partner linkage.
type ProfileStore interface {
	Upsert(ctx context.Context, p core.Profile) error
	Get(ctx context.Context, id string) (core.Profile, error)
}
