package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Vynetoob/Financeiro/internal/billing"
	"github.com/Vynetoob/Financeiro/internal/core"
)

// CardService manages credit cards and assembles their statements.
type CardService struct {
	cards          CardStore
	txs            TransactionStore
	futureInvoices int
}

func NewCardService(cards CardStore, txs TransactionStore, futureInvoices int) *CardService {
	return &CardService{
		cards:          cards,
		txs:            txs,
		futureInvoices: futureInvoices,
	}
}

// Create validates and persists a new card for the session's user.
func (s *CardService) Create(ctx context.Context, session core.Session, card core.Card) (core.Card, error) {
	if err := session.Validate(); err != nil {
		return core.Card{}, err
	}
	if err := card.Validate(); err != nil {
		return core.Card{}, err
	}
	card.ID = uuid.NewString()
	card.OwnerID = session.UserID
	if err := s.cards.Insert(ctx, card); err != nil {
		return core.Card{}, fmt.Errorf("insert card: %w", err)
	}
	return card, nil
}

// List returns the session user's cards.
func (s *CardService) List(ctx context.Context, session core.Session) ([]core.Card, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return s.cards.ListByOwner(ctx, session.UserID)
}

// Update patches the mutable fields of an owned card.
func (s *CardService) Update(ctx context.Context, session core.Session, card core.Card) error {
	existing, err := s.ownCard(ctx, session, card.ID)
	if err != nil {
		return err
	}
	card.OwnerID = existing.OwnerID
	if err := card.Validate(); err != nil {
		return err
	}
	if err := s.cards.Update(ctx, card); err != nil {
		return fmt.Errorf("update card %s: %w", card.ID, err)
	}
	return nil
}

// Delete removes an owned card.
func (s *CardService) Delete(ctx context.Context, session core.Session, id string) error {
	if _, err := s.ownCard(ctx, session, id); err != nil {
		return err
	}
	if err := s.cards.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	return nil
}

// InvoiceProjection is the forecast total of one future statement window.
type InvoiceProjection struct {
	Cycle billing.Cycle
	Total core.Money
}

// CardStatement is the full statement view of one card at a reference date.
// CommittedDetail and CommittedList follow different counting rules and are
// reported side by side.
type CardStatement struct {
	Card            core.Card
	Cycle           billing.Cycle
	CycleTotal      core.Money
	CommittedDetail core.Money
	CommittedList   core.Money
	Available       core.Money
	FutureInvoices  []InvoiceProjection
}

// Statement assembles the current cycle, committed totals and future invoice
// projections for one card. Future cycles are queried concurrently.
func (s *CardService) Statement(ctx context.Context, session core.Session, cardID string, asOf core.Date) (CardStatement, error) {
	card, err := s.ownCard(ctx, session, cardID)
	if err != nil {
		return CardStatement{}, err
	}

	pending, err := s.txs.List(ctx, TransactionFilter{
		OwnerID:    session.UserID,
		Kind:       core.KindExpense,
		CardID:     cardID,
		OnlyUnpaid: true,
	})
	if err != nil {
		return CardStatement{}, fmt.Errorf("list card charges: %w", err)
	}

	cycle := billing.CurrentCycle(card, asOf)
	detail := billing.CommittedDetail(card, pending, asOf)

	stmt := CardStatement{
		Card:            card,
		Cycle:           cycle,
		CycleTotal:      billing.CycleTotal(pending, cycle),
		CommittedDetail: detail,
		CommittedList:   billing.CommittedList(pending),
		Available:       billing.Available(card, detail),
	}

	future := billing.FutureCycles(card, asOf, s.futureInvoices)
	projections := make([]InvoiceProjection, len(future))

	g, gctx := errgroup.WithContext(ctx)
	for i, fc := range future {
		g.Go(func() error {
			cycleTxs, err := s.txs.List(gctx, TransactionFilter{
				OwnerID:    session.UserID,
				Kind:       core.KindExpense,
				CardID:     cardID,
				OnlyUnpaid: true,
				From:       fc.Start,
				To:         fc.End,
			})
			if err != nil {
				return fmt.Errorf("list charges for %s: %w", fc.Label, err)
			}
			projections[i] = InvoiceProjection{Cycle: fc, Total: billing.CycleTotal(cycleTxs, fc)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CardStatement{}, err
	}

	stmt.FutureInvoices = projections
	return stmt, nil
}

func (s *CardService) ownCard(ctx context.Context, session core.Session, id string) (core.Card, error) {
	if err := session.Validate(); err != nil {
		return core.Card{}, err
	}
	card, err := s.cards.Get(ctx, id)
	if err != nil {
		return core.Card{}, err
	}
	if card.OwnerID != session.UserID {
		return core.Card{}, ErrForbidden
	}
	return card, nil
}
