package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Vynetoob/Financeiro/internal/amqp"
	"github.com/Vynetoob/Financeiro/internal/core"
	"github.com/Vynetoob/Financeiro/internal/series"
)

// LedgerService creates individual ledger records and expands series.
type LedgerService struct {
	txs        TransactionStore
	amqpClient *amqp.Client
}

func NewLedgerService(txs TransactionStore, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		txs:        txs,
		amqpClient: amqpClient,
	}
}

// Create expands the intent and persists every resulting record for the
// session's user. Series are written master first so every member can carry
// the master's id; if the batch insert of the remaining members fails the
// already-written records stay and a PartialSeriesError reports how far the
// write got.
func (s *LedgerService) Create(ctx context.Context, session core.Session, intent series.Intent) ([]core.Transaction, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	occurrences, err := series.Expand(intent)
	if err != nil {
		return nil, err
	}

	records := materialize(session.UserID, core.ScopeIndividual, intent, occurrences)

	if len(records) == 1 {
		if err := s.txs.Insert(ctx, records[0]); err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}
		s.publishEvent(ctx, records[0].ID, amqp.ActionCreated)
		return records, nil
	}

	master := records[0]
	if err := s.txs.Insert(ctx, master); err != nil {
		return nil, fmt.Errorf("insert series master: %w", err)
	}
	if err := s.txs.InsertBatch(ctx, records[1:]); err != nil {
		return records[:1], &PartialSeriesError{
			MasterID: master.ID,
			Inserted: 1,
			Expected: len(records),
			Err:      err,
		}
	}

	s.publishEvent(ctx, master.ID, amqp.ActionCreated)
	return records, nil
}

// Get loads one record owned by the session's user.
func (s *LedgerService) Get(ctx context.Context, session core.Session, id string) (core.Transaction, error) {
	if err := session.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t, err := s.txs.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.OwnerID != session.UserID {
		return core.Transaction{}, ErrForbidden
	}
	return t, nil
}

// List returns the session user's records matching the filter. The owner
// constraint is always forced to the acting user.
func (s *LedgerService) List(ctx context.Context, session core.Session, f TransactionFilter) ([]core.Transaction, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	f.OwnerID = session.UserID
	return s.txs.List(ctx, f)
}

// MonthlySummary totals a user's income and expenses over one month.
type MonthlySummary struct {
	Income  core.Money
	Expense core.Money
	Balance core.Money
}

// Summarize computes the income/expense totals for the month containing ref.
func (s *LedgerService) Summarize(ctx context.Context, session core.Session, ref core.Date) (MonthlySummary, error) {
	start := core.MonthAnchor(ref.Year(), ref.Month(), 1)
	end := core.MonthAnchor(ref.Year(), ref.Month(), 31)

	txs, err := s.List(ctx, session, TransactionFilter{From: start, To: end})
	if err != nil {
		return MonthlySummary{}, err
	}

	var summary MonthlySummary
	for _, t := range txs {
		switch t.Kind {
		case core.KindIncome:
			summary.Income = summary.Income.Add(t.Amount)
		case core.KindExpense:
			summary.Expense = summary.Expense.Add(t.Amount)
		}
	}
	summary.Balance = summary.Income.Sub(summary.Expense)
	return summary, nil
}

func (s *LedgerService) publishEvent(ctx context.Context, transactionID, action string) {
	publishEvent(ctx, s.amqpClient, transactionID, action)
}

// materialize assigns ids and ownership to expanded occurrences and chains
// every non-master member to the master's id.
func materialize(ownerID string, scope core.AccountScope, intent series.Intent, occurrences []series.Occurrence) []core.Transaction {
	records := make([]core.Transaction, 0, len(occurrences))
	masterID := ""
	for _, o := range occurrences {
		t := core.Transaction{
			ID:                uuid.NewString(),
			OwnerID:           ownerID,
			Kind:              intent.Kind,
			Description:       o.Description,
			Amount:            o.Amount,
			Date:              o.Date,
			CategoryID:        intent.CategoryID,
			PaymentMethod:     intent.PaymentMethod,
			CardID:            intent.CardID,
			Scope:             scope,
			InstallmentIndex:  o.InstallmentIndex,
			InstallmentTotal:  o.InstallmentTotal,
			IsSeriesMaster:    o.Master,
			Frequency:         o.Frequency,
			RecurrenceEndDate: o.EndDate,
		}
		if o.Master {
			masterID = t.ID
		} else if masterID != "" {
			t.RecurrenceParentID = masterID
		}
		records = append(records, t)
	}
	return records
}

// publishEvent notifies the sync worker about a ledger change. Publishing is
// best effort: the local write already succeeded, so a broker failure is
// logged and swallowed.
func publishEvent(ctx context.Context, client *amqp.Client, transactionID, action string) {
	if client == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping ledger event",
			"transactionId", transactionID, "action", action)
		return
	}
	if err := client.PublishLedgerEvent(ctx, transactionID, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"transactionId", transactionID, "action", action, "error", err)
	}
}
