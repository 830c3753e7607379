package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Vynetoob/Financeiro/internal/core"
	"github.com/Vynetoob/Financeiro/internal/series"
)

var testSession = core.Session{UserID: "user-a", PartnerID: "user-b"}

func creditIntent(cents int64) series.Intent {
	return series.Intent{
		Kind:          core.KindExpense,
		Description:   "Notebook",
		Amount:        core.Money{Cents: cents},
		Date:          core.NewDate(2024, 1, 31),
		CategoryID:    "cat-1",
		PaymentMethod: core.PaymentCredit,
		CardID:        "card-1",
	}
}

func TestLedgerCreateSingle(t *testing.T) {
	store := newMemTxStore()
	svc := NewLedgerService(store, nil)

	records, err := svc.Create(context.Background(), testSession, creditIntent(10000))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	stored, err := store.Get(context.Background(), records[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.OwnerID != "user-a" || stored.Scope != core.ScopeIndividual {
		t.Errorf("stored record = %+v", stored)
	}
	if stored.InSeries() {
		t.Errorf("single record must not be in a series: %+v", stored)
	}
}

func TestLedgerCreateInstallmentSeries(t *testing.T) {
	store := newMemTxStore()
	svc := NewLedgerService(store, nil)

	intent := creditIntent(10000)
	intent.InstallmentCount = 3

	records, err := svc.Create(context.Background(), testSession, intent)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	master := records[0]
	if !master.IsSeriesMaster || master.RecurrenceParentID != "" {
		t.Errorf("first record must be the unchained master: %+v", master)
	}
	for i, r := range records[1:] {
		if r.RecurrenceParentID != master.ID {
			t.Errorf("member %d parent = %q, want %q", i+1, r.RecurrenceParentID, master.ID)
		}
		if r.IsSeriesMaster {
			t.Errorf("member %d must not be a master", i+1)
		}
	}

	all, _ := store.List(context.Background(), TransactionFilter{SeriesMasterID: master.ID})
	if len(all) != 3 {
		t.Errorf("store holds %d series records, want 3", len(all))
	}
}

func TestLedgerCreatePartialSeries(t *testing.T) {
	store := newMemTxStore()
	store.batchErr = errors.New("disk full")
	svc := NewLedgerService(store, nil)

	intent := creditIntent(10000)
	intent.InstallmentCount = 3

	records, err := svc.Create(context.Background(), testSession, intent)

	var partial *PartialSeriesError
	if !errors.As(err, &partial) {
		t.Fatalf("Create = %v, want PartialSeriesError", err)
	}
	if partial.Inserted != 1 || partial.Expected != 3 {
		t.Errorf("partial = %d/%d, want 1/3", partial.Inserted, partial.Expected)
	}
	if len(records) != 1 {
		t.Fatalf("got %d surviving records, want the master only", len(records))
	}

	// The master stays; nothing is rolled back.
	if _, err := store.Get(context.Background(), partial.MasterID); err != nil {
		t.Errorf("master %s missing after partial write: %v", partial.MasterID, err)
	}
}

func TestLedgerCreateRejectsInvalidIntent(t *testing.T) {
	svc := NewLedgerService(newMemTxStore(), nil)

	intent := creditIntent(10000)
	intent.CardID = ""

	_, err := svc.Create(context.Background(), testSession, intent)
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Create = %v, want validation error", err)
	}
}

func TestLedgerGetEnforcesOwnership(t *testing.T) {
	store := newMemTxStore()
	svc := NewLedgerService(store, nil)

	records, err := svc.Create(context.Background(), testSession, creditIntent(10000))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	other := core.Session{UserID: "user-z"}
	if _, err := svc.Get(context.Background(), other, records[0].ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Get by stranger = %v, want ErrForbidden", err)
	}
}

func TestLedgerSummarize(t *testing.T) {
	store := newMemTxStore()
	svc := NewLedgerService(store, nil)
	ctx := context.Background()

	salary := series.Intent{
		Kind:        core.KindIncome,
		Description: "Salario",
		Amount:      core.Money{Cents: 500000},
		Date:        core.NewDate(2024, 3, 5),
		CategoryID:  "cat-salary",
	}
	if _, err := svc.Create(ctx, testSession, salary); err != nil {
		t.Fatalf("Create income: %v", err)
	}

	groceries := creditIntent(32050)
	groceries.Date = core.NewDate(2024, 3, 20)
	if _, err := svc.Create(ctx, testSession, groceries); err != nil {
		t.Fatalf("Create expense: %v", err)
	}

	// Outside the month, must not be counted.
	april := creditIntent(9999)
	april.Date = core.NewDate(2024, 4, 1)
	if _, err := svc.Create(ctx, testSession, april); err != nil {
		t.Fatalf("Create april expense: %v", err)
	}

	summary, err := svc.Summarize(ctx, testSession, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Income.Cents != 500000 {
		t.Errorf("income = %d, want 500000", summary.Income.Cents)
	}
	if summary.Expense.Cents != 32050 {
		t.Errorf("expense = %d, want 32050", summary.Expense.Cents)
	}
	if summary.Balance.Cents != 467950 {
		t.Errorf("balance = %d, want 467950", summary.Balance.Cents)
	}
}
