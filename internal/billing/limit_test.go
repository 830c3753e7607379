package billing

import (
	"testing"

	"github.com/Vynetoob/Financeiro/internal/core"
)

func creditCharge(id string, cents int64, date core.Date) core.Transaction {
	return core.Transaction{
		ID:            id,
		OwnerID:       "user-1",
		Kind:          core.KindExpense,
		Description:   "charge",
		Amount:        core.Money{Cents: cents},
		Date:          date,
		PaymentMethod: core.PaymentCredit,
		CardID:        "card-1",
	}
}

func TestCommittedDetailVersusList(t *testing.T) {
	card := core.Card{
		ID:         "card-1",
		TotalLimit: core.Money{Cents: 100000},
		ClosingDay: 10,
		DueDay:     20,
	}
	asOf := core.NewDate(2024, 3, 5) // current cycle [2024-02-11 .. 2024-03-10]

	// One installment charge of 50 dated far outside the cycle and one
	// monthly recurring charge of 30, also outside the cycle.
	installment := creditCharge("t1", 5000, core.NewDate(2024, 8, 15))
	installment.InstallmentIndex = 3
	installment.InstallmentTotal = 6
	installment.RecurrenceParentID = "master-1"
	installment.Frequency = core.FrequencyInstallment

	recurring := creditCharge("t2", 3000, core.NewDate(2024, 6, 1))
	recurring.RecurrenceParentID = "master-2"
	recurring.Frequency = core.FrequencyMonthly

	txs := []core.Transaction{installment, recurring}

	detail := CommittedDetail(card, txs, asOf)
	if detail.Cents != 5000 {
		t.Errorf("detail committed = %d, want 5000 (recurring outside cycle excluded)", detail.Cents)
	}

	list := CommittedList(txs)
	if list.Cents != 8000 {
		t.Errorf("list committed = %d, want 8000 (every pending charge counted)", list.Cents)
	}

	if avail := Available(card, detail); avail.Cents != 95000 {
		t.Errorf("available = %d, want 95000", avail.Cents)
	}
}

func TestCommittedDetailRules(t *testing.T) {
	card := core.Card{ID: "card-1", TotalLimit: core.Money{Cents: 100000}, ClosingDay: 10, DueDay: 20}
	asOf := core.NewDate(2024, 3, 5)
	inCycle := core.NewDate(2024, 2, 20)
	outOfCycle := core.NewDate(2024, 5, 20)

	recurringIn := creditCharge("r1", 3000, inCycle)
	recurringIn.IsSeriesMaster = true
	recurringIn.Frequency = core.FrequencyMonthly

	recurringOut := creditCharge("r2", 3000, outOfCycle)
	recurringOut.RecurrenceParentID = "r1"
	recurringOut.Frequency = core.FrequencyMonthly

	single := creditCharge("s1", 1500, outOfCycle)

	paid := creditCharge("p1", 9999, inCycle)
	paid.Paid = true

	debit := creditCharge("d1", 9999, inCycle)
	debit.PaymentMethod = core.PaymentDebit

	tests := []struct {
		name string
		txs  []core.Transaction
		want int64
	}{
		{name: "recurring inside cycle counts", txs: []core.Transaction{recurringIn}, want: 3000},
		{name: "recurring outside cycle excluded", txs: []core.Transaction{recurringOut}, want: 0},
		{name: "plain single counts regardless of date", txs: []core.Transaction{single}, want: 1500},
		{name: "paid charges ignored", txs: []core.Transaction{paid}, want: 0},
		{name: "non-credit charges ignored", txs: []core.Transaction{debit}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CommittedDetail(card, tt.txs, asOf)
			if got.Cents != tt.want {
				t.Errorf("CommittedDetail = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestCycleTotal(t *testing.T) {
	card := core.Card{ID: "card-1", TotalLimit: core.Money{Cents: 100000}, ClosingDay: 10, DueDay: 20}
	cycle := CurrentCycle(card, core.NewDate(2024, 3, 5))

	txs := []core.Transaction{
		creditCharge("a", 1000, core.NewDate(2024, 2, 15)),
		creditCharge("b", 2000, core.NewDate(2024, 3, 10)),
		creditCharge("c", 4000, core.NewDate(2024, 3, 11)), // next cycle
	}

	if got := CycleTotal(txs, cycle); got.Cents != 3000 {
		t.Errorf("CycleTotal = %d, want 3000", got.Cents)
	}
}
