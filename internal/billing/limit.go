package billing

import (
	"github.com/Vynetoob/Financeiro/internal/core"
)

// CommittedDetail aggregates a card's pending charges under the detail-view
// rule: installment occurrences always count regardless of date, recurring
// occurrences count only when dated inside the current cycle, plain single
// charges always count. Paid or non-credit records are ignored.
func CommittedDetail(card core.Card, txs []core.Transaction, asOf core.Date) core.Money {
	cycle := CurrentCycle(card, asOf)

	var committed core.Money
	for _, t := range txs {
		if !pendingCredit(t) {
			continue
		}
		switch {
		case t.IsInstallment():
			committed = committed.Add(t.Amount)
		case t.IsRecurring():
			if t.Date.Within(cycle.Start, cycle.End) {
				committed = committed.Add(t.Amount)
			}
		default:
			committed = committed.Add(t.Amount)
		}
	}
	return committed
}

// CommittedList aggregates a card's pending charges under the summary-list
// rule: every unpaid credit charge counts, with no date filter for
// recurring occurrences. This intentionally diverges from CommittedDetail
// for the same card; both figures are reported side by side until the
// divergence is resolved with stakeholders.
func CommittedList(txs []core.Transaction) core.Money {
	var committed core.Money
	for _, t := range txs {
		if pendingCredit(t) {
			committed = committed.Add(t.Amount)
		}
	}
	return committed
}

// Available returns the card limit remaining after the committed amount.
// The result is negative when the card is over-committed.
func Available(card core.Card, committed core.Money) core.Money {
	return card.TotalLimit.Sub(committed)
}

// CycleTotal sums the pending credit charges dated within one statement
// window: the amount due for that invoice.
func CycleTotal(txs []core.Transaction, cycle Cycle) core.Money {
	var total core.Money
	for _, t := range txs {
		if pendingCredit(t) && t.Date.Within(cycle.Start, cycle.End) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

func pendingCredit(t core.Transaction) bool {
	return !t.Paid && t.Kind == core.KindExpense && t.PaymentMethod == core.PaymentCredit
}
