// Package billing computes credit card statement cycles and committed
// limits. Everything here is pure: the same card and reference date always
// produce the same windows, and no storage is touched.
package billing

import (
	"github.com/Vynetoob/Financeiro/internal/core"
)

// Cycle is one statement window. Charges dated within [Start, End] belong
// to the invoice that closes on End and is payable on Due.
type Cycle struct {
	Label string
	Start core.Date
	End   core.Date
	Due   core.Date
}

// CurrentCycle computes the statement window that contains referenceDate.
//
// When the reference day is past the card's closing day the invoice has
// already closed, so the open cycle runs from the day after this month's
// closing to next month's closing. Otherwise the cycle closes this month
// and started the day after last month's closing. Every anchor day is
// clamped inside its own month before the day-after step, so a closing day
// of 31 lands on Feb 28/29 and the next cycle starts Mar 1.
func CurrentCycle(card core.Card, referenceDate core.Date) Cycle {
	return cycleAt(card, referenceDate, 0)
}

// FutureCycles computes the count statement windows following the current
// one, in order.
func FutureCycles(card core.Card, referenceDate core.Date, count int) []Cycle {
	cycles := make([]Cycle, 0, count)
	for i := 1; i <= count; i++ {
		cycles = append(cycles, cycleAt(card, referenceDate, i))
	}
	return cycles
}

func cycleAt(card core.Card, ref core.Date, offset int) Cycle {
	year, month := ref.Year(), ref.Month()

	endMonth := month + offset
	if ref.Day() > card.ClosingDay {
		endMonth++
	}

	start := core.MonthAnchor(year, endMonth-1, card.ClosingDay).AddDays(1)
	end := core.MonthAnchor(year, endMonth, card.ClosingDay)

	// The due day mirrors the closing/due relationship: a due day past the
	// closing day falls in the closing month, otherwise in the month after.
	dueMonth := endMonth
	if card.DueDay <= card.ClosingDay {
		dueMonth++
	}
	due := core.MonthAnchor(year, dueMonth, card.DueDay)

	return Cycle{
		Label: end.Time.Format("Jan 2006"),
		Start: start,
		End:   end,
		Due:   due,
	}
}
