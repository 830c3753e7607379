// Package series expands one transaction intent into the dated occurrence
// list of an installment or monthly recurring group, and derives the
// per-owner records of a joint transaction. Expansion is pure; persistence
// and id chaining happen in the services layer.
package series

import (
	"fmt"
	"strings"

	"github.com/Vynetoob/Financeiro/internal/core"
)

// RecurringOccurrences is the coverage of a monthly series: the master plus
// eleven further months, one year in total.
const RecurringOccurrences = 12

// Intent is one user action about to become one or more ledger records.
// Exactly one of {InstallmentCount > 1, Recurring, neither} may be set.
type Intent struct {
	Kind             core.Kind
	Description      string
	Amount           core.Money
	Date             core.Date
	CategoryID       string
	PaymentMethod    core.PaymentMethod
	CardID           string
	InstallmentCount int
	Recurring        bool
}

// IsInstallment reports whether the intent describes an installment purchase.
func (i Intent) IsInstallment() bool { return i.InstallmentCount > 1 }

// Validate rejects inconsistent intents before any expansion or write.
func (i Intent) Validate() error {
	if err := i.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Description) == "" {
		return &core.ValidationError{Field: "description", Reason: "description is required"}
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if err := i.PaymentMethod.Validate(); err != nil {
		return err
	}
	if i.Kind == core.KindIncome && i.PaymentMethod != "" {
		return &core.ValidationError{Field: "paymentMethod", Reason: "payment method applies only to expenses"}
	}
	if i.Kind == core.KindExpense && i.PaymentMethod == "" {
		return &core.ValidationError{Field: "paymentMethod", Reason: "payment method is required for expenses"}
	}
	if i.PaymentMethod == core.PaymentCredit && i.CardID == "" {
		return &core.ValidationError{Field: "cardId", Reason: "a credit card must be chosen for credit expenses"}
	}
	if i.PaymentMethod != core.PaymentCredit && i.CardID != "" {
		return &core.ValidationError{Field: "cardId", Reason: "a card applies only to credit expenses"}
	}
	if i.InstallmentCount < 0 {
		return &core.ValidationError{Field: "installmentCount", Reason: "installment count cannot be negative"}
	}
	if i.IsInstallment() && i.Recurring {
		return &core.ValidationError{Field: "recurring", Reason: "a transaction cannot be both installment and recurring"}
	}
	if i.IsInstallment() && i.PaymentMethod != core.PaymentCredit {
		return &core.ValidationError{Field: "installmentCount", Reason: "installments require the credit payment method"}
	}
	return nil
}

// Occurrence is one dated entry of an expanded intent, before ownership and
// id chaining are applied.
type Occurrence struct {
	Date             core.Date
	Amount           core.Money
	Description      string
	InstallmentIndex int
	InstallmentTotal int
	Master           bool
	Frequency        core.Frequency
	EndDate          core.Date
}

// Expand turns a validated intent into its occurrence list: one entry for a
// plain transaction, InstallmentCount entries for an installment purchase,
// RecurringOccurrences entries for a monthly recurrence. The first entry of
// a series is its master.
func Expand(intent Intent) ([]Occurrence, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	switch {
	case intent.IsInstallment():
		return expandInstallments(intent), nil
	case intent.Recurring:
		return expandRecurring(intent), nil
	default:
		return []Occurrence{{
			Date:        intent.Date,
			Amount:      intent.Amount,
			Description: intent.Description,
			Frequency:   core.FrequencyNone,
		}}, nil
	}
}

func expandInstallments(intent Intent) []Occurrence {
	count := intent.InstallmentCount
	// Equal split by integer division: the residual cents are accepted,
	// not redistributed onto any installment.
	share := intent.Amount.Split(count)

	occurrences := make([]Occurrence, 0, count)
	for i := 0; i < count; i++ {
		occurrences = append(occurrences, Occurrence{
			Date:             intent.Date.AddMonths(i),
			Amount:           share,
			Description:      installmentLabel(intent.Description, i+1, count),
			InstallmentIndex: i + 1,
			InstallmentTotal: count,
			Master:           i == 0,
			Frequency:        core.FrequencyInstallment,
		})
	}
	return occurrences
}

func expandRecurring(intent Intent) []Occurrence {
	endDate := intent.Date.AddYears(1)

	occurrences := make([]Occurrence, 0, RecurringOccurrences)
	for i := 0; i < RecurringOccurrences; i++ {
		occurrences = append(occurrences, Occurrence{
			Date:        intent.Date.AddMonths(i),
			Amount:      intent.Amount,
			Description: intent.Description,
			Master:      i == 0,
			Frequency:   core.FrequencyMonthly,
			EndDate:     endDate,
		})
	}
	return occurrences
}

func installmentLabel(description string, index, total int) string {
	return fmt.Sprintf("%s (%d/%d)", description, index, total)
}
