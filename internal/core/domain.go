// Package core holds the domain model of the ledger: calendar dates, cent
// amounts, transactions (individual and joint), credit cards and the
// validation rules that gate every write.
package core

import (
	"fmt"
	"strings"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"

	PaymentCash   PaymentMethod = "cash"
	PaymentDebit  PaymentMethod = "debit"
	PaymentCredit PaymentMethod = "credit"

	ScopeIndividual        AccountScope = "individual"
	ScopeIndividualDerived AccountScope = "individual_derived"
	ScopeJoint             AccountScope = "joint"

	FrequencyNone        Frequency = ""
	FrequencyMonthly     Frequency = "monthly"
	FrequencyInstallment Frequency = "installment"
)

type (
	Kind          string
	PaymentMethod string
	AccountScope  string
	Frequency     string

	// Transaction is one ledger entry. Series membership is exclusive:
	// either InstallmentTotal > 1, or Frequency is monthly, or neither.
	// Every non-master occurrence of a series carries the master's id in
	// RecurrenceParentID; the master itself has it empty.
	Transaction struct {
		ID          string
		OwnerID     string
		Kind        Kind
		Description string
		Amount      Money
		Date        Date
		CategoryID  string
		// PaymentMethod is set only for expenses; CardID only when the
		// payment method is credit.
		PaymentMethod PaymentMethod
		CardID        string
		Paid          bool
		Scope         AccountScope

		InstallmentIndex   int
		InstallmentTotal   int
		IsSeriesMaster     bool
		RecurrenceParentID string
		Frequency          Frequency
		RecurrenceEndDate  Date

		// JointTransactionID links a derived record back to the joint
		// occurrence it was split from.
		JointTransactionID string
	}

	// JointTransaction is the jointly-owned origin of exactly two derived
	// individual transactions, one per linked user, each at half the amount.
	JointTransaction struct {
		ID          string
		CreatorID   string
		PartnerID   string
		Kind        Kind
		Description string
		Amount      Money
		Date        Date
		CategoryID  string
		PaymentMethod PaymentMethod
		CardID        string
		Paid          bool

		InstallmentIndex   int
		InstallmentTotal   int
		IsSeriesMaster     bool
		RecurrenceParentID string
		Frequency          Frequency
		RecurrenceEndDate  Date
	}

	// Card is a credit card with two day-of-month anchors driving its
	// statement cycle.
	Card struct {
		ID         string
		OwnerID    string
		Name       string
		TotalLimit Money
		ClosingDay int
		DueDay     int
	}

	Category struct {
		ID      string
		OwnerID string
		Name    string
		Kind    Kind
		General bool
	}

	// Profile holds a user's settings: the display name and the partner
	// linkage joint transactions split against. Links are bidirectional;
	// both rows name each other.
	Profile struct {
		ID        string
		Username  string
		PartnerID string
	}

	// Session carries the acting user and the linked partner explicitly
	// into every engine call; there is no ambient current-user state.
	Session struct {
		UserID    string
		PartnerID string
	}
)

// ValidationError rejects an operation before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsInstallment reports whether the record belongs to an installment series.
func (t Transaction) IsInstallment() bool { return t.InstallmentTotal > 1 }

// IsRecurring reports whether the record belongs to a monthly recurring
// series, as master or member.
func (t Transaction) IsRecurring() bool {
	return !t.IsInstallment() && (t.RecurrenceParentID != "" || t.IsSeriesMaster)
}

// InSeries reports whether the record belongs to any series.
func (t Transaction) InSeries() bool {
	return t.IsInstallment() || t.RecurrenceParentID != "" || t.IsSeriesMaster
}

// SeriesMasterID resolves the master id for a series member: the parent id
// when set, otherwise the record's own id.
func (t Transaction) SeriesMasterID() string {
	if t.RecurrenceParentID != "" {
		return t.RecurrenceParentID
	}
	return t.ID
}

// IsInstallment reports whether the joint record belongs to an installment series.
func (j JointTransaction) IsInstallment() bool { return j.InstallmentTotal > 1 }

// InSeries reports whether the joint record belongs to any series.
func (j JointTransaction) InSeries() bool {
	return j.IsInstallment() || j.RecurrenceParentID != "" || j.IsSeriesMaster
}

// SeriesMasterID resolves the master id for a joint series member.
func (j JointTransaction) SeriesMasterID() string {
	if j.RecurrenceParentID != "" {
		return j.RecurrenceParentID
	}
	return j.ID
}

func (k Kind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	}
	return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", string(k))}
}

func (p PaymentMethod) Validate() error {
	switch p {
	case "", PaymentCash, PaymentDebit, PaymentCredit:
		return nil
	}
	return &ValidationError{Field: "paymentMethod", Reason: fmt.Sprintf("unknown payment method %q", string(p))}
}

// Validate checks a card's fields before persisting it.
func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "card name is required"}
	}
	if err := c.TotalLimit.Validate(); err != nil {
		return &ValidationError{Field: "totalLimit", Reason: "limit must be greater than zero"}
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return &ValidationError{Field: "closingDay", Reason: "closing day must be between 1 and 31"}
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return &ValidationError{Field: "dueDay", Reason: "due day must be between 1 and 31"}
	}
	return nil
}

// Validate checks the session names an acting user.
func (s Session) Validate() error {
	if s.UserID == "" {
		return &ValidationError{Field: "session", Reason: "user id is required"}
	}
	return nil
}

// RequirePartner checks the session has a linked partner for joint operations.
func (s Session) RequirePartner() error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.PartnerID == "" {
		return &ValidationError{Field: "session", Reason: "no partner linked to this account"}
	}
	return nil
}
