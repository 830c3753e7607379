package series

import (
	"github.com/Vynetoob/Financeiro/internal/core"
)

// Suffixes appended to the description of each derived half of a joint
// transaction. They are display text, kept in the household's language.
const (
	SuffixCreatorShare = " (Sua parte)"
	SuffixPartnerShare = " (Parte do parceiro)"
)

// DerivePair builds the two individual records derived from one persisted
// joint occurrence: one for the creator, one for the partner, each carrying
// half the amount and pointing back at the joint record. Series chaining
// (RecurrenceParentID) is left empty here; derived occurrences are chained
// to their own derived masters, not to the joint series.
func DerivePair(joint core.JointTransaction) (creator, partner core.Transaction) {
	base := core.Transaction{
		Kind:               joint.Kind,
		Amount:             joint.Amount.Half(),
		Date:               joint.Date,
		CategoryID:         joint.CategoryID,
		PaymentMethod:      joint.PaymentMethod,
		CardID:             joint.CardID,
		Paid:               joint.Paid,
		Scope:              core.ScopeIndividualDerived,
		InstallmentIndex:   joint.InstallmentIndex,
		InstallmentTotal:   joint.InstallmentTotal,
		IsSeriesMaster:     joint.IsSeriesMaster,
		Frequency:          joint.Frequency,
		RecurrenceEndDate:  joint.RecurrenceEndDate,
		JointTransactionID: joint.ID,
	}

	creator = base
	creator.OwnerID = joint.CreatorID
	creator.Description = joint.Description + SuffixCreatorShare

	partner = base
	partner.OwnerID = joint.PartnerID
	partner.Description = joint.Description + SuffixPartnerShare

	return creator, partner
}
