package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Vynetoob/Financeiro/internal/amqp"
	"github.com/Vynetoob/Financeiro/internal/core"
	"github.com/Vynetoob/Financeiro/internal/series"
)

// JointService creates jointly-owned records and the derived individual
// halves that mirror them into each partner's ledger.
type JointService struct {
	txs        TransactionStore
	joints     JointStore
	amqpClient *amqp.Client
}

func NewJointService(txs TransactionStore, joints JointStore, amqpClient *amqp.Client) *JointService {
	return &JointService{
		txs:        txs,
		joints:     joints,
		amqpClient: amqpClient,
	}
}

// JointCreateResult reports everything one joint create wrote: the joint
// occurrences and the derived individual records, two per occurrence.
type JointCreateResult struct {
	Joints  []core.JointTransaction
	Derived []core.Transaction
}

// Create expands the intent into joint occurrences and, for each one, the
// derived half for each partner. Joint records are chained to the joint
// master; derived records are chained to their own derived masters, one
// chain per owner. Writes happen joint-first, masters-first, with no
// rollback on partial failure.
func (s *JointService) Create(ctx context.Context, session core.Session, intent series.Intent) (JointCreateResult, error) {
	if err := session.RequirePartner(); err != nil {
		return JointCreateResult{}, err
	}

	occurrences, err := series.Expand(intent)
	if err != nil {
		return JointCreateResult{}, err
	}

	joints := materializeJoints(session, intent, occurrences)
	derived := deriveAll(joints)

	result := JointCreateResult{Joints: joints, Derived: derived}

	if err := s.joints.Insert(ctx, joints[0]); err != nil {
		return JointCreateResult{}, fmt.Errorf("insert joint master: %w", err)
	}
	if len(joints) > 1 {
		if err := s.joints.InsertBatch(ctx, joints[1:]); err != nil {
			return result, &PartialSeriesError{
				MasterID: joints[0].ID,
				Inserted: 1,
				Expected: len(joints),
				Err:      err,
			}
		}
	}

	// The first two derived records are the masters of the creator and
	// partner chains.
	if err := s.txs.InsertBatch(ctx, derived[:2]); err != nil {
		return result, &PartialSeriesError{
			MasterID: joints[0].ID,
			Inserted: len(joints),
			Expected: len(joints) + len(derived),
			Err:      fmt.Errorf("insert derived masters: %w", err),
		}
	}
	if len(derived) > 2 {
		if err := s.txs.InsertBatch(ctx, derived[2:]); err != nil {
			return result, &PartialSeriesError{
				MasterID: joints[0].ID,
				Inserted: len(joints) + 2,
				Expected: len(joints) + len(derived),
				Err:      err,
			}
		}
	}

	publishEvent(ctx, s.amqpClient, derived[0].ID, amqp.ActionCreated)
	publishEvent(ctx, s.amqpClient, derived[1].ID, amqp.ActionCreated)
	return result, nil
}

// Get loads one joint record; only its two participants may see it.
func (s *JointService) Get(ctx context.Context, session core.Session, id string) (core.JointTransaction, error) {
	if err := session.Validate(); err != nil {
		return core.JointTransaction{}, err
	}
	j, err := s.joints.Get(ctx, id)
	if err != nil {
		return core.JointTransaction{}, err
	}
	if j.CreatorID != session.UserID && j.PartnerID != session.UserID {
		return core.JointTransaction{}, ErrForbidden
	}
	return j, nil
}

func materializeJoints(session core.Session, intent series.Intent, occurrences []series.Occurrence) []core.JointTransaction {
	joints := make([]core.JointTransaction, 0, len(occurrences))
	masterID := ""
	for _, o := range occurrences {
		j := core.JointTransaction{
			ID:                uuid.NewString(),
			CreatorID:         session.UserID,
			PartnerID:         session.PartnerID,
			Kind:              intent.Kind,
			Description:       o.Description,
			Amount:            o.Amount,
			Date:              o.Date,
			CategoryID:        intent.CategoryID,
			PaymentMethod:     intent.PaymentMethod,
			CardID:            intent.CardID,
			InstallmentIndex:  o.InstallmentIndex,
			InstallmentTotal:  o.InstallmentTotal,
			IsSeriesMaster:    o.Master,
			Frequency:         o.Frequency,
			RecurrenceEndDate: o.EndDate,
		}
		if o.Master {
			masterID = j.ID
		} else if masterID != "" {
			j.RecurrenceParentID = masterID
		}
		joints = append(joints, j)
	}
	return joints
}

// deriveAll splits every joint occurrence and chains the halves per owner:
// the pair derived from the first occurrence are the masters, later halves
// point at the master on their side.
func deriveAll(joints []core.JointTransaction) []core.Transaction {
	derived := make([]core.Transaction, 0, 2*len(joints))
	var creatorMasterID, partnerMasterID string
	for i, j := range joints {
		creator, partner := series.DerivePair(j)
		creator.ID = uuid.NewString()
		partner.ID = uuid.NewString()
		if i == 0 {
			creatorMasterID = creator.ID
			partnerMasterID = partner.ID
		} else {
			creator.RecurrenceParentID = creatorMasterID
			partner.RecurrenceParentID = partnerMasterID
		}
		derived = append(derived, creator, partner)
	}
	return derived
}
