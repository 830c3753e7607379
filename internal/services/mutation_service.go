package services

import (
	"context"
	"fmt"

	"github.com/Vynetoob/Financeiro/internal/amqp"
	"github.com/Vynetoob/Financeiro/internal/core"
	"github.com/Vynetoob/Financeiro/internal/series"
)

// MutationScope states whether an edit or delete targets one occurrence or
// the whole series the occurrence belongs to. Callers choose it explicitly;
// there is no implicit widening.
type MutationScope string

const (
	ScopeInstance MutationScope = "instance"
	ScopeSeries   MutationScope = "series"
)

func (m MutationScope) Validate() error {
	switch m {
	case ScopeInstance, ScopeSeries:
		return nil
	}
	return &core.ValidationError{Field: "scope", Reason: fmt.Sprintf("unknown mutation scope %q", string(m))}
}

// MutationService edits, pays and deletes existing records, cascading joint
// changes onto the derived halves.
type MutationService struct {
	txs        TransactionStore
	joints     JointStore
	amqpClient *amqp.Client
}

func NewMutationService(txs TransactionStore, joints JointStore, amqpClient *amqp.Client) *MutationService {
	return &MutationService{
		txs:        txs,
		joints:     joints,
		amqpClient: amqpClient,
	}
}

// EditTransaction patches one record or, with the series scope, every record
// chained to its master. Dates are never patched; derived records reject the
// call.
func (s *MutationService) EditTransaction(ctx context.Context, session core.Session, id string, scope MutationScope, patch Patch) error {
	t, err := s.ownTransaction(ctx, session, id)
	if err != nil {
		return err
	}
	if err := scope.Validate(); err != nil {
		return err
	}
	if patch.IsZero() {
		return &core.ValidationError{Field: "patch", Reason: "nothing to change"}
	}

	if scope == ScopeSeries && t.InSeries() {
		masterID := t.SeriesMasterID()
		if err := s.txs.ApplyPatchBySeries(ctx, masterID, patch); err != nil {
			return fmt.Errorf("patch series %s: %w", masterID, err)
		}
		publishEvent(ctx, s.amqpClient, masterID, amqp.ActionUpdated)
		return nil
	}

	if err := s.txs.ApplyPatch(ctx, id, patch); err != nil {
		return fmt.Errorf("patch transaction %s: %w", id, err)
	}
	publishEvent(ctx, s.amqpClient, id, amqp.ActionUpdated)
	return nil
}

// SetTransactionPaid toggles the paid flag of one individual record.
func (s *MutationService) SetTransactionPaid(ctx context.Context, session core.Session, id string, paid bool) error {
	if _, err := s.ownTransaction(ctx, session, id); err != nil {
		return err
	}
	if err := s.txs.SetPaid(ctx, id, paid); err != nil {
		return fmt.Errorf("set paid on %s: %w", id, err)
	}
	publishEvent(ctx, s.amqpClient, id, amqp.ActionUpdated)
	return nil
}

// DeleteTransaction removes one record or, with the series scope, the master
// and every chained member.
func (s *MutationService) DeleteTransaction(ctx context.Context, session core.Session, id string, scope MutationScope) error {
	t, err := s.ownTransaction(ctx, session, id)
	if err != nil {
		return err
	}
	if err := scope.Validate(); err != nil {
		return err
	}

	if scope == ScopeSeries && t.InSeries() {
		masterID := t.SeriesMasterID()
		if err := s.txs.DeleteSeries(ctx, masterID); err != nil {
			return fmt.Errorf("delete series %s: %w", masterID, err)
		}
		publishEvent(ctx, s.amqpClient, masterID, amqp.ActionDeleted)
		return nil
	}

	if err := s.txs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	publishEvent(ctx, s.amqpClient, id, amqp.ActionDeleted)
	return nil
}

// EditJoint patches a joint record and cascades the change onto its derived
// halves, halving amount changes and re-suffixing description changes per
// owner. The series scope widens the cascade to every occurrence chained to
// the joint master.
func (s *MutationService) EditJoint(ctx context.Context, session core.Session, id string, scope MutationScope, patch Patch) error {
	j, err := s.ownJoint(ctx, session, id)
	if err != nil {
		return err
	}
	if err := scope.Validate(); err != nil {
		return err
	}
	if patch.IsZero() {
		return &core.ValidationError{Field: "patch", Reason: "nothing to change"}
	}

	if scope == ScopeSeries && j.InSeries() {
		masterID := j.SeriesMasterID()
		if err := s.joints.ApplyPatchBySeries(ctx, masterID, patch); err != nil {
			return fmt.Errorf("patch joint series %s: %w", masterID, err)
		}
		members, err := s.joints.ListSeries(ctx, masterID)
		if err != nil {
			return fmt.Errorf("list joint series %s: %w", masterID, err)
		}
		for _, member := range members {
			if err := s.cascadePatch(ctx, member, patch); err != nil {
				return err
			}
		}
		return nil
	}

	if err := s.joints.ApplyPatch(ctx, id, patch); err != nil {
		return fmt.Errorf("patch joint %s: %w", id, err)
	}
	return s.cascadePatch(ctx, j, patch)
}

// SetJointPaid toggles the paid flag of a joint record and both derived halves.
func (s *MutationService) SetJointPaid(ctx context.Context, session core.Session, id string, paid bool) error {
	j, err := s.ownJoint(ctx, session, id)
	if err != nil {
		return err
	}
	if err := s.joints.SetPaid(ctx, id, paid); err != nil {
		return fmt.Errorf("set paid on joint %s: %w", id, err)
	}

	derived, err := s.txs.List(ctx, TransactionFilter{JointTransactionID: j.ID})
	if err != nil {
		return fmt.Errorf("list derived of joint %s: %w", j.ID, err)
	}
	for _, d := range derived {
		if err := s.txs.SetPaid(ctx, d.ID, paid); err != nil {
			return fmt.Errorf("set paid on derived %s: %w", d.ID, err)
		}
		publishEvent(ctx, s.amqpClient, d.ID, amqp.ActionUpdated)
	}
	return nil
}

// DeleteJoint removes a joint record and its derived halves. The series
// scope removes the whole joint series plus the derived chains hanging off
// the joint master's pair.
func (s *MutationService) DeleteJoint(ctx context.Context, session core.Session, id string, scope MutationScope) error {
	j, err := s.ownJoint(ctx, session, id)
	if err != nil {
		return err
	}
	if err := scope.Validate(); err != nil {
		return err
	}

	if scope == ScopeSeries && j.InSeries() {
		masterID := j.SeriesMasterID()

		// The derived records of the joint master are the masters of the
		// two derived chains; deleting their series removes every half.
		derivedMasters, err := s.txs.List(ctx, TransactionFilter{JointTransactionID: masterID})
		if err != nil {
			return fmt.Errorf("list derived of joint master %s: %w", masterID, err)
		}
		for _, d := range derivedMasters {
			if err := s.txs.DeleteSeries(ctx, d.SeriesMasterID()); err != nil {
				return fmt.Errorf("delete derived series %s: %w", d.SeriesMasterID(), err)
			}
			publishEvent(ctx, s.amqpClient, d.SeriesMasterID(), amqp.ActionDeleted)
		}

		if err := s.joints.DeleteSeries(ctx, masterID); err != nil {
			return fmt.Errorf("delete joint series %s: %w", masterID, err)
		}
		return nil
	}

	derived, err := s.txs.List(ctx, TransactionFilter{JointTransactionID: j.ID})
	if err != nil {
		return fmt.Errorf("list derived of joint %s: %w", j.ID, err)
	}
	for _, d := range derived {
		if err := s.txs.Delete(ctx, d.ID); err != nil {
			return fmt.Errorf("delete derived %s: %w", d.ID, err)
		}
		publishEvent(ctx, s.amqpClient, d.ID, amqp.ActionDeleted)
	}

	if err := s.joints.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete joint %s: %w", id, err)
	}
	return nil
}

// cascadePatch applies a joint patch to the derived halves of one joint
// occurrence, adjusting amount and description for the split.
func (s *MutationService) cascadePatch(ctx context.Context, j core.JointTransaction, patch Patch) error {
	derived, err := s.txs.List(ctx, TransactionFilter{JointTransactionID: j.ID})
	if err != nil {
		return fmt.Errorf("list derived of joint %s: %w", j.ID, err)
	}

	for _, d := range derived {
		dp := patch
		if patch.Amount != nil {
			half := patch.Amount.Half()
			dp.Amount = &half
		}
		if patch.Description != nil {
			suffix := series.SuffixPartnerShare
			if d.OwnerID == j.CreatorID {
				suffix = series.SuffixCreatorShare
			}
			desc := *patch.Description + suffix
			dp.Description = &desc
		}
		if err := s.txs.ApplyPatch(ctx, d.ID, dp); err != nil {
			return fmt.Errorf("patch derived %s: %w", d.ID, err)
		}
		publishEvent(ctx, s.amqpClient, d.ID, amqp.ActionUpdated)
	}
	return nil
}

func (s *MutationService) ownTransaction(ctx context.Context, session core.Session, id string) (core.Transaction, error) {
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
	if t.Scope == core.ScopeIndividualDerived {
		return core.Transaction{}, ErrDerivedRecord
	}
	return t, nil
}

func (s *MutationService) ownJoint(ctx context.Context, session core.Session, id string) (core.JointTransaction, error) {
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
