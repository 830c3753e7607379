package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/Vynetoob/Financeiro/internal/core"
)

// memTxStore is an in-memory TransactionStore for exercising the services
// without a database. Insertion order is preserved for deterministic lists.
type memTxStore struct {
	mu       sync.Mutex
	order    []string
	txs      map[string]core.Transaction
	batchErr error // when set, InsertBatch fails with it
}

func newMemTxStore() *memTxStore {
	return &memTxStore{txs: make(map[string]core.Transaction)}
}

func (m *memTxStore) Insert(_ context.Context, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(t)
}

func (m *memTxStore) insertLocked(t core.Transaction) error {
	if _, ok := m.txs[t.ID]; ok {
		return fmt.Errorf("duplicate id %s", t.ID)
	}
	m.txs[t.ID] = t
	m.order = append(m.order, t.ID)
	return nil
}

func (m *memTxStore) InsertBatch(_ context.Context, txs []core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batchErr != nil {
		return m.batchErr
	}
	for _, t := range txs {
		if err := m.insertLocked(t); err != nil {
			return err
		}
	}
	return nil
}

func (m *memTxStore) Get(_ context.Context, id string) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok {
		return core.Transaction{}, ErrNotFound
	}
	return t, nil
}

func (m *memTxStore) List(_ context.Context, f TransactionFilter) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Transaction
	for _, id := range m.order {
		t := m.txs[id]
		if matchesFilter(t, f) {
			out = append(out, t)
		}
	}
	return out, nil
}

func matchesFilter(t core.Transaction, f TransactionFilter) bool {
	if f.OwnerID != "" && t.OwnerID != f.OwnerID {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.Scope != "" && t.Scope != f.Scope {
		return false
	}
	if f.CardID != "" && t.CardID != f.CardID {
		return false
	}
	if f.SeriesMasterID != "" && !(t.ID == f.SeriesMasterID || t.RecurrenceParentID == f.SeriesMasterID) {
		return false
	}
	if f.JointTransactionID != "" && t.JointTransactionID != f.JointTransactionID {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	if f.OnlyUnpaid && t.Paid {
		return false
	}
	return true
}

func (m *memTxStore) ApplyPatch(_ context.Context, id string, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok {
		return ErrNotFound
	}
	m.txs[id] = patchedTransaction(t, p)
	return nil
}

func (m *memTxStore) ApplyPatchBySeries(_ context.Context, masterID string, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.txs {
		if t.ID == masterID || t.RecurrenceParentID == masterID {
			m.txs[id] = patchedTransaction(t, p)
		}
	}
	return nil
}

func patchedTransaction(t core.Transaction, p Patch) core.Transaction {
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.PaymentMethod != nil {
		t.PaymentMethod = *p.PaymentMethod
	}
	if p.CardID != nil {
		t.CardID = *p.CardID
	}
	return t
}

func (m *memTxStore) SetPaid(_ context.Context, id string, paid bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok {
		return ErrNotFound
	}
	t.Paid = paid
	m.txs[id] = t
	return nil
}

func (m *memTxStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[id]; !ok {
		return ErrNotFound
	}
	m.deleteLocked(id)
	return nil
}

func (m *memTxStore) DeleteSeries(_ context.Context, masterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.txs {
		if t.ID == masterID || t.RecurrenceParentID == masterID {
			m.deleteLocked(id)
		}
	}
	return nil
}

func (m *memTxStore) deleteLocked(id string) {
	delete(m.txs, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// memJointStore is the JointStore counterpart of memTxStore.
type memJointStore struct {
	mu     sync.Mutex
	order  []string
	joints map[string]core.JointTransaction
}

func newMemJointStore() *memJointStore {
	return &memJointStore{joints: make(map[string]core.JointTransaction)}
}

func (m *memJointStore) Insert(_ context.Context, j core.JointTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.joints[j.ID]; ok {
		return fmt.Errorf("duplicate id %s", j.ID)
	}
	m.joints[j.ID] = j
	m.order = append(m.order, j.ID)
	return nil
}

func (m *memJointStore) InsertBatch(ctx context.Context, js []core.JointTransaction) error {
	for _, j := range js {
		if err := m.Insert(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

func (m *memJointStore) Get(_ context.Context, id string) (core.JointTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.joints[id]
	if !ok {
		return core.JointTransaction{}, ErrNotFound
	}
	return j, nil
}

func (m *memJointStore) ListSeries(_ context.Context, masterID string) ([]core.JointTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.JointTransaction
	for _, id := range m.order {
		j := m.joints[id]
		if j.ID == masterID || j.RecurrenceParentID == masterID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memJointStore) ApplyPatch(_ context.Context, id string, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.joints[id]
	if !ok {
		return ErrNotFound
	}
	m.joints[id] = patchedJoint(j, p)
	return nil
}

func (m *memJointStore) ApplyPatchBySeries(_ context.Context, masterID string, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, j := range m.joints {
		if j.ID == masterID || j.RecurrenceParentID == masterID {
			m.joints[id] = patchedJoint(j, p)
		}
	}
	return nil
}

func patchedJoint(j core.JointTransaction, p Patch) core.JointTransaction {
	if p.Description != nil {
		j.Description = *p.Description
	}
	if p.Amount != nil {
		j.Amount = *p.Amount
	}
	if p.CategoryID != nil {
		j.CategoryID = *p.CategoryID
	}
	if p.PaymentMethod != nil {
		j.PaymentMethod = *p.PaymentMethod
	}
	if p.CardID != nil {
		j.CardID = *p.CardID
	}
	return j
}

func (m *memJointStore) SetPaid(_ context.Context, id string, paid bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.joints[id]
	if !ok {
		return ErrNotFound
	}
	j.Paid = paid
	m.joints[id] = j
	return nil
}

func (m *memJointStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.joints[id]; !ok {
		return ErrNotFound
	}
	delete(m.joints, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memJointStore) DeleteSeries(_ context.Context, masterID string) error {
	m.mu.Lock()
	members := make([]string, 0)
	for id, j := range m.joints {
		if j.ID == masterID || j.RecurrenceParentID == masterID {
			members = append(members, id)
		}
	}
	m.mu.Unlock()
	for _, id := range members {
		if err := m.Delete(context.Background(), id); err != nil {
			return err
		}
	}
	return nil
}

// memCardStore is an in-memory CardStore.
type memCardStore struct {
	mu    sync.Mutex
	cards map[string]core.Card
}

func newMemCardStore() *memCardStore {
	return &memCardStore{cards: make(map[string]core.Card)}
}

func (m *memCardStore) Insert(_ context.Context, c core.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[c.ID]; ok {
		return fmt.Errorf("duplicate id %s", c.ID)
	}
	m.cards[c.ID] = c
	return nil
}

func (m *memCardStore) Get(_ context.Context, id string) (core.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return core.Card{}, ErrNotFound
	}
	return c, nil
}

func (m *memCardStore) ListByOwner(_ context.Context, ownerID string) ([]core.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Card
	for _, c := range m.cards {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCardStore) Update(_ context.Context, c core.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[c.ID]; !ok {
		return ErrNotFound
	}
	m.cards[c.ID] = c
	return nil
}

func (m *memCardStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[id]; !ok {
		return ErrNotFound
	}
	delete(m.cards, id)
	return nil
}

// memProfileStore is an in-memory ProfileStore.
type memProfileStore struct {
	mu       sync.Mutex
	profiles map[string]core.Profile
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{profiles: make(map[string]core.Profile)}
}

func (m *memProfileStore) Upsert(_ context.Context, p core.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
	return nil
}

func (m *memProfileStore) Get(_ context.Context, id string) (core.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return core.Profile{}, ErrNotFound
	}
	return p, nil
}
