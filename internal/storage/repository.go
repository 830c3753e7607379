// Package storage persists the ledger in SQLite. SQLiteRepository implements
// every store interface the services layer consumes.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Vynetoob/Financeiro/internal/core"
	"github.com/Vynetoob/Financeiro/internal/services"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const transactionColumns = `id, owner_id, kind, description, amount_cents, date,
	category_id, payment_method, card_id, paid, scope,
	installment_index, installment_total, is_series_master,
	recurrence_parent_id, frequency, recurrence_end_date, joint_transaction_id`

// Insert implements services.TransactionStore.
func (r *SQLiteRepository) Insert(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transactionArgs(t)...)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.Key())
	return nil
}

// InsertBatch writes every record in one database transaction; either all
// rows land or none do.
func (r *SQLiteRepository) InsertBatch(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		if _, err := stmt.ExecContext(ctx, transactionArgs(t)...); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch insert: %w", err)
	}

	slog.InfoContext(ctx, "Transaction batch saved to SQLite", "count", len(txs))
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, services.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) List(ctx context.Context, f services.TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	where, args := transactionWhere(f)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY date, created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ApplyPatch(ctx context.Context, id string, p services.Patch) error {
	set, args := patchSet(p)
	if set == "" {
		return nil
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, "UPDATE transactions SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("patch transaction %s: %w", id, err)
	}
	return requireRows(res)
}

func (r *SQLiteRepository) ApplyPatchBySeries(ctx context.Context, masterID string, p services.Patch) error {
	set, args := patchSet(p)
	if set == "" {
		return nil
	}
	args = append(args, masterID, masterID)

	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET `+set+`
		WHERE id = ? OR recurrence_parent_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("patch series %s: %w", masterID, err)
	}
	return nil
}

func (r *SQLiteRepository) SetPaid(ctx context.Context, id string, paid bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET paid = ?, sync_status = 'pending' WHERE id = ?", boolInt(paid), id)
	if err != nil {
		return fmt.Errorf("set paid on %s: %w", id, err)
	}
	return requireRows(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return requireRows(res)
}

func (r *SQLiteRepository) DeleteSeries(ctx context.Context, masterID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = ? OR recurrence_parent_id = ?", masterID, masterID)
	if err != nil {
		return fmt.Errorf("delete series %s: %w", masterID, err)
	}
	return nil
}

// MarkSynced records that the sheet mirror holds the current version of the
// transaction.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET sync_status = 'synced' WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return requireRows(res)
}

// MarkSyncError flags a transaction whose mirror write keeps failing.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET sync_status = 'error' WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return requireRows(res)
}

const jointColumns = `id, creator_id, partner_id, kind, description, amount_cents, date,
	category_id, payment_method, card_id, paid,
	installment_index, installment_total, is_series_master,
	recurrence_parent_id, frequency, recurrence_end_date`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLiteRepository) insertJoint(ctx context.Context, exec execer, j core.JointTransaction) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO joint_transactions (`+jointColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.CreatorID, j.PartnerID, string(j.Kind), j.Description, j.Amount.Cents,
		j.Date.Key(), j.CategoryID, string(j.PaymentMethod), j.CardID, boolInt(j.Paid),
		j.InstallmentIndex, j.InstallmentTotal, boolInt(j.IsSeriesMaster),
		j.RecurrenceParentID, string(j.Frequency), dateKeyOrEmpty(j.RecurrenceEndDate))
	if err != nil {
		return fmt.Errorf("insert joint transaction %s: %w", j.ID, err)
	}
	return nil
}

// Joints exposes the repository as a services.JointStore.
func (r *SQLiteRepository) Joints() *JointRepository { return &JointRepository{r: r} }

// JointRepository is the joint_transactions face of the repository.
type JointRepository struct {
	r *SQLiteRepository
}

func (jr *JointRepository) Insert(ctx context.Context, j core.JointTransaction) error {
	return jr.r.insertJoint(ctx, jr.r.db, j)
}

func (jr *JointRepository) InsertBatch(ctx context.Context, js []core.JointTransaction) error {
	if len(js) == 0 {
		return nil
	}

	tx, err := jr.r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin joint batch insert: %w", err)
	}
	defer tx.Rollback()

	for _, j := range js {
		if err := jr.r.insertJoint(ctx, tx, j); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit joint batch insert: %w", err)
	}
	return nil
}

func (jr *JointRepository) Get(ctx context.Context, id string) (core.JointTransaction, error) {
	row := jr.r.db.QueryRowContext(ctx, `
		SELECT `+jointColumns+` FROM joint_transactions WHERE id = ?`, id)

	j, err := scanJoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.JointTransaction{}, services.ErrNotFound
	}
	if err != nil {
		return core.JointTransaction{}, fmt.Errorf("get joint transaction %s: %w", id, err)
	}
	return j, nil
}

func (jr *JointRepository) ListSeries(ctx context.Context, masterID string) ([]core.JointTransaction, error) {
	rows, err := jr.r.db.QueryContext(ctx, `
		SELECT `+jointColumns+` FROM joint_transactions
		WHERE id = ? OR recurrence_parent_id = ?
		ORDER BY date, created_at`, masterID, masterID)
	if err != nil {
		return nil, fmt.Errorf("list joint series %s: %w", masterID, err)
	}
	defer rows.Close()

	var out []core.JointTransaction
	for rows.Next() {
		j, err := scanJoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan joint transaction: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (jr *JointRepository) ApplyPatch(ctx context.Context, id string, p services.Patch) error {
	set, args := patchSet(p)
	if set == "" {
		return nil
	}
	args = append(args, id)

	res, err := jr.r.db.ExecContext(ctx, "UPDATE joint_transactions SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("patch joint transaction %s: %w", id, err)
	}
	return requireRows(res)
}

func (jr *JointRepository) ApplyPatchBySeries(ctx context.Context, masterID string, p services.Patch) error {
	set, args := patchSet(p)
	if set == "" {
		return nil
	}
	args = append(args, masterID, masterID)

	_, err := jr.r.db.ExecContext(ctx, `
		UPDATE joint_transactions SET `+set+`
		WHERE id = ? OR recurrence_parent_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("patch joint series %s: %w", masterID, err)
	}
	return nil
}

func (jr *JointRepository) SetPaid(ctx context.Context, id string, paid bool) error {
	res, err := jr.r.db.ExecContext(ctx,
		"UPDATE joint_transactions SET paid = ? WHERE id = ?", boolInt(paid), id)
	if err != nil {
		return fmt.Errorf("set paid on joint %s: %w", id, err)
	}
	return requireRows(res)
}

func (jr *JointRepository) Delete(ctx context.Context, id string) error {
	res, err := jr.r.db.ExecContext(ctx, "DELETE FROM joint_transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete joint transaction %s: %w", id, err)
	}
	return requireRows(res)
}

func (jr *JointRepository) DeleteSeries(ctx context.Context, masterID string) error {
	_, err := jr.r.db.ExecContext(ctx,
		"DELETE FROM joint_transactions WHERE id = ? OR recurrence_parent_id = ?", masterID, masterID)
	if err != nil {
		return fmt.Errorf("delete joint series %s: %w", masterID, err)
	}
	return nil
}

// Cards exposes the repository as a services.CardStore.
func (r *SQLiteRepository) Cards() *CardRepository { return &CardRepository{r: r} }

// CardRepository is the cards face of the repository.
type CardRepository struct {
	r *SQLiteRepository
}

func (cr *CardRepository) Insert(ctx context.Context, c core.Card) error {
	_, err := cr.r.db.ExecContext(ctx, `
		INSERT INTO cards (id, owner_id, name, total_limit_cents, closing_day, due_day)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.TotalLimit.Cents, c.ClosingDay, c.DueDay)
	if err != nil {
		return fmt.Errorf("insert card %s: %w", c.ID, err)
	}
	return nil
}

func (cr *CardRepository) Get(ctx context.Context, id string) (core.Card, error) {
	var c core.Card
	err := cr.r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, total_limit_cents, closing_day, due_day
		FROM cards WHERE id = ?`, id).
		Scan(&c.ID, &c.OwnerID, &c.Name, &c.TotalLimit.Cents, &c.ClosingDay, &c.DueDay)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Card{}, services.ErrNotFound
	}
	if err != nil {
		return core.Card{}, fmt.Errorf("get card %s: %w", id, err)
	}
	return c, nil
}

func (cr *CardRepository) ListByOwner(ctx context.Context, ownerID string) ([]core.Card, error) {
	rows, err := cr.r.db.QueryContext(ctx, `
		SELECT id, owner_id, name, total_limit_cents, closing_day, due_day
		FROM cards WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var out []core.Card
	for rows.Next() {
		var c core.Card
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.TotalLimit.Cents, &c.ClosingDay, &c.DueDay); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (cr *CardRepository) Update(ctx context.Context, c core.Card) error {
	res, err := cr.r.db.ExecContext(ctx, `
		UPDATE cards SET name = ?, total_limit_cents = ?, closing_day = ?, due_day = ?
		WHERE id = ?`,
		c.Name, c.TotalLimit.Cents, c.ClosingDay, c.DueDay, c.ID)
	if err != nil {
		return fmt.Errorf("update card %s: %w", c.ID, err)
	}
	return requireRows(res)
}

func (cr *CardRepository) Delete(ctx context.Context, id string) error {
	res, err := cr.r.db.ExecContext(ctx, "DELETE FROM cards WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	return requireRows(res)
}

// Categories exposes the repository as a services.CategoryStore.
func (r *SQLiteRepository) Categories() *CategoryRepository { return &CategoryRepository{r: r} }

// CategoryRepository is the categories face of the repository.
type CategoryRepository struct {
	r *SQLiteRepository
}

func (cr *CategoryRepository) Insert(ctx context.Context, c core.Category) error {
	_, err := cr.r.db.ExecContext(ctx, `
		INSERT INTO categories (id, owner_id, name, kind, general)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, string(c.Kind), boolInt(c.General))
	if err != nil {
		return fmt.Errorf("insert category %s: %w", c.ID, err)
	}
	return nil
}

// ListForUser returns the user's own categories plus the general ones,
// optionally narrowed by kind.
func (cr *CategoryRepository) ListForUser(ctx context.Context, ownerID string, kind core.Kind) ([]core.Category, error) {
	query := `SELECT id, owner_id, name, kind, general FROM categories
		WHERE (owner_id = ? OR general = 1)`
	args := []any{ownerID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY name"

	rows, err := cr.r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var kindStr string
		var general int
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &kindStr, &general); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(kindStr)
		c.General = general != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// Profiles exposes the repository as a services.ProfileStore.
func (r *SQLiteRepository) Profiles() *ProfileRepository { return &ProfileRepository{r: r} }

// ProfileRepository is the profiles face of the repository.
type ProfileRepository struct {
	r *SQLiteRepository
}

func (pr *ProfileRepository) Upsert(ctx context.Context, p core.Profile) error {
	_, err := pr.r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, username, partner_id)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, partner_id = excluded.partner_id`,
		p.ID, p.Username, p.PartnerID)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.ID, err)
	}
	return nil
}

func (pr *ProfileRepository) Get(ctx context.Context, id string) (core.Profile, error) {
	var p core.Profile
	err := pr.r.db.QueryRowContext(ctx, `
		SELECT id, username, partner_id FROM profiles WHERE id = ?`, id).
		Scan(&p.ID, &p.Username, &p.PartnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, services.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func transactionArgs(t core.Transaction) []any {
	return []any{
		t.ID, t.OwnerID, string(t.Kind), t.Description, t.Amount.Cents, t.Date.Key(),
		t.CategoryID, string(t.PaymentMethod), t.CardID, boolInt(t.Paid), string(t.Scope),
		t.InstallmentIndex, t.InstallmentTotal, boolInt(t.IsSeriesMaster),
		t.RecurrenceParentID, string(t.Frequency), dateKeyOrEmpty(t.RecurrenceEndDate),
		t.JointTransactionID,
	}
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t             core.Transaction
		kind          string
		dateKey       string
		paymentMethod string
		paid          int
		scope         string
		master        int
		frequency     string
		endDateKey    string
	)
	err := row.Scan(&t.ID, &t.OwnerID, &kind, &t.Description, &t.Amount.Cents, &dateKey,
		&t.CategoryID, &paymentMethod, &t.CardID, &paid, &scope,
		&t.InstallmentIndex, &t.InstallmentTotal, &master,
		&t.RecurrenceParentID, &frequency, &endDateKey, &t.JointTransactionID)
	if err != nil {
		return core.Transaction{}, err
	}

	t.Kind = core.Kind(kind)
	t.PaymentMethod = core.PaymentMethod(paymentMethod)
	t.Paid = paid != 0
	t.Scope = core.AccountScope(scope)
	t.IsSeriesMaster = master != 0
	t.Frequency = core.Frequency(frequency)

	if t.Date, err = core.ParseDateKey(dateKey); err != nil {
		return core.Transaction{}, err
	}
	if endDateKey != "" {
		if t.RecurrenceEndDate, err = core.ParseDateKey(endDateKey); err != nil {
			return core.Transaction{}, err
		}
	}
	return t, nil
}

func scanJoint(row rowScanner) (core.JointTransaction, error) {
	var (
		j             core.JointTransaction
		kind          string
		dateKey       string
		paymentMethod string
		paid          int
		master        int
		frequency     string
		endDateKey    string
	)
	err := row.Scan(&j.ID, &j.CreatorID, &j.PartnerID, &kind, &j.Description, &j.Amount.Cents, &dateKey,
		&j.CategoryID, &paymentMethod, &j.CardID, &paid,
		&j.InstallmentIndex, &j.InstallmentTotal, &master,
		&j.RecurrenceParentID, &frequency, &endDateKey)
	if err != nil {
		return core.JointTransaction{}, err
	}

	j.Kind = core.Kind(kind)
	j.PaymentMethod = core.PaymentMethod(paymentMethod)
	j.Paid = paid != 0
	j.IsSeriesMaster = master != 0
	j.Frequency = core.Frequency(frequency)

	if j.Date, err = core.ParseDateKey(dateKey); err != nil {
		return core.JointTransaction{}, err
	}
	if endDateKey != "" {
		if j.RecurrenceEndDate, err = core.ParseDateKey(endDateKey); err != nil {
			return core.JointTransaction{}, err
		}
	}
	return j, nil
}

func transactionWhere(f services.TransactionFilter) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, value any) {
		clauses = append(clauses, clause)
		args = append(args, value)
	}

	if f.OwnerID != "" {
		add("owner_id = ?", f.OwnerID)
	}
	if f.Kind != "" {
		add("kind = ?", string(f.Kind))
	}
	if f.Scope != "" {
		add("scope = ?", string(f.Scope))
	}
	if f.CardID != "" {
		add("card_id = ?", f.CardID)
	}
	if f.SeriesMasterID != "" {
		clauses = append(clauses, "(id = ? OR recurrence_parent_id = ?)")
		args = append(args, f.SeriesMasterID, f.SeriesMasterID)
	}
	if f.JointTransactionID != "" {
		add("joint_transaction_id = ?", f.JointTransactionID)
	}
	if !f.From.IsZero() {
		add("date >= ?", f.From.Key())
	}
	if !f.To.IsZero() {
		add("date <= ?", f.To.Key())
	}
	if f.OnlyUnpaid {
		clauses = append(clauses, "paid = 0")
	}

	return strings.Join(clauses, " AND "), args
}

func patchSet(p services.Patch) (string, []any) {
	var sets []string
	var args []any

	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, p.Amount.Cents)
	}
	if p.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *p.CategoryID)
	}
	if p.PaymentMethod != nil {
		sets = append(sets, "payment_method = ?")
		args = append(args, string(*p.PaymentMethod))
	}
	if p.CardID != nil {
		sets = append(sets, "card_id = ?")
		args = append(args, *p.CardID)
	}

	return strings.Join(sets, ", "), args
}

func requireRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return services.ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func dateKeyOrEmpty(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Key()
}
