package http

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Vynetoob/Financeiro/internal/billing"
	"github.com/Vynetoob/Financeiro/internal/core"
	applog "github.com/Vynetoob/Financeiro/internal/log"
	"github.com/Vynetoob/Financeiro/internal/series"
	"github.com/Vynetoob/Financeiro/internal/services"
)

// Amounts travel as decimal strings ("123.45") on requests and as integer
// cents on responses, keeping the engine's cent arithmetic visible.
type createTransactionRequest struct {
	Kind             string `json:"kind"`
	Description      string `json:"description"`
	Amount           string `json:"amount"`
	Date             string `json:"date"`
	CategoryID       string `json:"categoryId"`
	PaymentMethod    string `json:"paymentMethod"`
	CardID           string `json:"cardId"`
	InstallmentCount int    `json:"installmentCount"`
	Recurring        bool   `json:"recurring"`
}

func (req createTransactionRequest) intent() (series.Intent, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return series.Intent{}, err
	}
	var date core.Date
	if req.Date != "" {
		date, err = core.ParseDateKey(req.Date)
		if err != nil {
			return series.Intent{}, &core.ValidationError{Field: "date", Reason: "expected a YYYY-MM-DD date"}
		}
	}
	return series.Intent{
		Kind:             core.Kind(req.Kind),
		Description:      req.Description,
		Amount:           core.Money{Cents: cents},
		Date:             date,
		CategoryID:       req.CategoryID,
		PaymentMethod:    core.PaymentMethod(req.PaymentMethod),
		CardID:           req.CardID,
		InstallmentCount: req.InstallmentCount,
		Recurring:        req.Recurring,
	}, nil
}

type patchRequest struct {
	Description   *string `json:"description"`
	Amount        *string `json:"amount"`
	CategoryID    *string `json:"categoryId"`
	PaymentMethod *string `json:"paymentMethod"`
	CardID        *string `json:"cardId"`
}

func (req patchRequest) patch() (services.Patch, error) {
	p := services.Patch{
		Description: req.Description,
		CategoryID:  req.CategoryID,
		CardID:      req.CardID,
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			return services.Patch{}, err
		}
		p.Amount = &core.Money{Cents: cents}
	}
	if req.PaymentMethod != nil {
		pm := core.PaymentMethod(*req.PaymentMethod)
		if err := pm.Validate(); err != nil {
			return services.Patch{}, err
		}
		p.PaymentMethod = &pm
	}
	return p, nil
}

type paidRequest struct {
	Paid bool `json:"paid"`
}

type transactionResponse struct {
	ID                 string `json:"id"`
	OwnerID            string `json:"ownerId"`
	Kind               string `json:"kind"`
	Description        string `json:"description"`
	AmountCents        int64  `json:"amountCents"`
	Date               string `json:"date"`
	CategoryID         string `json:"categoryId,omitempty"`
	PaymentMethod      string `json:"paymentMethod,omitempty"`
	CardID             string `json:"cardId,omitempty"`
	Paid               bool   `json:"paid"`
	Scope              string `json:"scope"`
	InstallmentIndex   int    `json:"installmentIndex,omitempty"`
	InstallmentTotal   int    `json:"installmentTotal,omitempty"`
	IsSeriesMaster     bool   `json:"isSeriesMaster,omitempty"`
	RecurrenceParentID string `json:"recurrenceParentId,omitempty"`
	Frequency          string `json:"frequency,omitempty"`
	RecurrenceEndDate  string `json:"recurrenceEndDate,omitempty"`
	JointTransactionID string `json:"jointTransactionId,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:                 t.ID,
		OwnerID:            t.OwnerID,
		Kind:               string(t.Kind),
		Description:        t.Description,
		AmountCents:        t.Amount.Cents,
		Date:               t.Date.Key(),
		CategoryID:         t.CategoryID,
		PaymentMethod:      string(t.PaymentMethod),
		CardID:             t.CardID,
		Paid:               t.Paid,
		Scope:              string(t.Scope),
		InstallmentIndex:   t.InstallmentIndex,
		InstallmentTotal:   t.InstallmentTotal,
		IsSeriesMaster:     t.IsSeriesMaster,
		RecurrenceParentID: t.RecurrenceParentID,
		Frequency:          string(t.Frequency),
		JointTransactionID: t.JointTransactionID,
	}
	if !t.RecurrenceEndDate.IsZero() {
		resp.RecurrenceEndDate = t.RecurrenceEndDate.Key()
	}
	return resp
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

type jointResponse struct {
	ID                 string `json:"id"`
	CreatorID          string `json:"creatorId"`
	PartnerID          string `json:"partnerId"`
	Kind               string `json:"kind"`
	Description        string `json:"description"`
	AmountCents        int64  `json:"amountCents"`
	Date               string `json:"date"`
	CategoryID         string `json:"categoryId,omitempty"`
	PaymentMethod      string `json:"paymentMethod,omitempty"`
	CardID             string `json:"cardId,omitempty"`
	Paid               bool   `json:"paid"`
	InstallmentIndex   int    `json:"installmentIndex,omitempty"`
	InstallmentTotal   int    `json:"installmentTotal,omitempty"`
	IsSeriesMaster     bool   `json:"isSeriesMaster,omitempty"`
	RecurrenceParentID string `json:"recurrenceParentId,omitempty"`
	Frequency          string `json:"frequency,omitempty"`
}

func toJointResponse(j core.JointTransaction) jointResponse {
	return jointResponse{
		ID:                 j.ID,
		CreatorID:          j.CreatorID,
		PartnerID:          j.PartnerID,
		Kind:               string(j.Kind),
		Description:        j.Description,
		AmountCents:        j.Amount.Cents,
		Date:               j.Date.Key(),
		CategoryID:         j.CategoryID,
		PaymentMethod:      string(j.PaymentMethod),
		CardID:             j.CardID,
		Paid:               j.Paid,
		InstallmentIndex:   j.InstallmentIndex,
		InstallmentTotal:   j.InstallmentTotal,
		IsSeriesMaster:     j.IsSeriesMaster,
		RecurrenceParentID: j.RecurrenceParentID,
		Frequency:          string(j.Frequency),
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	intent, err := req.intent()
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := s.ledger.Create(r.Context(), session, intent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"transactions": toTransactionResponses(records),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	year, month, err := monthFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := s.ledger.List(r.Context(), session, services.TransactionFilter{
		From: core.MonthAnchor(year, month, 1),
		To:   core.MonthAnchor(year, month, 31),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": toTransactionResponses(records),
	})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.ledger.Get(r.Context(), session, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req patchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.mutations.EditTransaction(r.Context(), session, r.PathValue("id"), scopeFrom(r), patch); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.mutations.DeleteTransaction(r.Context(), session, r.PathValue("id"), scopeFrom(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransactionPaid(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paidRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.mutations.SetTransactionPaid(r.Context(), session, r.PathValue("id"), req.Paid); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateJoint(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	intent, err := req.intent()
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.joints.Create(r.Context(), session, intent)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jointOut := make([]jointResponse, 0, len(result.Joints))
	for _, j := range result.Joints {
		jointOut = append(jointOut, toJointResponse(j))
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"jointTransactions": jointOut,
		"derived":           toTransactionResponses(result.Derived),
	})
}

func (s *Server) handleGetJoint(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	j, err := s.joints.Get(r.Context(), session, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJointResponse(j))
}

func (s *Server) handleEditJoint(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req patchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.mutations.EditJoint(r.Context(), session, r.PathValue("id"), scopeFrom(r), patch); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteJoint(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.mutations.DeleteJoint(r.Context(), session, r.PathValue("id"), scopeFrom(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleJointPaid(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paidRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.mutations.SetJointPaid(r.Context(), session, r.PathValue("id"), req.Paid); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type summaryResponse struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	IncomeCents  int64 `json:"incomeCents"`
	ExpenseCents int64 `json:"expenseCents"`
	BalanceCents int64 `json:"balanceCents"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	year, month, err := monthFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := session.UserID + "/" + core.MonthAnchor(year, month, 1).Key()
	summary, cached := s.summaryCache.Get(key)
	if !cached {
		summary, err = s.ledger.Summarize(r.Context(), session, core.MonthAnchor(year, month, 1))
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.summaryCache.Set(key, summary)
	} else {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Summary cache hit",
			applog.FieldYear, year, applog.FieldMonth, month)
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Year:         year,
		Month:        month,
		IncomeCents:  summary.Income.Cents,
		ExpenseCents: summary.Expense.Cents,
		BalanceCents: summary.Balance.Cents,
	})
}

type cardRequest struct {
	Name       string `json:"name"`
	TotalLimit string `json:"totalLimit"`
	ClosingDay int    `json:"closingDay"`
	DueDay     int    `json:"dueDay"`
}

func (req cardRequest) card() (core.Card, error) {
	cents, err := core.ParseDecimalToCents(req.TotalLimit)
	if err != nil {
		return core.Card{}, &core.ValidationError{Field: "totalLimit", Reason: "limit must be a positive decimal"}
	}
	return core.Card{
		Name:       req.Name,
		TotalLimit: core.Money{Cents: cents},
		ClosingDay: req.ClosingDay,
		DueDay:     req.DueDay,
	}, nil
}

type cardResponse struct {
	ID              string `json:"id"`
	OwnerID         string `json:"ownerId"`
	Name            string `json:"name"`
	TotalLimitCents int64  `json:"totalLimitCents"`
	ClosingDay      int    `json:"closingDay"`
	DueDay          int    `json:"dueDay"`
}

func toCardResponse(c core.Card) cardResponse {
	return cardResponse{
		ID:              c.ID,
		OwnerID:         c.OwnerID,
		Name:            c.Name,
		TotalLimitCents: c.TotalLimit.Cents,
		ClosingDay:      c.ClosingDay,
		DueDay:          c.DueDay,
	}
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	card, err := req.card()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.cards.Create(r.Context(), session, card)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardResponse(created))
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cards, err := s.cards.List(r.Context(), session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": out})
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	card, err := req.card()
	if err != nil {
		writeError(w, r, err)
		return
	}
	card.ID = r.PathValue("id")
	if err := s.cards.Update(r.Context(), session, card); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.cards.Delete(r.Context(), session, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cycleResponse struct {
	Label string `json:"label"`
	Start string `json:"start"`
	End   string `json:"end"`
	Due   string `json:"due"`
}

func toCycleResponse(c billing.Cycle) cycleResponse {
	return cycleResponse{
		Label: c.Label,
		Start: c.Start.Key(),
		End:   c.End.Key(),
		Due:   c.Due.Key(),
	}
}

type statementResponse struct {
	Card                 cardResponse    `json:"card"`
	Cycle                cycleResponse   `json:"cycle"`
	CycleTotalCents      int64           `json:"cycleTotalCents"`
	CommittedDetailCents int64           `json:"committedDetailCents"`
	CommittedListCents   int64           `json:"committedListCents"`
	AvailableCents       int64           `json:"availableCents"`
	FutureInvoices       []invoiceOutput `json:"futureInvoices"`
}

type invoiceOutput struct {
	Cycle      cycleResponse `json:"cycle"`
	TotalCents int64         `json:"totalCents"`
}

func (s *Server) handleCardStatement(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf, err := dateFrom(r, "asOf")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cardID := r.PathValue("id")

	key := session.UserID + "/" + cardID + "@" + asOf.Key()
	stmt, cached := s.statementCache.Get(key)
	if !cached {
		stmt, err = s.cards.Statement(r.Context(), session, cardID, asOf)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.statementCache.Set(key, stmt)
	} else {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Statement cache hit",
			applog.FieldCardID, cardID)
	}

	future := make([]invoiceOutput, 0, len(stmt.FutureInvoices))
	for _, inv := range stmt.FutureInvoices {
		future = append(future, invoiceOutput{Cycle: toCycleResponse(inv.Cycle), TotalCents: inv.Total.Cents})
	}
	writeJSON(w, http.StatusOK, statementResponse{
		Card:                 toCardResponse(stmt.Card),
		Cycle:                toCycleResponse(stmt.Cycle),
		CycleTotalCents:      stmt.CycleTotal.Cents,
		CommittedDetailCents: stmt.CommittedDetail.Cents,
		CommittedListCents:   stmt.CommittedList.Cents,
		AvailableCents:       stmt.Available.Cents,
		FutureInvoices:       future,
	})
}

type categoryRequest struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	General bool   `json:"general"`
}

type categoryResponse struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId,omitempty"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	General bool   `json:"general"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	kind := core.Kind(req.Kind)
	if err := kind.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == "" {
		writeError(w, r, &core.ValidationError{Field: "name", Reason: "category name is required"})
		return
	}
	category := core.Category{
		ID:      uuid.NewString(),
		OwnerID: session.UserID,
		Name:    req.Name,
		Kind:    kind,
		General: req.General,
	}
	if err := s.categories.Insert(r.Context(), category); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryResponse{
		ID:      category.ID,
		OwnerID: category.OwnerID,
		Name:    category.Name,
		Kind:    string(category.Kind),
		General: category.General,
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind := core.Kind(r.URL.Query().Get("kind"))
	if kind != "" {
		if err := kind.Validate(); err != nil {
			writeError(w, r, err)
			return
		}
	}
	categories, err := s.categories.ListForUser(r.Context(), session.UserID, kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{
			ID:      c.ID,
			OwnerID: c.OwnerID,
			Name:    c.Name,
			Kind:    string(c.Kind),
			General: c.General,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

type usernameRequest struct {
	Username string `json:"username"`
}

type partnerRequest struct {
	PartnerID string `json:"partnerId"`
}

type profileResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	PartnerID string `json:"partnerId,omitempty"`
}

func toProfileResponse(p core.Profile) profileResponse {
	return profileResponse{ID: p.ID, Username: p.Username, PartnerID: p.PartnerID}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := s.profiles.Get(r.Context(), session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (s *Server) handleSaveUsername(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req usernameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := s.profiles.SaveUsername(r.Context(), session, req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (s *Server) handleLinkPartner(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req partnerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := s.profiles.LinkPartner(r.Context(), session, req.PartnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}
