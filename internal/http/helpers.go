package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Vynetoob/Financeiro/internal/core"
	applog "github.com/Vynetoob/Financeiro/internal/log"
	"github.com/Vynetoob/Financeiro/internal/services"
)

// Identity headers. An upstream gateway authenticates the user and passes
// the resolved ids along; the engine never sees credentials.
const (
	headerUserID    = "X-User-ID"
	headerPartnerID = "X-Partner-ID"
)

var errMissingUser = errors.New("missing " + headerUserID + " header")

// sessionFrom builds the acting session from the identity headers. When no
// partner header is present the stored profile linkage fills the partner id,
// so joint operations work without the gateway resolving the link itself.
func (s *Server) sessionFrom(r *http.Request) (core.Session, error) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		return core.Session{}, errMissingUser
	}
	partnerID := r.Header.Get(headerPartnerID)
	if partnerID == "" && s.profiles != nil {
		resolved, err := s.profiles.Resolve(r.Context(), userID)
		if err != nil {
			return core.Session{}, err
		}
		partnerID = resolved.PartnerID
	}
	return core.Session{
		UserID:    userID,
		PartnerID: partnerID,
	}, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`

	// Partial series details, present only when a series write stopped
	// partway through.
	MasterID string `json:"masterId,omitempty"`
	Inserted int    `json:"inserted,omitempty"`
	Expected int    `json:"expected,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps engine errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *core.ValidationError
		partial    *services.PartialSeriesError
	)
	switch {
	case errors.Is(err, errMissingUser):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Error(), Field: validation.Field})
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "record not found"})
	case errors.Is(err, services.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "record belongs to another user"})
	case errors.Is(err, services.ErrDerivedRecord):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "derived records change only through their joint origin"})
	case errors.As(err, &partial):
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Series write stopped partway",
			applog.FieldError, err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:    "series partially written",
			MasterID: partial.MasterID,
			Inserted: partial.Inserted,
			Expected: partial.Expected,
		})
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &core.ValidationError{Field: "body", Reason: "malformed JSON request body"}
	}
	return nil
}

// scopeFrom reads the mutation scope query parameter, defaulting to instance.
func scopeFrom(r *http.Request) services.MutationScope {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		return services.ScopeInstance
	}
	return services.MutationScope(scope)
}

// monthFrom reads year/month query parameters, defaulting to the current month.
func monthFrom(r *http.Request) (int, int, error) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, &core.ValidationError{Field: "year", Reason: "year must be a number"}
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, &core.ValidationError{Field: "month", Reason: "month must be between 1 and 12"}
		}
		month = m
	}
	return year, month, nil
}

// dateFrom reads an optional "YYYY-MM-DD" query parameter, defaulting to today.
func dateFrom(r *http.Request, param string) (core.Date, error) {
	v := r.URL.Query().Get(param)
	if v == "" {
		return core.Today(), nil
	}
	d, err := core.ParseDateKey(v)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: param, Reason: "expected a YYYY-MM-DD date"}
	}
	return d, nil
}
