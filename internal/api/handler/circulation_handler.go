package handler

import (
	"circulation-engine/internal/api/handler/dto"
	"circulation-engine/internal/domain/circulation"
	"circulation-engine/internal/pkg/apperrors"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// CirculationHandler exposes the staging cart and the single-loan
// operations over HTTP. HTTP status codes report transport and
// infrastructure outcomes; the business outcome travels in the body as
// the engine's status string.
type CirculationHandler struct {
	service  circulation.CirculationService
	sessions *circulation.SessionStore
	logger   *slog.Logger
}

func NewCirculationHandler(s circulation.CirculationService, sessions *circulation.SessionStore, l *slog.Logger) *CirculationHandler {
	if s == nil {
		panic("circulation service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &CirculationHandler{
		service:  s,
		sessions: sessions,
		logger:   l.With("component", "CirculationHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message, field := http.StatusInternalServerError, "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError
	var appErr *apperrors.AppError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrItemAlreadyOnLoan):
		status, message = http.StatusConflict, err.Error()
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.As(err, &appErr):
		message = appErr.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func getMemberIDFromURL(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "memberID"))
	if id == "" {
		return "", fmt.Errorf("%w: memberID not found in URL path", apperrors.ErrInvalidArgument)
	}
	return id, nil
}

func getLoanIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "loanID")
	if idStr == "" {
		return 0, fmt.Errorf("%w: loanID not found in URL path", apperrors.ErrInvalidArgument)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid loanID format in URL path: %s", apperrors.ErrInvalidArgument, idStr)
	}
	return id, nil
}

// StageItem handles POST /members/{memberID}/session/items
func (h *CirculationHandler) StageItem(w http.ResponseWriter, r *http.Request) {
	memberID, err := getMemberIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.StageItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if strings.TrimSpace(req.ItemCode) == "" {
		respondError(w, fmt.Errorf("%w: itemCode cannot be empty", apperrors.ErrInvalidArgument))
		return
	}

	sess := h.sessions.Get(memberID)
	status, err := h.service.AddLoanSession(r.Context(), sess, req.ItemCode, req.IgnoreRules)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Staging failed", "member_id", memberID, "item_code", req.ItemCode, slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.StageItemResponse{
		Status: string(status),
		Staged: dto.NewSessionResponse(sess).Staged,
	}
	httpStatus := http.StatusOK
	if status == circulation.StatusItemSessionAdded {
		httpStatus = http.StatusCreated
	}
	respondJSON(w, httpStatus, resp)
}

// UnstageItem handles DELETE /members/{memberID}/session/items/{itemCode}
func (h *CirculationHandler) UnstageItem(w http.ResponseWriter, r *http.Request) {
	memberID, err := getMemberIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	itemCode := chi.URLParam(r, "itemCode")
	if itemCode == "" {
		respondError(w, fmt.Errorf("%w: itemCode not found in URL path", apperrors.ErrInvalidArgument))
		return
	}

	// Unstaging an item that was never staged is a no-op, so a missing
	// session needs no special case.
	if sess := h.sessions.Peek(memberID); sess != nil {
		h.service.RemoveLoanSession(sess, itemCode)
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// GetSession handles GET /members/{memberID}/session
func (h *CirculationHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	memberID, err := getMemberIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	sess := h.sessions.Peek(memberID)
	if sess == nil {
		sess = circulation.NewLoanSession(memberID)
	}
	respondJSON(w, http.StatusOK, dto.NewSessionResponse(sess))
}

// CommitSession handles POST /members/{memberID}/session/commit
func (h *CirculationHandler) CommitSession(w http.ResponseWriter, r *http.Request) {
	memberID, err := getMemberIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	sess := h.sessions.Get(memberID)
	receipt := circulation.NewReceipt()
	status, err := h.service.FinishLoanSession(r.Context(), sess, receipt)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Session commit failed", "member_id", memberID, slog.Any("error", err))
		respondError(w, err)
		return
	}
	h.sessions.Drop(memberID)

	respondJSON(w, http.StatusOK, dto.CommitResponse{
		Status:  string(status),
		Receipt: dto.NewReceiptResponse(receipt),
	})
}

// ReturnLoan handles POST /loans/{loanID}/return
func (h *CirculationHandler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	receipt := circulation.NewReceipt()
	result, err := h.service.ReturnItem(r.Context(), loanID, receipt)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Return failed", "loan_id", loanID, slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.ReturnResponse{
		Status:  string(result.Status),
		Receipt: dto.NewReceiptResponse(receipt),
	}
	if result.Overdue != nil {
		resp.OverdueDays = result.Overdue.Days
		resp.OnGrace = result.Overdue.OnGrace
		if !result.Overdue.Fine.IsZero() {
			resp.Fine = result.Overdue.Fine.String()
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// ExtendLoan handles POST /loans/{loanID}/extend
func (h *CirculationHandler) ExtendLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	// The renewal joins an open staging cart when the member has one, so
	// the audit list on the final receipt includes it.
	memberID := r.URL.Query().Get("member_id")
	var sess *circulation.LoanSession
	if memberID != "" {
		sess = h.sessions.Peek(memberID)
	}

	receipt := circulation.NewReceipt()
	status, err := h.service.ExtendLoan(r.Context(), sess, loanID, receipt)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Extension failed", "loan_id", loanID, slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ExtendResponse{
		Status:  string(status),
		Receipt: dto.NewReceiptResponse(receipt),
	})
}
