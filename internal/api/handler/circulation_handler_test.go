package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"circulation-engine/internal/api/handler/dto"
	"circulation-engine/internal/domain/circulation"
	"circulation-engine/internal/pkg/apperrors"
)

type MockCirculationService struct {
	mock.Mock
}

func (m *MockCirculationService) AddLoanSession(ctx context.Context, session *circulation.LoanSession, itemCode string, ignoreRules bool) (circulation.Status, error) {
	args := m.Called(ctx, session, itemCode, ignoreRules)
	return args.Get(0).(circulation.Status), args.Error(1)
}

func (m *MockCirculationService) RemoveLoanSession(session *circulation.LoanSession, itemCode string) {
	m.Called(session, itemCode)
}

func (m *MockCirculationService) FinishLoanSession(ctx context.Context, session *circulation.LoanSession, receipt *circulation.Receipt) (circulation.Status, error) {
	args := m.Called(ctx, session, receipt)
	return args.Get(0).(circulation.Status), args.Error(1)
}

func (m *MockCirculationService) ReturnItem(ctx context.Context, loanID int64, receipt *circulation.Receipt) (*circulation.ReturnResult, error) {
	args := m.Called(ctx, loanID, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*circulation.ReturnResult), args.Error(1)
}

func (m *MockCirculationService) ExtendLoan(ctx context.Context, session *circulation.LoanSession, loanID int64, receipt *circulation.Receipt) (circulation.Status, error) {
	args := m.Called(ctx, session, loanID, receipt)
	return args.Get(0).(circulation.Status), args.Error(1)
}

func setupHandler(t *testing.T) (*MockCirculationService, *circulation.SessionStore, *chi.Mux) {
	t.Helper()
	svc := new(MockCirculationService)
	sessions := circulation.NewSessionStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewCirculationHandler(svc, sessions, logger)

	router := chi.NewRouter()
	router.Route("/members/{memberID}/session", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Post("/items", h.StageItem)
		r.Delete("/items/{itemCode}", h.UnstageItem)
		r.Post("/commit", h.CommitSession)
	})
	router.Route("/loans/{loanID}", func(r chi.Router) {
		r.Post("/return", h.ReturnLoan)
		r.Post("/extend", h.ExtendLoan)
	})
	return svc, sessions, router
}

func TestStageItemWhenAdded(t *testing.T) {
	svc, _, router := setupHandler(t)

	svc.On("AddLoanSession", mock.Anything, mock.Anything, "B0001", false).
		Run(func(args mock.Arguments) {
			sess := args.Get(1).(*circulation.LoanSession)
			sess.Add(circulation.StagedLoan{ItemCode: "B0001", Title: "Some Title", RuleID: 3})
		}).
		Return(circulation.StatusItemSessionAdded, nil)

	body := bytes.NewBufferString(`{"itemCode":"B0001"}`)
	req := httptest.NewRequest(http.MethodPost, "/members/M001/session/items", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.StageItemResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(circulation.StatusItemSessionAdded), resp.Status)
	assert.Len(t, resp.Staged, 1)
	assert.Equal(t, "B0001", resp.Staged[0].ItemCode)
	svc.AssertExpectations(t)
}

func TestStageItemWhenLimitReached(t *testing.T) {
	svc, _, router := setupHandler(t)

	svc.On("AddLoanSession", mock.Anything, mock.Anything, "B0002", false).
		Return(circulation.StatusLoanLimitReached, nil)

	body := bytes.NewBufferString(`{"itemCode":"B0002"}`)
	req := httptest.NewRequest(http.MethodPost, "/members/M001/session/items", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Business refusals are a 200 with the status in the body.
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.StageItemResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(circulation.StatusLoanLimitReached), resp.Status)
	svc.AssertExpectations(t)
}

func TestStageItemWithEmptyItemCode(t *testing.T) {
	_, _, router := setupHandler(t)

	body := bytes.NewBufferString(`{"itemCode":"  "}`)
	req := httptest.NewRequest(http.MethodPost, "/members/M001/session/items", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnstageItemWithoutOpenSession(t *testing.T) {
	_, _, router := setupHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/members/M001/session/items/B0001", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUnstageItemRemovesFromOpenSession(t *testing.T) {
	svc, sessions, router := setupHandler(t)

	sess := sessions.Get("M001")
	sess.Add(circulation.StagedLoan{ItemCode: "B0001"})

	svc.On("RemoveLoanSession", sess, "B0001").Run(func(args mock.Arguments) {
		args.Get(0).(*circulation.LoanSession).Remove("B0001")
	}).Return()

	req := httptest.NewRequest(http.MethodDelete, "/members/M001/session/items/B0001", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, sess.Len())
	svc.AssertExpectations(t)
}

func TestGetSessionWhenEmpty(t *testing.T) {
	_, _, router := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/members/M001/session", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.SessionResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "M001", resp.MemberID)
	assert.Empty(t, resp.Staged)
}

func TestCommitSessionDropsSession(t *testing.T) {
	svc, sessions, router := setupHandler(t)

	sess := sessions.Get("M001")
	sess.Add(circulation.StagedLoan{ItemCode: "B0001"})

	svc.On("FinishLoanSession", mock.Anything, sess, mock.Anything).
		Run(func(args mock.Arguments) {
			receipt := args.Get(2).(*circulation.Receipt)
			receipt.MemberID = "M001"
			receipt.Date = time.Now()
			receipt.Loans = append(receipt.Loans, circulation.LoanLine{LoanID: 42, ItemCode: "B0001"})
		}).
		Return(circulation.StatusTransFlushSuccess, nil)

	req := httptest.NewRequest(http.MethodPost, "/members/M001/session/commit", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.CommitResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(circulation.StatusTransFlushSuccess), resp.Status)
	assert.Len(t, resp.Receipt.Loans, 1)
	assert.Nil(t, sessions.Peek("M001"))
	svc.AssertExpectations(t)
}

func TestReturnLoanWhenUnknown(t *testing.T) {
	svc, _, router := setupHandler(t)

	svc.On("ReturnItem", mock.Anything, int64(99), mock.Anything).
		Return(nil, apperrors.ErrNotFound)

	req := httptest.NewRequest(http.MethodPost, "/loans/99/return", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	svc.AssertExpectations(t)
}

func TestReturnLoanReportsReservation(t *testing.T) {
	svc, _, router := setupHandler(t)

	svc.On("ReturnItem", mock.Anything, int64(42), mock.Anything).
		Return(&circulation.ReturnResult{Status: circulation.StatusItemReserved}, nil)

	req := httptest.NewRequest(http.MethodPost, "/loans/42/return", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ReturnResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(circulation.StatusItemReserved), resp.Status)
	svc.AssertExpectations(t)
}

func TestExtendLoanBlockedByReservation(t *testing.T) {
	svc, _, router := setupHandler(t)

	svc.On("ExtendLoan", mock.Anything, mock.Anything, int64(42), mock.Anything).
		Return(circulation.StatusItemReserved, nil)

	req := httptest.NewRequest(http.MethodPost, "/loans/42/extend", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ExtendResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(circulation.StatusItemReserved), resp.Status)
	svc.AssertExpectations(t)
}

func TestExtendLoanWithInvalidID(t *testing.T) {
	_, _, router := setupHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/loans/abc/extend", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
