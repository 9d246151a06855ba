package dto

import (
	"time"

	"circulation-engine/internal/domain/circulation"
)

type StageItemRequest struct {
	ItemCode    string `json:"itemCode"`
	IgnoreRules bool   `json:"ignoreRules"`
}

type StageItemResponse struct {
	Status string           `json:"status"`
	Staged []StagedItemInfo `json:"staged"`
}

type StagedItemInfo struct {
	ItemCode       string `json:"itemCode"`
	Title          string `json:"title"`
	Classification string `json:"classification,omitempty"`
	RuleID         int64  `json:"ruleId"`
	LoanDate       string `json:"loanDate"`
	DueDate        string `json:"dueDate"`
}

type SessionResponse struct {
	MemberID string           `json:"memberId"`
	Staged   []StagedItemInfo `json:"staged"`
}

type ReceiptResponse struct {
	ReceiptID  string    `json:"receiptId"`
	MemberID   string    `json:"memberId"`
	MemberName string    `json:"memberName,omitempty"`
	MemberType string    `json:"memberType,omitempty"`
	Date       time.Time `json:"date"`

	Loans    []LoanLineInfo     `json:"loans,omitempty"`
	Returns  []ReturnLineInfo   `json:"returns,omitempty"`
	Extends  []ExtendLineInfo   `json:"extends,omitempty"`
	Fines    []FineLineInfo     `json:"fines,omitempty"`
	Failures []FlushFailureInfo `json:"failures,omitempty"`
}

type LoanLineInfo struct {
	LoanID   int64  `json:"loanId"`
	ItemCode string `json:"itemCode"`
	Title    string `json:"title"`
	LoanDate string `json:"loanDate"`
	DueDate  string `json:"dueDate"`
}

type ReturnLineInfo struct {
	LoanID      int64  `json:"loanId"`
	ItemCode    string `json:"itemCode"`
	ReturnDate  string `json:"returnDate"`
	OverdueDays int    `json:"overdueDays,omitempty"`
	OnGrace     bool   `json:"onGrace,omitempty"`
	Fine        string `json:"fine,omitempty"`
}

type ExtendLineInfo struct {
	LoanID   int64  `json:"loanId"`
	ItemCode string `json:"itemCode"`
	LoanDate string `json:"loanDate"`
	DueDate  string `json:"dueDate"`
}

type FineLineInfo struct {
	Days    int    `json:"days"`
	OnGrace bool   `json:"onGrace"`
	Value   string `json:"value"`
}

type FlushFailureInfo struct {
	ItemCode string `json:"itemCode"`
	Status   string `json:"status"`
	Reason   string `json:"reason"`
}

type CommitResponse struct {
	Status  string          `json:"status"`
	Receipt ReceiptResponse `json:"receipt"`
}

type ReturnResponse struct {
	Status      string          `json:"status"`
	OverdueDays int             `json:"overdueDays,omitempty"`
	OnGrace     bool            `json:"onGrace,omitempty"`
	Fine        string          `json:"fine,omitempty"`
	Receipt     ReceiptResponse `json:"receipt"`
}

type ExtendResponse struct {
	Status  string          `json:"status"`
	Receipt ReceiptResponse `json:"receipt"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func NewStagedItemInfo(sl circulation.StagedLoan) StagedItemInfo {
	return StagedItemInfo{
		ItemCode:       sl.ItemCode,
		Title:          sl.Title,
		Classification: sl.Classification,
		RuleID:         sl.RuleID,
		LoanDate:       sl.LoanDate.Format(time.DateOnly),
		DueDate:        sl.DueDate.Format(time.DateOnly),
	}
}

func NewSessionResponse(sess *circulation.LoanSession) SessionResponse {
	staged := sess.Staged()
	resp := SessionResponse{
		MemberID: sess.MemberID,
		Staged:   make([]StagedItemInfo, len(staged)),
	}
	for i, sl := range staged {
		resp.Staged[i] = NewStagedItemInfo(sl)
	}
	return resp
}

func NewReceiptResponse(r *circulation.Receipt) ReceiptResponse {
	resp := ReceiptResponse{
		ReceiptID:  r.ID.String(),
		MemberID:   r.MemberID,
		MemberName: r.MemberName,
		MemberType: r.MemberType,
		Date:       r.Date,
	}
	for _, l := range r.Loans {
		resp.Loans = append(resp.Loans, LoanLineInfo{
			LoanID:   l.LoanID,
			ItemCode: l.ItemCode,
			Title:    l.Title,
			LoanDate: l.LoanDate.Format(time.DateOnly),
			DueDate:  l.DueDate.Format(time.DateOnly),
		})
	}
	for _, l := range r.Returns {
		line := ReturnLineInfo{
			LoanID:      l.LoanID,
			ItemCode:    l.ItemCode,
			ReturnDate:  l.ReturnDate.Format(time.DateOnly),
			OverdueDays: l.OverdueDays,
			OnGrace:     l.OnGrace,
		}
		if !l.Fine.IsZero() {
			line.Fine = l.Fine.String()
		}
		resp.Returns = append(resp.Returns, line)
	}
	for _, l := range r.Extends {
		resp.Extends = append(resp.Extends, ExtendLineInfo{
			LoanID:   l.LoanID,
			ItemCode: l.ItemCode,
			LoanDate: l.LoanDate.Format(time.DateOnly),
			DueDate:  l.DueDate.Format(time.DateOnly),
		})
	}
	for _, l := range r.Fines {
		resp.Fines = append(resp.Fines, FineLineInfo{
			Days:    l.Days,
			OnGrace: l.OnGrace,
			Value:   l.Value.String(),
		})
	}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, FlushFailureInfo{
			ItemCode: f.ItemCode,
			Status:   string(f.Status),
			Reason:   f.Reason,
		})
	}
	return resp
}
