package circulation

// Status is the discrete business outcome of a circulation operation.
// Business conditions are reported through these values, never as errors;
// only infrastructure faults cross the engine boundary as error.
type Status string

const (
	StatusLoanLimitReached        Status = "LOAN_LIMIT_REACHED"
	StatusItemNotFound            Status = "ITEM_NOT_FOUND"
	StatusItemSessionAdded        Status = "ITEM_SESSION_ADDED"
	StatusItemUnavailable         Status = "ITEM_UNAVAILABLE"
	StatusTransFlushError         Status = "TRANS_FLUSH_ERROR"
	StatusTransFlushSuccess       Status = "TRANS_FLUSH_SUCCESS"
	StatusLoanNotPermitted        Status = "LOAN_NOT_PERMITTED"
	StatusLoanNotPermittedPending Status = "LOAN_NOT_PERMITTED_PENDING"
	StatusItemLoanForbid          Status = "ITEM_LOAN_FORBID"
	StatusItemReserved            Status = "ITEM_RESERVED"

	// StatusSuccess is the plain happy path of single-loan operations
	// (return, extend) that have no dedicated status of their own.
	StatusSuccess Status = "SUCCESS"
)
