package catalog

// Item is a physical copy of a bibliographic title. Immutable during a
// circulation operation.
type Item struct {
	Code           string
	BiblioID       int64
	Title          string
	Classification string
	CallNumber     string
	CollTypeID     int64
	GMDID          int64
	// LoanForbidden mirrors the item-status flag that bars the copy
	// from lending outright (reference copies, repair, etc).
	LoanForbidden bool
}
