package circulation

// LoanSession is the per-member staging cart of a circulation
// transaction. It is owned exclusively by one member's active session,
// lives only between staging and commit, and is never shared between
// goroutines, so it carries no locking of its own.
type LoanSession struct {
	MemberID string

	staged map[string]StagedLoan
	order  []string

	// Reborrowed is the renewal-audit list: loan ids extended during
	// this session. Cleared together with the cart on commit.
	Reborrowed []int64
}

func NewLoanSession(memberID string) *LoanSession {
	return &LoanSession{
		MemberID: memberID,
		staged:   make(map[string]StagedLoan),
	}
}

// Add stages a loan keyed by item code. Re-adding the same item replaces
// the staged entry without duplicating it in the commit order.
func (s *LoanSession) Add(l StagedLoan) {
	if _, ok := s.staged[l.ItemCode]; !ok {
		s.order = append(s.order, l.ItemCode)
	}
	s.staged[l.ItemCode] = l
}

// Remove drops a staged item. Removing an absent item is a no-op.
func (s *LoanSession) Remove(itemCode string) {
	if _, ok := s.staged[itemCode]; !ok {
		return
	}
	delete(s.staged, itemCode)
	for i, code := range s.order {
		if code == itemCode {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *LoanSession) Has(itemCode string) bool {
	_, ok := s.staged[itemCode]
	return ok
}

func (s *LoanSession) Len() int {
	return len(s.staged)
}

// Staged returns the cart in insertion order.
func (s *LoanSession) Staged() []StagedLoan {
	out := make([]StagedLoan, 0, len(s.order))
	for _, code := range s.order {
		out = append(out, s.staged[code])
	}
	return out
}

// CountByRule counts staged items under a specific rule. Rule id 0 counts
// the whole cart, matching the loan-limit convention for members whose
// loans fall back to the member-type baseline.
func (s *LoanSession) CountByRule(ruleID int64) int {
	if ruleID == 0 {
		return len(s.staged)
	}
	n := 0
	for _, l := range s.staged {
		if l.RuleID == ruleID {
			n++
		}
	}
	return n
}

// TrackRenewal records a loan id in the renewal-audit list.
func (s *LoanSession) TrackRenewal(loanID int64) {
	s.Reborrowed = append(s.Reborrowed, loanID)
}

// Clear empties the cart and the renewal-audit list.
func (s *LoanSession) Clear() {
	s.staged = make(map[string]StagedLoan)
	s.order = nil
	s.Reborrowed = nil
}
