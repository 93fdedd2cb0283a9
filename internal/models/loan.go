package models

// Loan is a room-booking request. Room, window and requester are immutable
// after creation; only the status (and the audit trail) changes.
type Loan struct {
	ID            string     `json:"id"`
	RoomID        string     `json:"roomId"`
	RoomCode      string     `json:"roomCode"`
	RoomName      string     `json:"roomName"`
	RequesterName string     `json:"namaPeminjam"`
	NRP           string     `json:"nrp"`
	StartTime     CivilTime  `json:"startTime"`
	EndTime       CivilTime  `json:"endTime"`
	Status        LoanStatus `json:"status"`
	Notes         *string    `json:"notes"`
	CreatedAt     CivilTime  `json:"createdAt"`
	UpdatedAt     CivilTime  `json:"updatedAt"`
}

// BelongsTo reports whether the loan was requested by the given campus id.
func (l *Loan) BelongsTo(nrp string) bool {
	return l.NRP != "" && l.NRP == nrp
}

type CreateLoanRequest struct {
	RoomID    string    `json:"roomId"`
	StartTime CivilTime `json:"startTime"`
	EndTime   CivilTime `json:"endTime"`
	Notes     *string   `json:"notes"`
}

type ChangeLoanStatusRequest struct {
	ToStatus LoanStatus `json:"toStatus"`
	Comment  *string    `json:"comment,omitempty"`
}

// StatusChangeResult is the backend's acknowledgement of a transition.
type StatusChangeResult struct {
	LoanID     string     `json:"loanId"`
	FromStatus LoanStatus `json:"fromStatus"`
	ToStatus   LoanStatus `json:"toStatus"`
}

// LoanStatusEvent is one entry of the append-only status audit log. Entries
// are never mutated or reordered locally; the list is only re-fetched after a
// confirmed transition.
type LoanStatusEvent struct {
	ID         string     `json:"id"`
	LoanID     string     `json:"loanId"`
	FromStatus LoanStatus `json:"fromStatus"`
	ToStatus   LoanStatus `json:"toStatus"`
	ChangedBy  *string    `json:"changedBy"`
	Comment    *string    `json:"comment"`
	ChangedAt  CivilTime  `json:"changedAt"`
}
