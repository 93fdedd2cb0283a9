package models

// LoanStatus is the loan lifecycle state. Wire representation is the numeric
// code, matching the backend enum.
type LoanStatus int

const (
	StatusPending   LoanStatus = 0
	StatusApproved  LoanStatus = 1
	StatusRejected  LoanStatus = 2
	StatusCancelled LoanStatus = 3
)

func (s LoanStatus) Valid() bool {
	return s >= StatusPending && s <= StatusCancelled
}

func (s LoanStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// LoanAction is a user-initiated transition request.
type LoanAction string

const (
	ActionApprove LoanAction = "approve"
	ActionReject  LoanAction = "reject"
	ActionCancel  LoanAction = "cancel"
)

// Target returns the status an action moves a loan into.
func (a LoanAction) Target() LoanStatus {
	switch a {
	case ActionApprove:
		return StatusApproved
	case ActionReject:
		return StatusRejected
	case ActionCancel:
		return StatusCancelled
	default:
		return -1
	}
}

// Elevated marks actions restricted to the Admin role.
func (a LoanAction) Elevated() bool {
	return a == ActionApprove || a == ActionReject
}

// transitions is the single source of truth for which actions are legal from
// which status. Cancel is deliberately allowed from Approved, not only from
// Pending; Rejected and Cancelled admit no further client-side transition.
var transitions = map[LoanStatus][]LoanAction{
	StatusPending:   {ActionApprove, ActionReject, ActionCancel},
	StatusApproved:  {ActionCancel},
	StatusRejected:  {},
	StatusCancelled: {},
}

// ActionsFor lists the actions legal from status for an actor with or without
// the elevated role.
func ActionsFor(status LoanStatus, elevated bool) []LoanAction {
	var actions []LoanAction
	for _, a := range transitions[status] {
		if a.Elevated() && !elevated {
			continue
		}
		actions = append(actions, a)
	}
	return actions
}

// CanTransition reports whether the action may even be attempted from the
// given status. The backend remains the final authority.
func CanTransition(status LoanStatus, action LoanAction, elevated bool) bool {
	for _, a := range transitions[status] {
		if a != action {
			continue
		}
		if a.Elevated() && !elevated {
			return false
		}
		return true
	}
	return false
}
