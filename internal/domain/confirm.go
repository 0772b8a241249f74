package domain

// ConfirmRequest is presented to the operator before a destructive or
// risky action.
type ConfirmRequest struct {
	Action   string
	Question string
	Warning  string
}
