package cases

import "errors"

var (
	// ErrCaseNotFound is returned when the case id references no row.
	ErrCaseNotFound = errors.New("case not found")

	// ErrNotAssigned is returned when the caller does not hold the active
	// claim required for the submission.
	ErrNotAssigned = errors.New("you are not assigned to this case")

	// ErrValidation is returned when required input text is missing.
	ErrValidation = errors.New("missing required fields")

	// ErrRoleMismatch is returned when the requested role does not match
	// the caller's profile role.
	ErrRoleMismatch = errors.New("role not permitted for this user")
)
