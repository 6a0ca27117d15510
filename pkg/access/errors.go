package access

import "errors"

// Precondition violations are programmer errors. They panic with an error
// wrapping one of these values.
var (
	// ErrImmutable is raised by a grant on a frozen role
	ErrImmutable = errors.New("role is immutable")

	// ErrNilElement is raised when a required element is nil
	ErrNilElement = errors.New("element is nil")

	// ErrInvalidElement is raised for an element of an unsupported kind
	ErrInvalidElement = errors.New("invalid element")

	// ErrInvalidAccess is raised when an access level is not allowed for
	// the kind of element being granted
	ErrInvalidAccess = errors.New("access not allowed for element")

	// ErrHierarchyNotCustom is raised by a member grant on a hierarchy
	// whose access is not Custom
	ErrHierarchyNotCustom = errors.New("hierarchy access is not custom")

	// ErrInvalidBounds is raised when level bounds do not belong to the
	// hierarchy, are out of order, or are given for non-custom access
	ErrInvalidBounds = errors.New("invalid level bounds")

	// ErrEmptyUnion is raised when a union is built from no roles
	ErrEmptyUnion = errors.New("union of no roles")

	// ErrMutableConstituent is raised when a union is built from a role
	// that is still under construction
	ErrMutableConstituent = errors.New("union constituent is mutable")
)
