package access

// Delegate forwards every Authorizer method to the embedded Authorizer.
// Embed it to override a few methods; an override of CanAccess should call
// the package-level CanAccess with the wrapper so the other overrides apply.
type Delegate struct {
	Authorizer
}

var _ Authorizer = Delegate{}

// NewDelegate wraps a
func NewDelegate(a Authorizer) Delegate {
	return Delegate{Authorizer: a}
}

// Unwrap returns the wrapped Authorizer
func (d Delegate) Unwrap() Authorizer {
	return d.Authorizer
}
