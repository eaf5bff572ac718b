package domain

// OutcomeKind distinguishes the three variants an AuthenticationOutcome
// can take.
type OutcomeKind int

const (
	// Authenticated means the request's signature was verified against
	// the resolved Principal's secret.
	Authenticated OutcomeKind = iota
	// CredentialsMissing means no Authorization header was present, or
	// it was blank.
	CredentialsMissing
	// CredentialsRejected means an Authorization header was present but
	// failed to parse, named an unknown access key, or failed signature
	// verification.
	CredentialsRejected
)

// AuthenticationOutcome is the tagged result of Authenticator.Authenticate.
// It is a value, not an exception: the two failure variants are
// expected, user-visible outcomes that a caller maps to a 401 response.
// Any other failure (provider I/O, crypto errors) is not represented
// here — the core returns it as a normal Go error instead.
type AuthenticationOutcome struct {
	kind      OutcomeKind
	principal Principal
	reason    string
}

// NewAuthenticated builds the Authenticated variant.
func NewAuthenticated(p Principal) AuthenticationOutcome {
	return AuthenticationOutcome{kind: Authenticated, principal: p}
}

// NewCredentialsMissing builds the CredentialsMissing variant with the
// given stable reason string.
func NewCredentialsMissing(reason string) AuthenticationOutcome {
	return AuthenticationOutcome{kind: CredentialsMissing, reason: reason}
}

// NewCredentialsRejected builds the CredentialsRejected variant with
// the given stable reason string.
func NewCredentialsRejected(reason string) AuthenticationOutcome {
	return AuthenticationOutcome{kind: CredentialsRejected, reason: reason}
}

// Kind reports which variant this outcome is.
func (o AuthenticationOutcome) Kind() OutcomeKind { return o.kind }

// Principal returns the authenticated principal. Only meaningful when
// Kind() == Authenticated.
func (o AuthenticationOutcome) Principal() Principal { return o.principal }

// Reason returns the stable, user-facing rejection/missing-credentials
// string. Only meaningful when Kind() != Authenticated.
func (o AuthenticationOutcome) Reason() string { return o.reason }

// IsAuthenticated is a convenience predicate.
func (o AuthenticationOutcome) IsAuthenticated() bool { return o.kind == Authenticated }

// ErrInvalidRequest is the stable error type reverse-zone helpers
// return for a PTR record that does not belong in the zone it is being
// written to, or whose zone/record name cannot be parsed as an IP
// address at all. It is always a well-formed, user-facing 400 — never
// promoted to an infrastructural fault.
type ErrInvalidRequest struct {
	Message string
}

func (e ErrInvalidRequest) Error() string { return e.Message }
