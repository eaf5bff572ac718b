package domain

import "strconv"

// ZoneACLRule grants a user or group access to a shared zone. Rule
// identity (used for set membership) is AccessLevel+Subject — the
// subject's own validity is owned by the rule validator supplied at
// construction time; the core only enforces that every rule present
// validates and that the set deduplicates by identity.
type ZoneACLRule struct {
	AccessLevel string
	SubjectType string // "user" or "group"
	SubjectID   string
}

// RuleValidator validates a single ACL rule. Rule validation itself
// (e.g. resolving that SubjectID names a real user or group) is an
// external collaborator — the core only calls it.
type RuleValidator func(ZoneACLRule) error

// defaultRuleValidator rejects only the structurally impossible: an
// empty subject or access level. A richer validator (subject existence,
// access-level enum checks) is injected by callers that have a
// user/group repository to consult.
func defaultRuleValidator(r ZoneACLRule) error {
	if r.SubjectID == "" {
		return ValidationError{Field: "subjectId", Message: "cannot be empty"}
	}
	if r.AccessLevel == "" {
		return ValidationError{Field: "accessLevel", Message: "cannot be empty"}
	}
	return nil
}

// ZoneACL is an immutable set of ACL rules. It is constructed only by
// validating every rule; Add/Delete return new sets, never mutate in place.
type ZoneACL struct {
	rules map[ZoneACLRule]struct{}
}

// NewZoneACL validates every rule independently and, if all validate,
// returns the deduplicated set. Like the zone builder, it accumulates
// every rule's error rather than stopping at the first.
func NewZoneACL(rules []ZoneACLRule) (ZoneACL, ValidationErrors) {
	return newZoneACL(rules, defaultRuleValidator)
}

// NewZoneACLWithValidator is NewZoneACL with a caller-supplied rule
// validator, for when a richer (subject-existence-checking) validator
// is available.
func NewZoneACLWithValidator(rules []ZoneACLRule, validate RuleValidator) (ZoneACL, ValidationErrors) {
	return newZoneACL(rules, validate)
}

func newZoneACL(rules []ZoneACLRule, validate RuleValidator) (ZoneACL, ValidationErrors) {
	var errs ValidationErrors
	set := make(map[ZoneACLRule]struct{}, len(rules))
	for i, r := range rules {
		if err := validate(r); err != nil {
			errs.Add("rules["+strconv.Itoa(i)+"]", "%s", err.Error())
			continue
		}
		set[r] = struct{}{}
	}
	if errs.HasErrors() {
		return ZoneACL{}, errs
	}
	return ZoneACL{rules: set}, nil
}

// Rules returns the rule set as a slice. Order is unspecified.
func (a ZoneACL) Rules() []ZoneACLRule {
	out := make([]ZoneACLRule, 0, len(a.rules))
	for r := range a.rules {
		out = append(out, r)
	}
	return out
}

// Contains reports whether rule is a member of the set.
func (a ZoneACL) Contains(rule ZoneACLRule) bool {
	if a.rules == nil {
		return false
	}
	_, ok := a.rules[rule]
	return ok
}

// Add returns a new ZoneACL with rule inserted. Idempotent: adding a
// rule already present returns a set equal to the receiver.
func (a ZoneACL) Add(rule ZoneACLRule) ZoneACL {
	next := make(map[ZoneACLRule]struct{}, len(a.rules)+1)
	for r := range a.rules {
		next[r] = struct{}{}
	}
	next[rule] = struct{}{}
	return ZoneACL{rules: next}
}

// Delete returns a new ZoneACL with rule removed. Idempotent: deleting
// a rule not present returns a set equal to the receiver.
func (a ZoneACL) Delete(rule ZoneACLRule) ZoneACL {
	next := make(map[ZoneACLRule]struct{}, len(a.rules))
	for r := range a.rules {
		if r == rule {
			continue
		}
		next[r] = struct{}{}
	}
	return ZoneACL{rules: next}
}
