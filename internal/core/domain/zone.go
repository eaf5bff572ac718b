// Package domain contains the core business logic and entities for zonectl:
// the authenticated-request and authoritative-zone model that every
// mutation to a backend nameserver's zones passes through.
package domain

import (
	"strings"
	"time"
)

// ZoneStatus is the lifecycle state of a Zone.
type ZoneStatus string

const (
	StatusActive        ZoneStatus = "Active"
	StatusDeleted       ZoneStatus = "Deleted"
	StatusPendingUpdate ZoneStatus = "PendingUpdate"
	StatusPendingDelete ZoneStatus = "PendingDelete"
	StatusSyncing       ZoneStatus = "Syncing"
)

// validTransitions enumerates the status graph a Zone may move through.
// Anything not listed here is rejected by Zone.TransitionTo.
var validTransitions = map[ZoneStatus][]ZoneStatus{
	StatusActive:        {StatusPendingUpdate, StatusPendingDelete, StatusSyncing},
	StatusPendingUpdate: {StatusSyncing, StatusActive},
	StatusSyncing:       {StatusActive, StatusPendingUpdate},
	StatusPendingDelete: {StatusDeleted, StatusActive},
	StatusDeleted:       {},
}

const (
	ipv4ReverseSuffix = "in-addr.arpa."
	ipv6ReverseSuffix = "ip6.arpa."
)

// Zone is the authoritative-zone aggregate. It is immutable after
// construction; every mutation (TransitionTo, AddACLRule, DeleteACLRule)
// returns a new value rather than mutating in place.
type Zone struct {
	ID                 string
	Name               string
	Email              string
	Status             ZoneStatus
	Created            time.Time
	Updated            *time.Time
	LatestSync         *time.Time
	Connection         *ZoneConnection
	TransferConnection *ZoneConnection
	Account            string
	AdminGroupID       string
	Shared             bool
	ACL                ZoneACL
}

// IsIPv4 reports whether the zone's name is an IPv4 reverse zone
// (ends in-addr.arpa.).
func (z Zone) IsIPv4() bool {
	return strings.HasSuffix(z.Name, ipv4ReverseSuffix)
}

// IsIPv6 reports whether the zone's name is an IPv6 reverse zone
// (ends ip6.arpa.).
func (z Zone) IsIPv6() bool {
	return strings.HasSuffix(z.Name, ipv6ReverseSuffix)
}

// IsReverse reports whether the zone is either kind of reverse zone.
func (z Zone) IsReverse() bool {
	return z.IsIPv4() || z.IsIPv6()
}

// NewZoneParams holds the raw, caller-supplied fields for zone
// construction. Account and AdminGroupID default to "system" /
// required-non-empty respectively per the field rules.
type NewZoneParams struct {
	Name               string
	Email              string
	AdminGroupID       string
	Account            string
	Shared             bool
	Connection         *NewZoneConnectionParams
	TransferConnection *NewZoneConnectionParams
	ACLRules           []ZoneACLRule
}

// NewZone validates every field of params independently and, on
// success, returns a freshly constructed Zone with a generated ID and
// Created timestamp. On failure it returns the full accumulated list
// of field errors — never just the first one encountered — so a caller
// can render every problem to the user at once.
//
// newID and now are injected rather than read from package globals, so
// construction stays deterministic and testable; callers normally pass
// uuid.New().String and time.Now.
func NewZone(params NewZoneParams, newID func() string, now func() time.Time) (*Zone, error) {
	var errs ValidationErrors

	if err := ValidateZoneName(params.Name); err != nil {
		errs.Add("name", "%s", err.Error())
	}
	if err := ValidateEmail(params.Email); err != nil {
		errs.Add("email", "%s", err.Error())
	}
	if err := ValidateNonEmpty("adminGroupId", params.AdminGroupID); err != nil {
		errs.Add("adminGroupId", "%s", err.Error())
	}

	var conn, transfer *ZoneConnection
	if params.Connection != nil {
		c, cErrs := newZoneConnection(*params.Connection)
		if len(cErrs) > 0 {
			for _, e := range cErrs {
				errs.Add("connection."+e.Field, "%s", e.Message)
			}
		} else {
			conn = c
		}
	}
	if params.TransferConnection != nil {
		c, cErrs := newZoneConnection(*params.TransferConnection)
		if len(cErrs) > 0 {
			for _, e := range cErrs {
				errs.Add("transferConnection."+e.Field, "%s", e.Message)
			}
		} else {
			transfer = c
		}
	}

	acl, aclErrs := NewZoneACL(params.ACLRules)
	if len(aclErrs) > 0 {
		for _, e := range aclErrs {
			errs.Add("acl."+e.Field, "%s", e.Message)
		}
	}

	if errs.HasErrors() {
		return nil, errs
	}

	account := params.Account
	if account == "" {
		account = "system"
	}

	return &Zone{
		ID:                 newID(),
		Name:               params.Name,
		Email:              params.Email,
		Status:             StatusActive,
		Created:            now(),
		Connection:         conn,
		TransferConnection: transfer,
		Account:            account,
		AdminGroupID:       params.AdminGroupID,
		Shared:             params.Shared,
		ACL:                acl,
	}, nil
}

// TransitionTo returns a copy of z with Status moved to next, and
// Updated stamped to now(). It rejects transitions not present in the
// status graph.
func (z Zone) TransitionTo(next ZoneStatus, now func() time.Time) (Zone, error) {
	allowed := validTransitions[z.Status]
	ok := false
	for _, s := range allowed {
		if s == next {
			ok = true
			break
		}
	}
	if !ok {
		return z, ValidationErrors{{Field: "status", Message: "cannot transition from " + string(z.Status) + " to " + string(next)}}
	}
	updated := now()
	cp := z
	cp.Status = next
	cp.Updated = &updated
	return cp, nil
}

// AddACLRule returns a copy of z whose ACL includes rule (set-insertion,
// idempotent: adding a rule already present leaves the set unchanged).
func (z Zone) AddACLRule(rule ZoneACLRule) Zone {
	cp := z
	cp.ACL = z.ACL.Add(rule)
	return cp
}

// DeleteACLRule returns a copy of z whose ACL no longer includes rule
// (set-removal, idempotent).
func (z Zone) DeleteACLRule(rule ZoneACLRule) Zone {
	cp := z
	cp.ACL = z.ACL.Delete(rule)
	return cp
}

// WithConnection returns a copy of z with a replaced UPDATE connection.
func (z Zone) WithConnection(conn *ZoneConnection) Zone {
	cp := z
	cp.Connection = conn
	return cp
}

// WithTransferConnection returns a copy of z with a replaced AXFR connection.
func (z Zone) WithTransferConnection(conn *ZoneConnection) Zone {
	cp := z
	cp.TransferConnection = conn
	return cp
}

// ZoneConnection is a TSIG-authenticated connection to a backend
// nameserver, used either for DNS UPDATE or for AXFR/IXFR transfer.
//
// Key holds the TSIG secret. Whether it is plaintext or encrypted is a
// lifecycle distinction, not a type distinction: callers track which
// state a given value is in by where it came from (freshly built from
// user input vs. loaded from a ZoneRepository).
type ZoneConnection struct {
	Name          string
	KeyName       string
	Key           string
	PrimaryServer string
}

// NewZoneConnectionParams holds the raw fields for ZoneConnection construction.
type NewZoneConnectionParams struct {
	Name          string
	KeyName       string
	Key           string
	PrimaryServer string
}

func newZoneConnection(p NewZoneConnectionParams) (*ZoneConnection, ValidationErrors) {
	var errs ValidationErrors

	if err := ValidateStringLength("name", p.Name, 1, 255); err != nil {
		errs.Add("name", "%s", err.Error())
	}
	if err := ValidateNonEmpty("keyName", p.KeyName); err != nil {
		errs.Add("keyName", "%s", err.Error())
	}
	if err := ValidateNonEmpty("key", p.Key); err != nil {
		errs.Add("key", "%s", err.Error())
	}

	host, port, hasPort, err := SplitHostPort(p.PrimaryServer)
	if err != nil {
		errs.Add("primaryServer", "%s", err.Error())
	} else if err := ValidateHost(host); err != nil {
		errs.Add("primaryServer", "%s", err.Error())
	} else if hasPort {
		if err := ValidatePort(port); err != nil {
			errs.Add("primaryServer", "%s", err.Error())
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &ZoneConnection{
		Name:          p.Name,
		KeyName:       p.KeyName,
		Key:           p.Key,
		PrimaryServer: p.PrimaryServer,
	}, nil
}

// NewZoneConnection validates params and returns a ZoneConnection, or
// the accumulated field errors.
func NewZoneConnection(params NewZoneConnectionParams) (*ZoneConnection, error) {
	c, errs := newZoneConnection(params)
	if len(errs) > 0 {
		return nil, errs
	}
	return c, nil
}

// Encrypted returns a copy of c with Key replaced by crypto.Encrypt(Key).
func (c ZoneConnection) Encrypted(crypto CryptoAlgebra) (*ZoneConnection, error) {
	encrypted, err := crypto.Encrypt(c.Key)
	if err != nil {
		return nil, err
	}
	cp := c
	cp.Key = encrypted
	return &cp, nil
}

// Decrypted returns a copy of c with Key replaced by crypto.Decrypt(Key).
func (c ZoneConnection) Decrypted(crypto CryptoAlgebra) (*ZoneConnection, error) {
	decrypted, err := crypto.Decrypt(c.Key)
	if err != nil {
		return nil, err
	}
	cp := c
	cp.Key = decrypted
	return &cp, nil
}

// String redacts the TSIG key so connections never leak key material
// through %v / %s formatting or accidental logging.
func (c ZoneConnection) String() string {
	return "ZoneConnection{Name:" + c.Name + ", KeyName:" + c.KeyName + ", Key:<redacted>, PrimaryServer:" + c.PrimaryServer + "}"
}

// String redacts the zone's connections for the same reason.
func (z Zone) String() string {
	conn := "<none>"
	if z.Connection != nil {
		conn = z.Connection.String()
	}
	transfer := "<none>"
	if z.TransferConnection != nil {
		transfer = z.TransferConnection.String()
	}
	return "Zone{ID:" + z.ID + ", Name:" + z.Name + ", Status:" + string(z.Status) +
		", Connection:" + conn + ", TransferConnection:" + transfer + "}"
}
