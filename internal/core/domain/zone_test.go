package domain

import (
	"testing"
	"time"
)

func fixedNow() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
func fixedID() string     { return "zone-1" }

func validConnectionParams() *NewZoneConnectionParams {
	return &NewZoneConnectionParams{
		Name:          "primary",
		KeyName:       "tsig-key",
		Key:           "s3cr3t",
		PrimaryServer: "ns1.example.com:53",
	}
}

func TestNewZone_Success(t *testing.T) {
	z, err := NewZone(NewZoneParams{
		Name:         "example.com.",
		Email:        "admin@example.com",
		AdminGroupID: "group-1",
		Connection:   validConnectionParams(),
	}, fixedID, fixedNow)
	if err != nil {
		t.Fatalf("NewZone() unexpected error: %v", err)
	}
	if z.Status != StatusActive {
		t.Errorf("Status = %v, want Active", z.Status)
	}
	if z.Account != "system" {
		t.Errorf("Account = %q, want default %q", z.Account, "system")
	}
	if z.Connection == nil || z.Connection.Key != "s3cr3t" {
		t.Errorf("Connection not carried through: %+v", z.Connection)
	}
	if !z.Created.Equal(fixedNow()) {
		t.Errorf("Created = %v, want %v", z.Created, fixedNow())
	}
}

func TestNewZone_AccumulatesEveryFieldError(t *testing.T) {
	_, err := NewZone(NewZoneParams{
		Name:         "not a valid name",
		Email:        "not-an-email",
		AdminGroupID: "",
		Connection:   &NewZoneConnectionParams{},
	}, fixedID, fixedNow)
	if err == nil {
		t.Fatal("NewZone() = nil error, want accumulated ValidationErrors")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, want := range []string{"name", "email", "adminGroupId"} {
		if !fields[want] {
			t.Errorf("missing accumulated error for field %q, got %v", want, verrs)
		}
	}
	foundConnErr := false
	for _, e := range verrs {
		if len(e.Field) > len("connection.") && e.Field[:len("connection.")] == "connection." {
			foundConnErr = true
		}
	}
	if !foundConnErr {
		t.Errorf("expected a nested connection.* error, got %v", verrs)
	}
}

func TestNewZone_CustomAccount(t *testing.T) {
	z, err := NewZone(NewZoneParams{
		Name:         "example.com.",
		Email:        "admin@example.com",
		AdminGroupID: "group-1",
		Account:      "tenant-42",
	}, fixedID, fixedNow)
	if err != nil {
		t.Fatalf("NewZone() unexpected error: %v", err)
	}
	if z.Account != "tenant-42" {
		t.Errorf("Account = %q, want %q", z.Account, "tenant-42")
	}
}

func TestZone_TransitionTo(t *testing.T) {
	z := Zone{Status: StatusActive}

	next, err := z.TransitionTo(StatusPendingUpdate, fixedNow)
	if err != nil {
		t.Fatalf("TransitionTo(PendingUpdate) unexpected error: %v", err)
	}
	if next.Status != StatusPendingUpdate {
		t.Errorf("Status = %v, want PendingUpdate", next.Status)
	}
	if next.Updated == nil || !next.Updated.Equal(fixedNow()) {
		t.Errorf("Updated = %v, want %v", next.Updated, fixedNow())
	}
	if z.Status != StatusActive {
		t.Errorf("original zone mutated: Status = %v", z.Status)
	}

	if _, err := z.TransitionTo(StatusDeleted, fixedNow); err == nil {
		t.Error("TransitionTo(Active -> Deleted) = nil error, want rejection")
	}

	deleted := Zone{Status: StatusDeleted}
	if _, err := deleted.TransitionTo(StatusActive, fixedNow); err == nil {
		t.Error("TransitionTo(Deleted -> Active) = nil error, want rejection (terminal state)")
	}
}

func TestZone_ACLRulesAreCopyOnWrite(t *testing.T) {
	z := Zone{}
	rule := ZoneACLRule{AccessLevel: "READ", SubjectType: "user", SubjectID: "alice"}

	withRule := z.AddACLRule(rule)
	if z.ACL.Contains(rule) {
		t.Error("original zone's ACL was mutated by AddACLRule")
	}
	if !withRule.ACL.Contains(rule) {
		t.Error("AddACLRule did not add the rule to the returned copy")
	}

	withoutRule := withRule.DeleteACLRule(rule)
	if withRule.ACL.Contains(rule) == false {
		t.Error("sanity check failed: withRule should still contain rule")
	}
	if withoutRule.ACL.Contains(rule) {
		t.Error("DeleteACLRule did not remove the rule from the returned copy")
	}
}

func TestZone_IsIPv4IsIPv6IsReverse(t *testing.T) {
	tests := []struct {
		name        string
		zoneName    string
		wantIPv4    bool
		wantIPv6    bool
		wantReverse bool
	}{
		{"forward zone", "example.com.", false, false, false},
		{"ipv4 reverse zone", "2.0.192.in-addr.arpa.", true, false, true},
		{"ipv6 reverse zone", "1.0.0.2.ip6.arpa.", false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := Zone{Name: tt.zoneName}
			if got := z.IsIPv4(); got != tt.wantIPv4 {
				t.Errorf("IsIPv4() = %v, want %v", got, tt.wantIPv4)
			}
			if got := z.IsIPv6(); got != tt.wantIPv6 {
				t.Errorf("IsIPv6() = %v, want %v", got, tt.wantIPv6)
			}
			if got := z.IsReverse(); got != tt.wantReverse {
				t.Errorf("IsReverse() = %v, want %v", got, tt.wantReverse)
			}
		})
	}
}

func TestNewZoneConnection(t *testing.T) {
	c, err := NewZoneConnection(*validConnectionParams())
	if err != nil {
		t.Fatalf("NewZoneConnection() unexpected error: %v", err)
	}
	if c.PrimaryServer != "ns1.example.com:53" {
		t.Errorf("PrimaryServer = %q", c.PrimaryServer)
	}

	if _, err := NewZoneConnection(NewZoneConnectionParams{}); err == nil {
		t.Error("NewZoneConnection(empty) = nil error, want validation failure")
	}
}

func TestZoneConnection_PrimaryServerWithoutPort(t *testing.T) {
	c, err := NewZoneConnection(NewZoneConnectionParams{
		Name:          "primary",
		KeyName:       "k",
		Key:           "s",
		PrimaryServer: "192.0.2.1",
	})
	if err != nil {
		t.Fatalf("NewZoneConnection() unexpected error: %v", err)
	}
	if c.PrimaryServer != "192.0.2.1" {
		t.Errorf("PrimaryServer = %q", c.PrimaryServer)
	}
}

func TestZoneConnection_InvalidPort(t *testing.T) {
	_, err := NewZoneConnection(NewZoneConnectionParams{
		Name:          "primary",
		KeyName:       "k",
		Key:           "s",
		PrimaryServer: "ns1.example.com:999999",
	})
	if err == nil {
		t.Error("NewZoneConnection() with out-of-range port = nil error, want validation failure")
	}
}

func TestZoneConnection_EncryptedDecryptedRoundTrip(t *testing.T) {
	c, err := NewZoneConnection(*validConnectionParams())
	if err != nil {
		t.Fatalf("NewZoneConnection() unexpected error: %v", err)
	}
	crypto := NoopCryptoAlgebra{}

	encrypted, err := c.Encrypted(crypto)
	if err != nil {
		t.Fatalf("Encrypted() unexpected error: %v", err)
	}
	decrypted, err := encrypted.Decrypted(crypto)
	if err != nil {
		t.Fatalf("Decrypted() unexpected error: %v", err)
	}
	if decrypted.Key != c.Key {
		t.Errorf("round trip changed Key: got %q, want %q", decrypted.Key, c.Key)
	}
}

func TestZoneConnection_StringRedactsKey(t *testing.T) {
	c := ZoneConnection{Name: "primary", KeyName: "tsig-key", Key: "super-secret", PrimaryServer: "ns1.example.com:53"}
	s := c.String()
	if containsSubstring(s, "super-secret") {
		t.Errorf("String() leaked the key: %q", s)
	}
	if !containsSubstring(s, "<redacted>") {
		t.Errorf("String() did not redact the key: %q", s)
	}
}

func TestZone_StringRedactsConnections(t *testing.T) {
	z := Zone{
		ID:   "zone-1",
		Name: "example.com.",
		Connection: &ZoneConnection{
			Name: "primary", KeyName: "k", Key: "super-secret", PrimaryServer: "ns1.example.com:53",
		},
	}
	s := z.String()
	if containsSubstring(s, "super-secret") {
		t.Errorf("Zone.String() leaked a connection key: %q", s)
	}
}

func containsSubstring(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
