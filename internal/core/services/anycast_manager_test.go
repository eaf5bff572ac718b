package services

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/riverstone-dns/zonectl/internal/core/domain"
)

type mockZoneRepository struct {
	zones   []domain.Zone
	listErr error
}

func (m *mockZoneRepository) GetZone(_ context.Context, _ string) (*domain.Zone, error) { return nil, nil }
func (m *mockZoneRepository) ListZones(_ context.Context, _ string) ([]domain.Zone, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.zones, nil
}
func (m *mockZoneRepository) CreateZone(_ context.Context, _ *domain.Zone) error { return nil }
func (m *mockZoneRepository) UpdateZone(_ context.Context, _ *domain.Zone) error { return nil }
func (m *mockZoneRepository) DeleteZone(_ context.Context, _ string) error      { return nil }
func (m *mockZoneRepository) SaveAuditLog(_ context.Context, _ *domain.AuditLog) error { return nil }
func (m *mockZoneRepository) GetAuditLogs(_ context.Context, _ string) ([]domain.AuditLog, error) {
	return nil, nil
}
func (m *mockZoneRepository) Ping(_ context.Context) error { return nil }

type mockRoutingEngine struct {
	announced    bool
	failAnnounce bool
}

func (m *mockRoutingEngine) Start(_ context.Context, _, _ uint32, _ string) error { return nil }
func (m *mockRoutingEngine) Announce(_ context.Context, _ string) error {
	if m.failAnnounce {
		return errors.New("announce failed")
	}
	m.announced = true
	return nil
}
func (m *mockRoutingEngine) Withdraw(_ context.Context, _ string) error {
	m.announced = false
	return nil
}
func (m *mockRoutingEngine) Stop() error { return nil }

type mockVIPManager struct {
	bound    bool
	failBind bool
}

func (m *mockVIPManager) Bind(_ context.Context, _, _ string) error {
	if m.failBind {
		return errors.New("bind failed")
	}
	m.bound = true
	return nil
}
func (m *mockVIPManager) Unbind(_ context.Context, _, _ string) error {
	m.bound = false
	return nil
}

// newLocalListener starts a TCP listener callers can treat as a reachable
// backend primary server, returning its address and a closer.
func newLocalListener(t *testing.T) (addr string, closeFn func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start local listener: %v", err)
	}
	return ln.Addr().String(), func() { ln.Close() }
}

func zoneWithConnection(name, primaryServer string) domain.Zone {
	return domain.Zone{
		Name:       name,
		Connection: &domain.ZoneConnection{Name: "primary", KeyName: "k", Key: "s", PrimaryServer: primaryServer},
	}
}

func TestAnycastHealthManager_AnnouncesWhenFleetReachable(t *testing.T) {
	addr, closeFn := newLocalListener(t)
	defer closeFn()

	zones := &mockZoneRepository{zones: []domain.Zone{zoneWithConnection("example.com.", addr)}}
	routing := &mockRoutingEngine{}
	vipMgr := &mockVIPManager{}

	mgr := NewAnycastHealthManager(zones, domain.NoopCryptoAlgebra{}, routing, vipMgr, "198.51.100.1", "lo", "system", nil)
	mgr.TriggerCheck(context.Background())

	if !routing.announced {
		t.Error("expected BGP announcement when every backend is reachable")
	}
	if !vipMgr.bound {
		t.Error("expected VIP to be bound when healthy")
	}
}

func TestAnycastHealthManager_WithdrawsWhenBackendUnreachable(t *testing.T) {
	zones := &mockZoneRepository{zones: []domain.Zone{zoneWithConnection("example.com.", "127.0.0.1:1")}}
	routing := &mockRoutingEngine{announced: true}
	vipMgr := &mockVIPManager{bound: true}

	mgr := NewAnycastHealthManager(zones, domain.NoopCryptoAlgebra{}, routing, vipMgr, "198.51.100.1", "lo", "system", nil)
	mgr.isAnnounced.Store(true)
	mgr.TriggerCheck(context.Background())

	if routing.announced {
		t.Error("expected BGP withdrawal when a backend is unreachable")
	}
	if !vipMgr.bound {
		t.Error("VIP should stay bound even when withdrawing the BGP route")
	}
}

func TestAnycastHealthManager_NoConnectionsIsUnhealthy(t *testing.T) {
	zones := &mockZoneRepository{zones: []domain.Zone{{Name: "axfr-only.com."}}}
	routing := &mockRoutingEngine{}
	vipMgr := &mockVIPManager{}

	mgr := NewAnycastHealthManager(zones, domain.NoopCryptoAlgebra{}, routing, vipMgr, "198.51.100.1", "lo", "system", nil)
	mgr.TriggerCheck(context.Background())

	if routing.announced {
		t.Error("expected no announcement when there is nothing to check")
	}
}

func TestAnycastHealthManager_ListZonesError(t *testing.T) {
	zones := &mockZoneRepository{listErr: errors.New("repository unavailable")}
	routing := &mockRoutingEngine{announced: true}
	vipMgr := &mockVIPManager{bound: true}

	mgr := NewAnycastHealthManager(zones, domain.NoopCryptoAlgebra{}, routing, vipMgr, "198.51.100.1", "lo", "system", nil)
	mgr.isAnnounced.Store(true)
	mgr.TriggerCheck(context.Background())

	if routing.announced {
		t.Error("expected withdrawal when the zone repository is unavailable")
	}
}

func TestAnycastHealthManager_BindFailureLeavesUnannounced(t *testing.T) {
	addr, closeFn := newLocalListener(t)
	defer closeFn()

	zones := &mockZoneRepository{zones: []domain.Zone{zoneWithConnection("example.com.", addr)}}
	routing := &mockRoutingEngine{}
	vipMgr := &mockVIPManager{failBind: true}

	mgr := NewAnycastHealthManager(zones, domain.NoopCryptoAlgebra{}, routing, vipMgr, "198.51.100.1", "lo", "system", nil)
	mgr.TriggerCheck(context.Background())

	if mgr.isAnnounced.Load() {
		t.Error("isAnnounced should be false if VIP bind fails")
	}
}

func TestAnycastHealthManager_StartStop(t *testing.T) {
	addr, closeFn := newLocalListener(t)
	defer closeFn()

	zones := &mockZoneRepository{zones: []domain.Zone{zoneWithConnection("example.com.", addr)}}
	routing := &mockRoutingEngine{}
	vipMgr := &mockVIPManager{}

	mgr := NewAnycastHealthManager(zones, domain.NoopCryptoAlgebra{}, routing, vipMgr, "198.51.100.1", "lo", "system", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	mgr.Start(ctx)

	if routing.announced {
		t.Error("expected withdrawal on shutdown")
	}
}
