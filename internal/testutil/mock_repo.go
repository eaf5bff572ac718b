// Package testutil provides testify-based mocks for the core's ports
// interfaces, shared across service and adapter tests.
package testutil

import (
	"context"

	"github.com/riverstone-dns/zonectl/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockZoneRepository is a testify mock implementing ports.ZoneRepository.
type MockZoneRepository struct {
	mock.Mock
}

func (m *MockZoneRepository) GetZone(ctx context.Context, name string) (*domain.Zone, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Zone), args.Error(1)
}

func (m *MockZoneRepository) ListZones(ctx context.Context, account string) ([]domain.Zone, error) {
	args := m.Called(account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Zone), args.Error(1)
}

func (m *MockZoneRepository) CreateZone(ctx context.Context, zone *domain.Zone) error {
	args := m.Called(zone)
	return args.Error(0)
}

func (m *MockZoneRepository) UpdateZone(ctx context.Context, zone *domain.Zone) error {
	args := m.Called(zone)
	return args.Error(0)
}

func (m *MockZoneRepository) DeleteZone(ctx context.Context, zoneID string) error {
	args := m.Called(zoneID)
	return args.Error(0)
}

func (m *MockZoneRepository) SaveAuditLog(ctx context.Context, log *domain.AuditLog) error {
	args := m.Called(log)
	return args.Error(0)
}

func (m *MockZoneRepository) GetAuditLogs(ctx context.Context, zoneID string) ([]domain.AuditLog, error) {
	args := m.Called(zoneID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditLog), args.Error(1)
}

func (m *MockZoneRepository) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

// MockPrincipalProvider is a testify mock implementing ports.AuthPrincipalProvider.
type MockPrincipalProvider struct {
	mock.Mock
}

func (m *MockPrincipalProvider) GetAuthPrincipal(ctx context.Context, accessKey string) (*domain.Principal, error) {
	args := m.Called(accessKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Principal), args.Error(1)
}

// MockRoutingEngine is a testify mock implementing ports.RoutingEngine.
type MockRoutingEngine struct {
	mock.Mock
}

func (m *MockRoutingEngine) Start(ctx context.Context, localASN, peerASN uint32, peerIP string) error {
	args := m.Called(localASN, peerASN, peerIP)
	return args.Error(0)
}

func (m *MockRoutingEngine) Announce(ctx context.Context, vip string) error {
	args := m.Called(vip)
	return args.Error(0)
}

func (m *MockRoutingEngine) Withdraw(ctx context.Context, vip string) error {
	args := m.Called(vip)
	return args.Error(0)
}

func (m *MockRoutingEngine) Stop() error {
	args := m.Called()
	return args.Error(0)
}

// MockVIPManager is a testify mock implementing ports.VIPManager.
type MockVIPManager struct {
	mock.Mock
}

func (m *MockVIPManager) Bind(ctx context.Context, vip, iface string) error {
	args := m.Called(vip, iface)
	return args.Error(0)
}

func (m *MockVIPManager) Unbind(ctx context.Context, vip, iface string) error {
	args := m.Called(vip, iface)
	return args.Error(0)
}
