// Package ports declares the interfaces the core depends on and the
// adapters implement: persistence, the authenticated-principal source
// of truth, and anycast routing/VIP control for the backend nameserver
// fleet. The core imports only this package and domain, never a
// concrete adapter.
package ports

import (
	"context"

	"github.com/riverstone-dns/zonectl/internal/core/domain"
)

// AuthPrincipalProvider resolves an AWS-SigV4 access key to the
// Principal that owns it. A missing access key is not an error: it is
// reported as (nil, nil), matching the request-authentication
// algorithm's "absent principal" case. Any returned error is an
// infrastructural fault (provider unreachable, malformed record) and
// propagates to the caller unchanged.
type AuthPrincipalProvider interface {
	GetAuthPrincipal(ctx context.Context, accessKey string) (*domain.Principal, error)
}

// ZoneRepository is the zone aggregate's persistence boundary: CRUD
// over Zone, plus the audit trail every mutation appends to.
type ZoneRepository interface {
	GetZone(ctx context.Context, name string) (*domain.Zone, error)
	ListZones(ctx context.Context, account string) ([]domain.Zone, error)
	CreateZone(ctx context.Context, zone *domain.Zone) error
	UpdateZone(ctx context.Context, zone *domain.Zone) error
	DeleteZone(ctx context.Context, zoneID string) error

	SaveAuditLog(ctx context.Context, log *domain.AuditLog) error
	GetAuditLogs(ctx context.Context, zoneID string) ([]domain.AuditLog, error)

	Ping(ctx context.Context) error
}

// RoutingEngine announces and withdraws the anycast VIP over BGP.
// Implemented by a GoBGP-backed adapter; Start establishes peering,
// Announce/Withdraw add or remove the VIP's advertised path.
type RoutingEngine interface {
	Start(ctx context.Context, localASN, peerASN uint32, peerIP string) error
	Announce(ctx context.Context, vip string) error
	Withdraw(ctx context.Context, vip string) error
	Stop() error
}

// VIPManager binds and unbinds the anycast VIP to a local network
// interface, independent of whether BGP is currently announcing it.
type VIPManager interface {
	Bind(ctx context.Context, vip, iface string) error
	Unbind(ctx context.Context, vip, iface string) error
}
