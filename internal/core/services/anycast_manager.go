package services

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/riverstone-dns/zonectl/internal/core/domain"
	"github.com/riverstone-dns/zonectl/internal/core/ports"
	"github.com/riverstone-dns/zonectl/internal/metrics"
)

// AnycastHealthManager decides whether this node should advertise the
// anycast VIP over BGP, based on whether the backend nameserver fleet
// it fronts is actually reachable. It polls every zone's UPDATE
// connection primary server on a fixed interval and announces only
// while every one of them answers.
type AnycastHealthManager struct {
	zones       ports.ZoneRepository
	crypto      domain.CryptoAlgebra
	routing     ports.RoutingEngine
	vipManager  ports.VIPManager
	vip         string
	iface       string
	account     string
	dialTimeout time.Duration
	logger      *slog.Logger

	isAnnounced atomic.Bool
	vipBound    atomic.Bool
}

// NewAnycastHealthManager wires a health manager for the anycast VIP
// vip, bound to local interface iface, backed by the zones belonging
// to account.
func NewAnycastHealthManager(
	zones ports.ZoneRepository,
	crypto domain.CryptoAlgebra,
	routing ports.RoutingEngine,
	vipManager ports.VIPManager,
	vip string,
	iface string,
	account string,
	logger *slog.Logger,
) *AnycastHealthManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnycastHealthManager{
		zones:       zones,
		crypto:      crypto,
		routing:     routing,
		vipManager:  vipManager,
		vip:         vip,
		iface:       iface,
		account:     account,
		dialTimeout: 2 * time.Second,
		logger:      logger,
	}
}

// Start runs the health-check loop until ctx is cancelled, withdrawing
// the BGP route on shutdown.
func (m *AnycastHealthManager) Start(ctx context.Context) {
	m.logger.Info("starting anycast health manager", "vip", m.vip, "iface", m.iface)

	m.TriggerCheck(ctx)

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("shutting down anycast health manager, withdrawing route")
			if err := m.routing.Withdraw(context.Background(), m.vip); err != nil {
				m.logger.Error("failed to withdraw BGP on shutdown", "error", err, "vip", m.vip)
			}
			return
		case <-ticker.C:
			m.TriggerCheck(ctx)
		}
	}
}

// TriggerCheck performs an immediate health check across every zone's
// primary server and updates the announcement state.
func (m *AnycastHealthManager) TriggerCheck(ctx context.Context) {
	healthy := m.fleetIsReachable(ctx)

	announced := m.isAnnounced.Load()
	if healthy && !announced {
		m.announce(ctx)
	} else if !healthy && announced {
		m.withdraw(ctx)
	}
}

// fleetIsReachable dials every zone's UPDATE connection primary server
// and reports whether all of them answered. A zone with no connection
// configured is skipped, not treated as unhealthy — AXFR-only zones
// have nothing to dial here. A fleet with nothing to check at all is
// reported unhealthy: there is no backend worth announcing a route to.
func (m *AnycastHealthManager) fleetIsReachable(ctx context.Context) bool {
	zones, err := m.zones.ListZones(ctx, m.account)
	if err != nil {
		m.logger.Error("failed to list zones for health check", "error", err)
		return false
	}

	checked := 0
	for _, zone := range zones {
		if zone.Connection == nil {
			continue
		}
		checked++
		if !m.connectionIsReachable(ctx, zone.Name, *zone.Connection) {
			return false
		}
	}
	return checked > 0
}

func (m *AnycastHealthManager) connectionIsReachable(ctx context.Context, zoneName string, conn domain.ZoneConnection) bool {
	// The key is decrypted only to check that it decrypts; a failure
	// counts as unreachable. The probe below is a plain TCP dial that
	// does not use the key, and the plaintext is discarded, never logged.
	if _, err := conn.Decrypted(m.crypto); err != nil {
		m.logger.Warn("failed to decrypt connection key for health check", "zone", zoneName, "error", err)
		return false
	}

	address := conn.PrimaryServer
	if _, _, hasPort, _ := domain.SplitHostPort(address); !hasPort {
		address = net.JoinHostPort(address, "53")
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.dialTimeout)
	defer cancel()

	dialer := net.Dialer{}
	c, err := dialer.DialContext(dialCtx, "tcp", address)
	if err != nil {
		m.logger.Warn("backend primary server unreachable", "zone", zoneName, "server", conn.PrimaryServer, "error", err)
		metrics.BackendReachableTotal.WithLabelValues("unreachable").Inc()
		return false
	}
	_ = c.Close()
	metrics.BackendReachableTotal.WithLabelValues("reachable").Inc()
	return true
}

func (m *AnycastHealthManager) announce(ctx context.Context) {
	m.logger.Info("backend fleet healthy, initiating anycast announcement")

	if !m.vipBound.Load() {
		if err := m.vipManager.Bind(ctx, m.vip, m.iface); err != nil {
			m.logger.Error("failed to bind VIP", "error", err)
			return
		}
		m.vipBound.Store(true)
	}

	if err := m.routing.Announce(ctx, m.vip); err != nil {
		m.logger.Error("failed to announce BGP", "error", err)
		return
	}

	m.isAnnounced.Store(true)
	metrics.AnycastAnnounced.Set(1)
}

func (m *AnycastHealthManager) withdraw(ctx context.Context) {
	m.logger.Warn("backend fleet unhealthy, withdrawing anycast announcement")

	if err := m.routing.Withdraw(ctx, m.vip); err != nil {
		m.logger.Error("failed to withdraw BGP", "error", err)
		return // Do not clear isAnnounced flag if withdrawal failed
	}

	m.isAnnounced.Store(false)
	metrics.AnycastAnnounced.Set(0)
	// VIP stays bound to the interface for local connectivity/checks.
}
