package routing

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"runtime"

	"github.com/riverstone-dns/zonectl/internal/core/ports"
)

// commandExecutor allows mocking exec.Command for testing.
type commandExecutor interface {
	Run(ctx context.Context, name string, arg ...string) ([]byte, error)
}

type realExecutor struct{}

func (e *realExecutor) Run(ctx context.Context, name string, arg ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, arg...).CombinedOutput()
}

// interfaceAddrs looks up the addresses currently assigned to a local
// network interface. Abstracted so tests can fake the interface state
// without a real NIC to bind against.
type interfaceAddrs func(iface string) ([]net.Addr, error)

func systemInterfaceAddrs(iface string) ([]net.Addr, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, err
	}
	return ifi.Addrs()
}

// SystemVIPAdapter implements the VIPManager port for the one anycast
// VIP AnycastHealthManager binds to its configured interface when the
// backend nameserver fleet behind it becomes reachable. Idempotency is
// decided by inspecting the interface's live address set before
// running the bind/unbind command, rather than by sniffing the
// command's "already exists" output — output text varies by platform
// and locale, while the interface's own addresses do not.
type SystemVIPAdapter struct {
	logger   *slog.Logger
	executor commandExecutor
	addrs    interfaceAddrs
	os       string // for testing
}

// NewSystemVIPAdapter initializes a new SystemVIPAdapter.
func NewSystemVIPAdapter(logger *slog.Logger) *SystemVIPAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemVIPAdapter{
		logger:   logger,
		executor: &realExecutor{},
		addrs:    systemInterfaceAddrs,
		os:       runtime.GOOS,
	}
}

// alreadyBound reports whether vip is already present on iface. A
// failed interface lookup is not treated as proof either way; the
// bind/unbind command that follows will surface the real error.
func (a *SystemVIPAdapter) alreadyBound(iface, vip string) bool {
	addrs, err := a.addrs(iface)
	if err != nil {
		return false
	}
	target := net.ParseIP(vip)
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ipNet.IP.Equal(target) {
			return true
		}
	}
	return false
}

// Bind attaches the anycast VIP to iface. A no-op, skipping the
// platform command entirely, if the VIP is already present on iface —
// for example when the process restarts while a previous run's VIP is
// still bound. Within one process AnycastHealthManager calls Bind only
// until a bind succeeds.
func (a *SystemVIPAdapter) Bind(ctx context.Context, vip, iface string) error {
	if net.ParseIP(vip) == nil {
		return fmt.Errorf("invalid VIP address: %s", vip)
	}
	if iface == "" {
		return fmt.Errorf("interface name cannot be empty")
	}

	if a.alreadyBound(iface, vip) {
		a.logger.Info("VIP already present on interface, skipping bind", "vip", vip, "iface", iface)
		return nil
	}

	name, args, err := a.bindCommand(vip, iface)
	if err != nil {
		return err
	}

	output, err := a.executor.Run(ctx, name, args...)
	if err != nil {
		a.logger.Warn("VIP bind command failed", "error", err, "vip", vip, "output", string(output))
		return fmt.Errorf("failed to bind VIP: %w (output: %s)", err, output)
	}

	a.logger.Info("bound VIP to interface", "vip", vip, "iface", iface)
	return nil
}

// Unbind removes the anycast VIP from iface. A no-op if the VIP is
// already absent. AnycastHealthManager never calls Unbind: its withdraw
// path leaves the VIP bound for local health-check connectivity (see
// anycast_manager.go).
func (a *SystemVIPAdapter) Unbind(ctx context.Context, vip, iface string) error {
	if net.ParseIP(vip) == nil {
		return fmt.Errorf("invalid VIP address: %s", vip)
	}
	if iface == "" {
		return fmt.Errorf("interface name cannot be empty")
	}

	if !a.alreadyBound(iface, vip) {
		a.logger.Info("VIP already absent from interface, skipping unbind", "vip", vip, "iface", iface)
		return nil
	}

	name, args, err := a.unbindCommand(vip, iface)
	if err != nil {
		return err
	}

	output, err := a.executor.Run(ctx, name, args...)
	if err != nil {
		a.logger.Warn("VIP unbind command failed", "error", err, "vip", vip, "output", string(output))
		return fmt.Errorf("failed to unbind VIP: %w (output: %s)", err, output)
	}

	a.logger.Info("unbound VIP from interface", "vip", vip, "iface", iface)
	return nil
}

func (a *SystemVIPAdapter) bindCommand(vip, iface string) (string, []string, error) {
	switch a.os {
	case "linux":
		return "ip", []string{"addr", "add", vip + "/32", "dev", iface}, nil
	case "darwin":
		return "ifconfig", []string{iface, "alias", vip, "255.255.255.255"}, nil
	default:
		return "", nil, a.handleUnsupportedOS()
	}
}

func (a *SystemVIPAdapter) unbindCommand(vip, iface string) (string, []string, error) {
	switch a.os {
	case "linux":
		return "ip", []string{"addr", "del", vip + "/32", "dev", iface}, nil
	case "darwin":
		return "ifconfig", []string{iface, "-alias", vip}, nil
	default:
		return "", nil, a.handleUnsupportedOS()
	}
}

func (a *SystemVIPAdapter) handleUnsupportedOS() error {
	return fmt.Errorf("unsupported OS for VIP management: %s", a.os)
}

var _ ports.VIPManager = (*SystemVIPAdapter)(nil)
