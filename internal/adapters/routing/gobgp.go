package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/osrg/gobgp/v4/pkg/server"
	"github.com/riverstone-dns/zonectl/internal/core/ports"
	pb "github.com/osrg/gobgp/v4/api"
	"google.golang.org/protobuf/types/known/anypb"
)

// BGPBackend defines the subset of GoBGP server methods we use,
// allowing us to mock it for testing.
type BGPBackend interface {
	Serve()
	Stop()
	StartBgp(ctx context.Context, r *pb.StartBgpRequest) error
	AddPeer(ctx context.Context, r *pb.AddPeerRequest) error
	AddPath(ctx context.Context, r *pb.AddPathRequest) (*pb.AddPathResponse, error)
	DeletePath(ctx context.Context, r *pb.DeletePathRequest) error
}

// GoBGPAdapter implements the RoutingEngine port using GoBGP.
type GoBGPAdapter struct {
	bgpServer BGPBackend
	logger    *slog.Logger

	routerID   string
	listenPort int32
	nextHop    string
}

// NewGoBGPAdapter initializes a new GoBGPAdapter with a real GoBGP server.
func NewGoBGPAdapter(logger *slog.Logger) *GoBGPAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoBGPAdapter{
		bgpServer:  server.NewBgpServer(),
		logger:     logger,
		listenPort: 179,
	}
}

// SetConfig overrides the router ID, listen port, and/or next hop used
// when Start configures the global BGP instance. Empty/zero arguments
// leave the corresponding field unchanged, so callers can update one
// setting at a time.
func (a *GoBGPAdapter) SetConfig(routerID string, listenPort int32, nextHop string) {
	if routerID != "" {
		a.routerID = routerID
	}
	if listenPort != 0 {
		a.listenPort = listenPort
	}
	if nextHop != "" {
		a.nextHop = nextHop
	}
}

// Start begins the BGP process and establishes peering.
func (a *GoBGPAdapter) Start(ctx context.Context, localASN, peerASN uint32, peerIP string) error {
	a.logger.Info("starting GoBGP engine", "local_asn", localASN, "peer_asn", peerASN, "peer_ip", peerIP)

	go a.bgpServer.Serve()

	startReq := &pb.StartBgpRequest{
		Global: &pb.Global{
			Asn:        localASN,
			RouterId:   a.routerID,
			ListenPort: a.listenPort,
		},
	}
	if err := a.bgpServer.StartBgp(ctx, startReq); err != nil {
		return err
	}

	peer := &pb.Peer{
		Conf: &pb.PeerConf{
			NeighborAddress: peerIP,
			PeerAsn:         peerASN,
		},
	}
	if err := a.bgpServer.AddPeer(ctx, &pb.AddPeerRequest{Peer: peer}); err != nil {
		return err
	}

	return nil
}

// Announce advertises the anycast VIP that fronts the backend
// nameserver fleet via BGP, making this node a next hop for it.
func (a *GoBGPAdapter) Announce(ctx context.Context, vip string) error {
	if a.bgpServer == nil {
		return errors.New("BGP server not started")
	}
	if net.ParseIP(vip) == nil {
		return fmt.Errorf("invalid VIP address: %s", vip)
	}

	a.logger.Info("announcing anycast VIP", "vip", vip)

	// Build NLRI
	nlri, _ := anypb.New(&pb.IPAddressPrefix{
		Prefix:    vip,
		PrefixLen: 32,
	})

	// Origin Attribute
	origin, _ := anypb.New(&pb.OriginAttribute{
		Origin: 0, // IGP
	})
	attrs := []*anypb.Any{origin}
	if a.nextHop != "" {
		nextHop, _ := anypb.New(&pb.NextHopAttribute{NextHop: a.nextHop})
		attrs = append(attrs, nextHop)
	}

	path := &pb.Path{
		Nlri:   nlri,
		Pattrs: attrs,
		Family: &pb.Family{Afi: pb.Family_AFI_IP, Safi: pb.Family_SAFI_UNICAST},
	}

	if _, err := a.bgpServer.AddPath(ctx, &pb.AddPathRequest{Path: path}); err != nil {
		return err
	}

	return nil
}

// Withdraw removes the anycast VIP advertisement, taking this node out
// of the BGP next-hop set — used when the backend nameserver fleet
// behind it is no longer reachable.
func (a *GoBGPAdapter) Withdraw(ctx context.Context, vip string) error {
	if a.bgpServer == nil {
		return errors.New("BGP server not started")
	}
	if net.ParseIP(vip) == nil {
		return fmt.Errorf("invalid VIP address: %s", vip)
	}

	a.logger.Info("withdrawing anycast VIP", "vip", vip)

	nlri, _ := anypb.New(&pb.IPAddressPrefix{
		Prefix:    vip,
		PrefixLen: 32,
	})

	path := &pb.Path{
		Nlri:   nlri,
		Family: &pb.Family{Afi: pb.Family_AFI_IP, Safi: pb.Family_SAFI_UNICAST},
	}

	if err := a.bgpServer.DeletePath(ctx, &pb.DeletePathRequest{Path: path}); err != nil {
		return err
	}

	return nil
}

// Stop gracefully shuts down the BGP engine.
func (a *GoBGPAdapter) Stop() error {
	if a.bgpServer != nil {
		a.bgpServer.Stop()
	}
	return nil
}

var _ ports.RoutingEngine = (*GoBGPAdapter)(nil)
