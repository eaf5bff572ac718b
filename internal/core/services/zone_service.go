package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverstone-dns/zonectl/internal/core/domain"
	"github.com/riverstone-dns/zonectl/internal/core/ports"
	"github.com/riverstone-dns/zonectl/internal/metrics"
)

// ZoneService orchestrates Zone construction and lifecycle mutation
// against a ports.ZoneRepository, encrypting connection keys at rest
// and recording an AuditLog entry for every mutation.
type ZoneService struct {
	repo   ports.ZoneRepository
	crypto domain.CryptoAlgebra
	logger *slog.Logger
}

// NewZoneService wires a ZoneService.
func NewZoneService(repo ports.ZoneRepository, crypto domain.CryptoAlgebra, logger *slog.Logger) *ZoneService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZoneService{repo: repo, crypto: crypto, logger: logger}
}

// CreateZone validates params, encrypts any connection keys, persists
// the zone, and records an audit entry. Validation failures (a
// domain.ValidationErrors) are returned unwrapped so callers can
// render field-level detail; any other failure is repository I/O.
func (s *ZoneService) CreateZone(ctx context.Context, actor string, params domain.NewZoneParams) (*domain.Zone, error) {
	zone, err := domain.NewZone(params, uuid.New().String, time.Now)
	if err != nil {
		if verrs, ok := err.(domain.ValidationErrors); ok {
			for _, v := range verrs {
				metrics.ZoneValidationFailuresTotal.WithLabelValues(v.Field).Inc()
			}
		}
		return nil, err
	}

	if zone.Connection != nil {
		encrypted, err := zone.Connection.Encrypted(s.crypto)
		if err != nil {
			return nil, fmt.Errorf("encrypting connection key: %w", err)
		}
		*zone = zone.WithConnection(encrypted)
	}
	if zone.TransferConnection != nil {
		encrypted, err := zone.TransferConnection.Encrypted(s.crypto)
		if err != nil {
			return nil, fmt.Errorf("encrypting transfer connection key: %w", err)
		}
		*zone = zone.WithTransferConnection(encrypted)
	}

	if err := s.repo.CreateZone(ctx, zone); err != nil {
		return nil, fmt.Errorf("persisting zone: %w", err)
	}

	s.recordAudit(ctx, zone.ID, zone.Account, actor, "CreateZone", "created zone "+zone.Name)
	return zone, nil
}

// TransitionZone loads a zone, moves it to next, and persists the
// result. Rejected transitions surface domain.ValidationErrors from
// Zone.TransitionTo unchanged.
func (s *ZoneService) TransitionZone(ctx context.Context, actor, zoneID string, next domain.ZoneStatus) (*domain.Zone, error) {
	zone, err := s.repo.GetZone(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("loading zone %s: %w", zoneID, err)
	}
	if zone == nil {
		return nil, fmt.Errorf("zone %s not found", zoneID)
	}

	transitioned, err := zone.TransitionTo(next, time.Now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateZone(ctx, &transitioned); err != nil {
		return nil, fmt.Errorf("persisting zone transition: %w", err)
	}

	s.recordAudit(ctx, zone.ID, zone.Account, actor, "TransitionZone",
		fmt.Sprintf("moved from %s to %s", zone.Status, next))
	return &transitioned, nil
}

// AddACLRule validates and adds rule to zoneID's ACL, persisting the result.
func (s *ZoneService) AddACLRule(ctx context.Context, actor, zoneID string, rule domain.ZoneACLRule) (*domain.Zone, error) {
	if _, errs := domain.NewZoneACL([]domain.ZoneACLRule{rule}); errs.HasErrors() {
		return nil, errs
	}
	return s.mutateACL(ctx, actor, zoneID, rule, "AddACLRule", func(z domain.Zone) domain.Zone {
		return z.AddACLRule(rule)
	})
}

// DeleteACLRule removes rule from zoneID's ACL, persisting the result.
func (s *ZoneService) DeleteACLRule(ctx context.Context, actor, zoneID string, rule domain.ZoneACLRule) (*domain.Zone, error) {
	return s.mutateACL(ctx, actor, zoneID, rule, "DeleteACLRule", func(z domain.Zone) domain.Zone {
		return z.DeleteACLRule(rule)
	})
}

func (s *ZoneService) mutateACL(
	ctx context.Context,
	actor, zoneID string,
	rule domain.ZoneACLRule,
	action string,
	mutate func(domain.Zone) domain.Zone,
) (*domain.Zone, error) {
	zone, err := s.repo.GetZone(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("loading zone %s: %w", zoneID, err)
	}
	if zone == nil {
		return nil, fmt.Errorf("zone %s not found", zoneID)
	}

	mutated := mutate(*zone)
	if err := s.repo.UpdateZone(ctx, &mutated); err != nil {
		return nil, fmt.Errorf("persisting ACL mutation: %w", err)
	}

	s.recordAudit(ctx, zone.ID, zone.Account, actor, action,
		fmt.Sprintf("%s/%s:%s", rule.SubjectType, rule.SubjectID, rule.AccessLevel))
	return &mutated, nil
}

// DeleteZone loads a zone, removes it from the repository, and records
// an audit entry. It does not move the zone through the PendingDelete
// or Deleted statuses first.
func (s *ZoneService) DeleteZone(ctx context.Context, actor, zoneID string) error {
	zone, err := s.repo.GetZone(ctx, zoneID)
	if err != nil {
		return fmt.Errorf("loading zone %s: %w", zoneID, err)
	}
	if zone == nil {
		return fmt.Errorf("zone %s not found", zoneID)
	}

	if err := s.repo.DeleteZone(ctx, zoneID); err != nil {
		return fmt.Errorf("deleting zone %s: %w", zoneID, err)
	}

	s.recordAudit(ctx, zone.ID, zone.Account, actor, "DeleteZone", "deleted zone "+zone.Name)
	return nil
}

// recordAudit best-effort persists an AuditLog entry. A failure here
// is logged, not propagated: losing an audit record must never block
// the zone mutation it describes.
func (s *ZoneService) recordAudit(ctx context.Context, zoneID, account, actor, action, details string) {
	log := &domain.AuditLog{
		ID:         uuid.New().String(),
		ZoneID:     zoneID,
		Account:    account,
		Actor:      actor,
		Action:     action,
		Details:    details,
		OccurredAt: time.Now(),
	}
	if err := s.repo.SaveAuditLog(ctx, log); err != nil {
		s.logger.Error("failed to persist audit log", "error", err, "zoneId", zoneID, "action", action)
	}
}
