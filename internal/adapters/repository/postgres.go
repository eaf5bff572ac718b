// Package repository implements the ports.ZoneRepository and
// ports.AuthPrincipalProvider interfaces against PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/riverstone-dns/zonectl/internal/core/domain"
)

// PostgresRepository implements ports.ZoneRepository and
// ports.AuthPrincipalProvider using database/sql over the pgx stdlib
// driver. Connection keys are stored exactly as given by the caller —
// encryption is the zone service's concern, not the repository's.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps an already-opened *sql.DB.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Ping verifies connectivity, for health checks.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) GetZone(ctx context.Context, name string) (*domain.Zone, error) {
	query := `SELECT id, name, email, status, created, updated, latest_sync, account, admin_group_id, shared
	          FROM zones WHERE LOWER(name) = LOWER($1)`
	zone, err := r.scanZone(r.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.hydrateZone(ctx, zone); err != nil {
		return nil, err
	}
	return zone, nil
}

func (r *PostgresRepository) ListZones(ctx context.Context, account string) ([]domain.Zone, error) {
	query := `SELECT id, name, email, status, created, updated, latest_sync, account, admin_group_id, shared
	          FROM zones WHERE account = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("listing zones: %w", err)
	}
	defer rows.Close()

	var zones []domain.Zone
	for rows.Next() {
		zone, err := r.scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning zone row: %w", err)
		}
		if err := r.hydrateZone(ctx, zone); err != nil {
			return nil, err
		}
		zones = append(zones, *zone)
	}
	return zones, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanZone(row rowScanner) (*domain.Zone, error) {
	var z domain.Zone
	var updated, latestSync sql.NullTime
	if err := row.Scan(&z.ID, &z.Name, &z.Email, &z.Status, &z.Created, &updated, &latestSync,
		&z.Account, &z.AdminGroupID, &z.Shared); err != nil {
		return nil, err
	}
	if updated.Valid {
		z.Updated = &updated.Time
	}
	if latestSync.Valid {
		z.LatestSync = &latestSync.Time
	}
	return &z, nil
}

// hydrateZone fills in the connections and ACL rules a zones-table row
// doesn't carry directly.
func (r *PostgresRepository) hydrateZone(ctx context.Context, zone *domain.Zone) error {
	conn, transfer, err := r.getConnections(ctx, zone.ID)
	if err != nil {
		return err
	}
	zone.Connection = conn
	zone.TransferConnection = transfer

	rules, err := r.getACLRules(ctx, zone.ID)
	if err != nil {
		return err
	}
	acl, errs := domain.NewZoneACLWithValidator(rules, func(domain.ZoneACLRule) error { return nil })
	if errs != nil {
		return fmt.Errorf("rehydrating ACL for zone %s: %w", zone.ID, errs)
	}
	zone.ACL = acl
	return nil
}

func (r *PostgresRepository) getConnections(ctx context.Context, zoneID string) (conn, transfer *domain.ZoneConnection, err error) {
	query := `SELECT role, name, key_name, key, primary_server FROM zone_connections WHERE zone_id = $1`
	rows, err := r.db.QueryContext(ctx, query, zoneID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading connections for zone %s: %w", zoneID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var role string
		var c domain.ZoneConnection
		if err := rows.Scan(&role, &c.Name, &c.KeyName, &c.Key, &c.PrimaryServer); err != nil {
			return nil, nil, fmt.Errorf("scanning connection for zone %s: %w", zoneID, err)
		}
		switch role {
		case "primary":
			conn = &c
		case "transfer":
			transfer = &c
		}
	}
	return conn, transfer, rows.Err()
}

func (r *PostgresRepository) getACLRules(ctx context.Context, zoneID string) ([]domain.ZoneACLRule, error) {
	query := `SELECT access_level, subject_type, subject_id FROM zone_acl_rules WHERE zone_id = $1`
	rows, err := r.db.QueryContext(ctx, query, zoneID)
	if err != nil {
		return nil, fmt.Errorf("loading ACL rules for zone %s: %w", zoneID, err)
	}
	defer rows.Close()

	var rules []domain.ZoneACLRule
	for rows.Next() {
		var rule domain.ZoneACLRule
		if err := rows.Scan(&rule.AccessLevel, &rule.SubjectType, &rule.SubjectID); err != nil {
			return nil, fmt.Errorf("scanning ACL rule for zone %s: %w", zoneID, err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *PostgresRepository) CreateZone(ctx context.Context, zone *domain.Zone) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO zones (id, name, email, status, created, account, admin_group_id, shared)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		zone.ID, zone.Name, zone.Email, zone.Status, zone.Created, zone.Account, zone.AdminGroupID, zone.Shared)
	if err != nil {
		return fmt.Errorf("inserting zone: %w", err)
	}

	if err := r.writeConnections(ctx, tx, zone); err != nil {
		return err
	}
	if err := r.writeACLRules(ctx, tx, zone.ID, zone.ACL.Rules()); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) UpdateZone(ctx context.Context, zone *domain.Zone) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE zones SET email=$2, status=$3, updated=$4, latest_sync=$5, admin_group_id=$6, shared=$7
		 WHERE id=$1`,
		zone.ID, zone.Email, zone.Status, zone.Updated, zone.LatestSync, zone.AdminGroupID, zone.Shared)
	if err != nil {
		return fmt.Errorf("updating zone: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM zone_connections WHERE zone_id=$1`, zone.ID); err != nil {
		return fmt.Errorf("clearing connections: %w", err)
	}
	if err := r.writeConnections(ctx, tx, zone); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM zone_acl_rules WHERE zone_id=$1`, zone.ID); err != nil {
		return fmt.Errorf("clearing ACL rules: %w", err)
	}
	if err := r.writeACLRules(ctx, tx, zone.ID, zone.ACL.Rules()); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) writeConnections(ctx context.Context, tx *sql.Tx, zone *domain.Zone) error {
	insert := func(role string, c *domain.ZoneConnection) error {
		if c == nil {
			return nil
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO zone_connections (zone_id, role, name, key_name, key, primary_server)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			zone.ID, role, c.Name, c.KeyName, c.Key, c.PrimaryServer)
		if err != nil {
			return fmt.Errorf("inserting %s connection: %w", role, err)
		}
		return nil
	}
	if err := insert("primary", zone.Connection); err != nil {
		return err
	}
	return insert("transfer", zone.TransferConnection)
}

func (r *PostgresRepository) writeACLRules(ctx context.Context, tx *sql.Tx, zoneID string, rules []domain.ZoneACLRule) error {
	for _, rule := range rules {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO zone_acl_rules (zone_id, access_level, subject_type, subject_id) VALUES ($1, $2, $3, $4)`,
			zoneID, rule.AccessLevel, rule.SubjectType, rule.SubjectID)
		if err != nil {
			return fmt.Errorf("inserting ACL rule: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) DeleteZone(ctx context.Context, zoneID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM zones WHERE id=$1`, zoneID)
	if err != nil {
		return fmt.Errorf("deleting zone %s: %w", zoneID, err)
	}
	return nil
}

func (r *PostgresRepository) SaveAuditLog(ctx context.Context, log *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, zone_id, account, actor, action, details, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.ID, log.ZoneID, log.Account, log.Actor, log.Action, log.Details, log.OccurredAt)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetAuditLogs(ctx context.Context, zoneID string) ([]domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, zone_id, account, actor, action, details, occurred_at FROM audit_logs
		 WHERE zone_id=$1 ORDER BY occurred_at DESC`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("listing audit logs for zone %s: %w", zoneID, err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(&l.ID, &l.ZoneID, &l.Account, &l.Actor, &l.Action, &l.Details, &l.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// GetAuthPrincipal implements ports.AuthPrincipalProvider. The returned
// Principal's SecretKey is exactly what is stored — still encrypted if
// EncryptUserSecrets is on; decryption is the authenticator's job.
func (r *PostgresRepository) GetAuthPrincipal(ctx context.Context, accessKey string) (*domain.Principal, error) {
	var p domain.Principal
	var groups string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, access_key, secret_key, groups FROM principals WHERE access_key=$1`,
		accessKey,
	).Scan(&p.UserID, &p.AccessKey, &p.SecretKey, &groups)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up principal for access key %s: %w", accessKey, err)
	}
	if groups != "" {
		p.Groups = strings.Split(groups, ",")
	}
	return &p, nil
}

// CreatePrincipal persists a new principal, for the bootstrapping CLI.
func (r *PostgresRepository) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO principals (user_id, access_key, secret_key, groups) VALUES ($1, $2, $3, $4)`,
		p.UserID, p.AccessKey, p.SecretKey, strings.Join(p.Groups, ","))
	if err != nil {
		return fmt.Errorf("inserting principal: %w", err)
	}
	return nil
}

// RevokePrincipal deletes a principal by access key, for the
// bootstrapping CLI.
func (r *PostgresRepository) RevokePrincipal(ctx context.Context, accessKey string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM principals WHERE access_key=$1`, accessKey)
	if err != nil {
		return fmt.Errorf("revoking principal %s: %w", accessKey, err)
	}
	return nil
}

// ListPrincipals returns every principal, for the bootstrapping CLI's
// list command.
func (r *PostgresRepository) ListPrincipals(ctx context.Context) ([]domain.Principal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, access_key, secret_key, groups FROM principals ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing principals: %w", err)
	}
	defer rows.Close()

	var principals []domain.Principal
	for rows.Next() {
		var p domain.Principal
		var groups string
		if err := rows.Scan(&p.UserID, &p.AccessKey, &p.SecretKey, &groups); err != nil {
			return nil, fmt.Errorf("scanning principal: %w", err)
		}
		if groups != "" {
			p.Groups = strings.Split(groups, ",")
		}
		principals = append(principals, p)
	}
	return principals, rows.Err()
}
