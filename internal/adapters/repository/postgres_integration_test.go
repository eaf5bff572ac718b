package repository

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/riverstone-dns/zonectl/internal/core/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("zonectl_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		t.Fatalf("failed to open db: %s", err)
	}

	schema, err := os.ReadFile(filepath.Join(".", "schema.sql"))
	if err != nil {
		t.Fatalf("failed to read schema: %s", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("failed to apply schema: %s", err)
	}

	return db, func() {
		db.Close()
		pgContainer.Terminate(ctx)
	}
}

func TestPostgresRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPostgresRepository(db)
	ctx := context.Background()

	zone := &domain.Zone{
		ID:           "z1",
		Name:         "example.com.",
		Email:        "admin@example.com",
		Status:       domain.StatusActive,
		Created:      time.Now().Truncate(time.Second),
		Account:      "system",
		AdminGroupID: "group-1",
		Connection: &domain.ZoneConnection{
			Name: "primary", KeyName: "key1", Key: "ciphertext", PrimaryServer: "ns1.example.com:53",
		},
	}
	acl, errs := domain.NewZoneACL([]domain.ZoneACLRule{{AccessLevel: "read", SubjectType: "user", SubjectID: "bob"}})
	if errs != nil {
		t.Fatalf("NewZoneACL() unexpected error: %v", errs)
	}
	zone.ACL = acl

	if err := repo.CreateZone(ctx, zone); err != nil {
		t.Fatalf("CreateZone() unexpected error: %v", err)
	}

	got, err := repo.GetZone(ctx, "example.com.")
	if err != nil {
		t.Fatalf("GetZone() unexpected error: %v", err)
	}
	if got == nil || got.ID != "z1" {
		t.Fatalf("GetZone() = %+v", got)
	}
	if got.Connection == nil || got.Connection.PrimaryServer != "ns1.example.com:53" {
		t.Errorf("Connection = %+v", got.Connection)
	}
	if !got.ACL.Contains(domain.ZoneACLRule{AccessLevel: "read", SubjectType: "user", SubjectID: "bob"}) {
		t.Error("GetZone() did not round-trip the ACL rule")
	}

	all, err := repo.ListZones(ctx, "system")
	if err != nil {
		t.Fatalf("ListZones() unexpected error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListZones() returned %d zones, want 1", len(all))
	}

	if err := repo.SaveAuditLog(ctx, &domain.AuditLog{
		ID: "a1", ZoneID: zone.ID, Account: zone.Account, Actor: "alice",
		Action: "CreateZone", Details: "integration test", OccurredAt: time.Now(),
	}); err != nil {
		t.Fatalf("SaveAuditLog() unexpected error: %v", err)
	}
	logs, err := repo.GetAuditLogs(ctx, zone.ID)
	if err != nil {
		t.Fatalf("GetAuditLogs() unexpected error: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("GetAuditLogs() returned %d entries, want 1", len(logs))
	}

	if err := repo.CreatePrincipal(ctx, domain.Principal{
		UserID: "u1", AccessKey: "AKID", SecretKey: "encrypted-secret", Groups: []string{"admins"},
	}); err != nil {
		t.Fatalf("CreatePrincipal() unexpected error: %v", err)
	}
	principal, err := repo.GetAuthPrincipal(ctx, "AKID")
	if err != nil {
		t.Fatalf("GetAuthPrincipal() unexpected error: %v", err)
	}
	if principal == nil || principal.UserID != "u1" {
		t.Fatalf("GetAuthPrincipal() = %+v", principal)
	}

	if err := repo.DeleteZone(ctx, zone.ID); err != nil {
		t.Fatalf("DeleteZone() unexpected error: %v", err)
	}
	if got, err := repo.GetZone(ctx, "example.com."); err != nil || got != nil {
		t.Fatalf("GetZone() after delete = %+v, %v", got, err)
	}
}
