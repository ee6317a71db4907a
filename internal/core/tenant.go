package core

import (
	"context"
	"fmt"
	"time"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/orchardhq/orchard/internal/api/request"
	"github.com/orchardhq/orchard/internal/model"
	"github.com/orchardhq/orchard/internal/platform"
)

type TenantService struct {
	db DB
	tc temporalclient.Client
}

func NewTenantService(db DB, tc temporalclient.Client) *TenantService {
	return &TenantService{db: db, tc: tc}
}

// CreateTenantParams holds the caller-supplied fields for a new tenant.
type CreateTenantParams struct {
	Name           string
	Subdomain      string
	OwnerID        string
	MaxInstances   int
	StorageLimitGB int
}

func (s *TenantService) Create(ctx context.Context, params CreateTenantParams) (*model.Tenant, error) {
	if params.MaxInstances <= 0 {
		params.MaxInstances = 1
	}
	if params.StorageLimitGB <= 0 {
		params.StorageLimitGB = 5
	}

	now := time.Now().UTC()
	tenant := &model.Tenant{
		ID:             platform.NewID(),
		Name:           params.Name,
		Subdomain:      params.Subdomain,
		OwnerID:        params.OwnerID,
		MaxInstances:   params.MaxInstances,
		StorageLimitGB: params.StorageLimitGB,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO tenants (id, name, subdomain, owner_id, max_instances, storage_limit_gb, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tenant.ID, tenant.Name, tenant.Subdomain, tenant.OwnerID,
		tenant.MaxInstances, tenant.StorageLimitGB, tenant.Active,
		tenant.CreatedAt, tenant.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: subdomain %s is taken", ErrNameConflict, tenant.Subdomain)
		}
		return nil, fmt.Errorf("insert tenant: %w", err)
	}

	return tenant, nil
}

func (s *TenantService) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	var t model.Tenant
	err := s.db.QueryRow(ctx,
		`SELECT id, name, subdomain, owner_id, max_instances, storage_limit_gb, active, last_activity_at, created_at, updated_at
		 FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Subdomain, &t.OwnerID, &t.MaxInstances,
		&t.StorageLimitGB, &t.Active, &t.LastActivityAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapGetErr(err, "tenant", id)
	}
	return &t, nil
}

func (s *TenantService) List(ctx context.Context, params request.ListParams) ([]model.Tenant, bool, error) {
	query := `SELECT id, name, subdomain, owner_id, max_instances, storage_limit_gb, active, last_activity_at, created_at, updated_at FROM tenants WHERE 1=1`
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR subdomain ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Subdomain, &t.OwnerID, &t.MaxInstances,
			&t.StorageLimitGB, &t.Active, &t.LastActivityAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate tenants: %w", err)
	}

	hasMore := len(tenants) > params.Limit
	if hasMore {
		tenants = tenants[:params.Limit]
	}
	return tenants, hasMore, nil
}

// UpdateTenantParams holds the mutable tenant fields.
type UpdateTenantParams struct {
	Name           string
	MaxInstances   int
	StorageLimitGB int
	Active         bool
}

func (s *TenantService) Update(ctx context.Context, id string, params UpdateTenantParams) (*model.Tenant, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE tenants SET name = $1, max_instances = $2, storage_limit_gb = $3, active = $4, updated_at = now()
		 WHERE id = $5`,
		params.Name, params.MaxInstances, params.StorageLimitGB, params.Active, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update tenant %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: tenant %s", ErrNotFound, id)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a tenant record. Tenants with instances still on record
// cannot be deleted; the instances must be deleted first so their
// containers and volumes are actually torn down.
func (s *TenantService) Delete(ctx context.Context, id string) error {
	count, err := s.CountInstances(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: tenant %s still has %d instances", ErrInvalidState, id, count)
	}

	tag, err := s.db.Exec(ctx, "DELETE FROM tenants WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete tenant %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: tenant %s", ErrNotFound, id)
	}
	return nil
}

// CountInstances returns the number of instance records for a tenant,
// including instances that are mid-deletion. A record still holds its
// port and name reservations until it is gone.
func (s *TenantService) CountInstances(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		"SELECT count(*) FROM instances WHERE tenant_id = $1", tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count instances for tenant %s: %w", tenantID, err)
	}
	return count, nil
}

// TouchActivity records that the tenant was recently used. Best effort;
// failures are not surfaced to the request path.
func (s *TenantService) TouchActivity(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		"UPDATE tenants SET last_activity_at = now() WHERE id = $1", id,
	)
	return err
}
