package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldserve/fieldserve/internal/domain"
)

// SLAPolicyRepository resolves per-org, per-priority SLA targets.
type SLAPolicyRepository interface {
	// GetByPriority falls back to the built-in defaults when the org has no
	// policy row for the priority.
	GetByPriority(ctx context.Context, orgID string, priority domain.TicketPriority) (*domain.SLAPolicy, error)
	Upsert(ctx context.Context, policy *domain.SLAPolicy) error
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSLAPolicyRepository instantiates the repository.
func NewSLAPolicyRepository(pool *pgxpool.Pool) SLAPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

func (r *slaPolicyRepository) GetByPriority(ctx context.Context, orgID string, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	const query = `
        SELECT org_id, priority, response_time_hours, resolution_time_hours, business_hours_only
        FROM sla_policies WHERE org_id=$1 AND priority=$2`
	var policy domain.SLAPolicy
	err := r.pool.QueryRow(ctx, query, orgID, priority).Scan(
		&policy.OrgID,
		&policy.Priority,
		&policy.ResponseTimeHours,
		&policy.ResolutionTimeHours,
		&policy.BusinessHoursOnly,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DefaultSLAPolicy(orgID, priority), nil
		}
		return nil, err
	}
	return &policy, nil
}

func (r *slaPolicyRepository) Upsert(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        INSERT INTO sla_policies (org_id, priority, response_time_hours, resolution_time_hours, business_hours_only)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (org_id, priority) DO UPDATE
        SET response_time_hours=EXCLUDED.response_time_hours,
            resolution_time_hours=EXCLUDED.resolution_time_hours,
            business_hours_only=EXCLUDED.business_hours_only`
	_, err := r.pool.Exec(ctx, query,
		policy.OrgID,
		policy.Priority,
		policy.ResponseTimeHours,
		policy.ResolutionTimeHours,
		policy.BusinessHoursOnly,
	)
	return err
}
