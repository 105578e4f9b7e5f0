package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldserve/fieldserve/internal/domain"
)

// Sentinel errors surfaced to the lifecycle engine.
var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("conditional update matched no row")
)

// TicketFilter captures listing parameters. All queries are org-scoped.
type TicketFilter struct {
	OrgID       string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	AssigneeID  *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence. The aggregate is stored
// as one row with history, custody log, diagnosis and repair records in
// JSONB columns so a single UPDATE commits state and both logs together.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Ticket, error)
	// UpdateConditional persists the aggregate only if the stored row still
	// carries expectedStatus and expectedVersion; otherwise it returns
	// ErrVersionConflict and leaves the row untouched.
	UpdateConditional(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus, expectedVersion int64) error
	SoftDelete(ctx context.Context, orgID, id string, deletedAt time.Time) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// ticketDoc is the JSONB-backed portion of the aggregate.
type ticketDoc struct {
	Diagnosis     *domain.Diagnosis     `json:"diagnosis,omitempty"`
	AMCRepair     *domain.AMCRepair     `json:"amc_repair,omitempty"`
	OEMRepair     *domain.OEMRepair     `json:"oem_repair,omitempty"`
	CustodyLog    []domain.CustodyEntry `json:"custody_log"`
	StatusHistory []domain.StatusChange `json:"status_history"`
}

const ticketColumns = `id, org_id, ticket_number, title, description, priority, status,
       customer_name, customer_phone, device_model, device_serial, location_address,
       assigned_to_id, assigned_to_name,
       time_spent_minutes, resolution_path, resolution_summary, warranty_type,
       device_in_custody, doc,
       sla_paused, sla_paused_at, total_sla_paused_minutes,
       response_due_at, resolution_due_at, first_response_at, resolved_at,
       sla_response_met, sla_resolution_met,
       cancellation_reason, version, created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	doc, err := marshalDoc(ticket)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (org_id, ticket_number, title, description, priority, status,
            customer_name, customer_phone, device_model, device_serial, location_address,
            assigned_to_id, assigned_to_name,
            time_spent_minutes, resolution_path, resolution_summary, warranty_type,
            device_in_custody, doc,
            sla_paused, sla_paused_at, total_sla_paused_minutes,
            response_due_at, resolution_due_at, first_response_at, resolved_at,
            sla_response_met, sla_resolution_met, cancellation_reason, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,
                $20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.OrgID,
		ticket.TicketNumber,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.CustomerName,
		ticket.CustomerPhone,
		ticket.DeviceModel,
		ticket.DeviceSerial,
		ticket.LocationAddress,
		ticket.AssignedToID,
		ticket.AssignedToName,
		ticket.TimeSpentMinutes,
		ticket.ResolutionPath,
		ticket.ResolutionSummary,
		ticket.WarrantyType,
		ticket.DeviceInCustody,
		doc,
		ticket.SLAPaused,
		ticket.SLAPausedAt,
		ticket.TotalSLAPausedMinutes,
		ticket.ResponseDueAt,
		ticket.ResolutionDueAt,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.SLAResponseMet,
		ticket.SLAResolutionMet,
		ticket.CancellationReason,
		ticket.Version,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 AND org_id=$2 AND deleted_at IS NULL`, ticketColumns)
	row := r.pool.QueryRow(ctx, query, id, orgID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) UpdateConditional(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus, expectedVersion int64) error {
	doc, err := marshalDoc(ticket)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET status=$1, assigned_to_id=$2, assigned_to_name=$3,
            time_spent_minutes=$4, resolution_path=$5, resolution_summary=$6,
            warranty_type=$7, device_in_custody=$8, doc=$9,
            sla_paused=$10, sla_paused_at=$11, total_sla_paused_minutes=$12,
            first_response_at=$13, resolved_at=$14,
            sla_response_met=$15, sla_resolution_met=$16,
            cancellation_reason=$17, closed_at=$18,
            version=version+1, updated_at=NOW()
        WHERE id=$19 AND org_id=$20 AND status=$21 AND version=$22 AND deleted_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.AssignedToID,
		ticket.AssignedToName,
		ticket.TimeSpentMinutes,
		ticket.ResolutionPath,
		ticket.ResolutionSummary,
		ticket.WarrantyType,
		ticket.DeviceInCustody,
		doc,
		ticket.SLAPaused,
		ticket.SLAPausedAt,
		ticket.TotalSLAPausedMinutes,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.SLAResponseMet,
		ticket.SLAResolutionMet,
		ticket.CancellationReason,
		ticket.ClosedAt,
		ticket.ID,
		ticket.OrgID,
		expectedStatus,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	ticket.Version = expectedVersion + 1
	return nil
}

func (r *ticketRepository) SoftDelete(ctx context.Context, orgID, id string, deletedAt time.Time) error {
	const query = `UPDATE tickets SET deleted_at=$1, updated_at=NOW() WHERE id=$2 AND org_id=$3 AND deleted_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, deletedAt, id, orgID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"deleted_at IS NULL"}
	args := []any{filter.OrgID}
	clauses = append(clauses, "org_id=$1")

	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(customer_name) LIKE %s OR LOWER(device_serial) LIKE %s)", placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func marshalDoc(ticket *domain.Ticket) ([]byte, error) {
	doc := ticketDoc{
		Diagnosis:     ticket.Diagnosis,
		AMCRepair:     ticket.AMCRepair,
		OEMRepair:     ticket.OEMRepair,
		CustodyLog:    ticket.CustodyLog,
		StatusHistory: ticket.StatusHistory,
	}
	if doc.CustodyLog == nil {
		doc.CustodyLog = []domain.CustodyEntry{}
	}
	if doc.StatusHistory == nil {
		doc.StatusHistory = []domain.StatusChange{}
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal ticket doc: %w", err)
	}
	return payload, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket domain.Ticket
		rawDoc []byte
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.OrgID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CustomerName,
		&ticket.CustomerPhone,
		&ticket.DeviceModel,
		&ticket.DeviceSerial,
		&ticket.LocationAddress,
		&ticket.AssignedToID,
		&ticket.AssignedToName,
		&ticket.TimeSpentMinutes,
		&ticket.ResolutionPath,
		&ticket.ResolutionSummary,
		&ticket.WarrantyType,
		&ticket.DeviceInCustody,
		&rawDoc,
		&ticket.SLAPaused,
		&ticket.SLAPausedAt,
		&ticket.TotalSLAPausedMinutes,
		&ticket.ResponseDueAt,
		&ticket.ResolutionDueAt,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.SLAResponseMet,
		&ticket.SLAResolutionMet,
		&ticket.CancellationReason,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	var doc ticketDoc
	if len(rawDoc) > 0 {
		if err := json.Unmarshal(rawDoc, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal ticket doc: %w", err)
		}
	}
	ticket.Diagnosis = doc.Diagnosis
	ticket.AMCRepair = doc.AMCRepair
	ticket.OEMRepair = doc.OEMRepair
	ticket.CustodyLog = doc.CustodyLog
	ticket.StatusHistory = doc.StatusHistory
	return &ticket, nil
}
