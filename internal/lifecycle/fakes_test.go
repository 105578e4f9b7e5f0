package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fieldserve/fieldserve/internal/domain"
	"github.com/fieldserve/fieldserve/internal/repository"
)

// stepClock is a manually advanced clock for deterministic tests.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock(start time.Time) *stepClock {
	return &stepClock{now: start.UTC()}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memTicketRepo reproduces the conditional-write contract of the SQL
// repository against an in-memory map.
type memTicketRepo struct {
	mu   sync.Mutex
	seq  int
	byID map[string]*domain.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{byID: make(map[string]*domain.Ticket)}
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	raw, err := json.Marshal(t)
	if err != nil {
		panic(err)
	}
	var out domain.Ticket
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("tkt-%d", r.seq)
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	r.byID[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, orgID, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok || stored.OrgID != orgID || stored.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	return cloneTicket(stored), nil
}

func (r *memTicketRepo) UpdateConditional(_ context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[ticket.ID]
	if !ok || stored.OrgID != ticket.OrgID || stored.DeletedAt != nil {
		return repository.ErrVersionConflict
	}
	if stored.Status != expectedStatus || stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	ticket.Version = expectedVersion + 1
	r.byID[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *memTicketRepo) SoftDelete(_ context.Context, orgID, id string, deletedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok || stored.OrgID != orgID || stored.DeletedAt != nil {
		return repository.ErrNotFound
	}
	stored.DeletedAt = &deletedAt
	return nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, stored := range r.byID {
		if stored.OrgID != filter.OrgID || stored.DeletedAt != nil {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, stored.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, stored.Priority) {
			continue
		}
		if filter.AssigneeID != nil && (stored.AssignedToID == nil || *stored.AssignedToID != *filter.AssigneeID) {
			continue
		}
		if filter.SearchTerm != nil {
			needle := strings.ToLower(*filter.SearchTerm)
			if !strings.Contains(strings.ToLower(stored.Title), needle) &&
				!strings.Contains(strings.ToLower(stored.CustomerName), needle) {
				continue
			}
		}
		result = append(result, *cloneTicket(stored))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}

// conflictOnceRepo forces one version conflict to exercise the engine's
// concurrent-write mapping.
type conflictOnceRepo struct {
	repository.TicketRepository
	mu    sync.Mutex
	fired bool
}

func (r *conflictOnceRepo) UpdateConditional(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus, expectedVersion int64) error {
	r.mu.Lock()
	if !r.fired {
		r.fired = true
		r.mu.Unlock()
		return repository.ErrVersionConflict
	}
	r.mu.Unlock()
	return r.TicketRepository.UpdateConditional(ctx, ticket, expectedStatus, expectedVersion)
}

// rendezvousRepo blocks every GetByID until the expected number of readers
// have loaded the same snapshot, forcing a genuine stale-write race.
type rendezvousRepo struct {
	repository.TicketRepository
	readers *sync.WaitGroup
}

func (r *rendezvousRepo) GetByID(ctx context.Context, orgID, id string) (*domain.Ticket, error) {
	ticket, err := r.TicketRepository.GetByID(ctx, orgID, id)
	r.readers.Done()
	r.readers.Wait()
	return ticket, err
}

type memStaffRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.StaffMember
}

func newMemStaffRepo() *memStaffRepo {
	return &memStaffRepo{byID: make(map[string]*domain.StaffMember)}
}

func (r *memStaffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *staff
	r.byID[staff.ID] = &copied
	return nil
}

func (r *memStaffRepo) GetByID(_ context.Context, orgID, id string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.byID[id]
	if !ok || staff.OrgID != orgID {
		return nil, repository.ErrNotFound
	}
	copied := *staff
	return &copied, nil
}

func (r *memStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, staff := range r.byID {
		if strings.EqualFold(staff.Email, email) {
			copied := *staff
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memStaffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.StaffMember
	for _, staff := range r.byID {
		if staff.OrgID == filter.OrgID {
			result = append(result, *staff)
		}
	}
	return result, nil
}

type memPolicyRepo struct{}

func (memPolicyRepo) GetByPriority(_ context.Context, orgID string, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	return domain.DefaultSLAPolicy(orgID, priority), nil
}

func (memPolicyRepo) Upsert(_ context.Context, _ *domain.SLAPolicy) error {
	return nil
}
