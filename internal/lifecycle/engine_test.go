package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldserve/fieldserve/internal/domain"
	"github.com/fieldserve/fieldserve/internal/events"
)

// Tuesday inside business hours.
var testStart = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	engine  *Engine
	tickets *memTicketRepo
	staff   *memStaffRepo
	clk     *stepClock

	coordinator domain.Actor
	technician  domain.Actor

	mu     sync.Mutex
	events []events.Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		tickets: newMemTicketRepo(),
		staff:   newMemStaffRepo(),
		clk:     newStepClock(testStart),
	}

	dispatcher := events.NewInMemoryDispatcher()
	record := func(_ context.Context, event events.Event) error {
		env.mu.Lock()
		env.events = append(env.events, event)
		env.mu.Unlock()
		return nil
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventStatusChanged,
		events.EventDiagnosisAdded,
		events.EventPathSelected,
		events.EventCustodyRecorded,
		events.EventWarrantyDecided,
		events.EventTicketClosed,
	} {
		dispatcher.Subscribe(eventType, record)
	}

	coordinator := &domain.StaffMember{
		ID: "staff-coord", OrgID: "org-1", Name: "Dana Reyes",
		Email: "dana@example.com", Role: domain.StaffRoleCoordinator, Active: true,
	}
	technician := &domain.StaffMember{
		ID: "staff-tech", OrgID: "org-1", Name: "Riley Novak",
		Email: "riley@example.com", Role: domain.StaffRoleTechnician, Active: true,
	}
	require.NoError(t, env.staff.Create(context.Background(), coordinator))
	require.NoError(t, env.staff.Create(context.Background(), technician))
	env.coordinator = coordinator.Actor()
	env.technician = technician.Actor()

	env.engine = NewEngine(Dependencies{
		TicketRepo: env.tickets,
		StaffRepo:  env.staff,
		PolicyRepo: memPolicyRepo{},
		Dispatcher: dispatcher,
		Clock:      env.clk,
	})
	return env
}

func (env *testEnv) eventTypes() []events.EventType {
	env.mu.Lock()
	defer env.mu.Unlock()
	out := make([]events.EventType, 0, len(env.events))
	for _, event := range env.events {
		out = append(out, event.Type)
	}
	return out
}

func (env *testEnv) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := env.engine.CreateTicket(context.Background(), env.coordinator, CreateInput{
		Title:        "Printer jams on duplex",
		Description:  "Paper jams every duplex job",
		Priority:     domain.PriorityMedium,
		CustomerName: "Acme Stores",
		DeviceModel:  "LJ-4200",
		DeviceSerial: "SN-001",
	})
	require.NoError(t, err)
	return ticket
}

// advance to IN_PROGRESS with a recorded diagnosis
func (env *testEnv) startWork(t *testing.T) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket := env.createTicket(t)
	_, err := env.engine.Assign(ctx, env.coordinator, ticket.ID, env.technician.ID, false)
	require.NoError(t, err)
	_, err = env.engine.Start(ctx, env.technician, ticket.ID)
	require.NoError(t, err)
	updated, err := env.engine.RecordDiagnosis(ctx, env.technician, ticket.ID, DiagnosisInput{
		Problem:          "worn pickup roller",
		RootCause:        "roller past service life",
		TimeSpentMinutes: 30,
	})
	require.NoError(t, err)
	return updated
}

// advance to DEVICE_UNDER_REPAIR via the back-office path
func (env *testEnv) toUnderRepair(t *testing.T) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket := env.startWork(t)
	_, err := env.engine.SelectPath(ctx, env.technician, ticket.ID, domain.PathDeviceToBackoffice, "")
	require.NoError(t, err)
	updated, err := env.engine.RecordPickup(ctx, env.technician, ticket.ID, "picked up from site")
	require.NoError(t, err)
	return updated
}

func TestCreateTicketSetsSLADueDates(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	require.Equal(t, domain.StatusNew, ticket.Status)
	require.NotEmpty(t, ticket.TicketNumber)
	require.NotNil(t, ticket.ResponseDueAt)
	require.NotNil(t, ticket.ResolutionDueAt)
	require.Equal(t, testStart.Add(8*time.Hour), *ticket.ResponseDueAt)
	require.Equal(t, testStart.Add(48*time.Hour), *ticket.ResolutionDueAt)
	require.Empty(t, ticket.StatusHistory)
}

func TestResolvedOnVisitScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.startWork(t)

	updated, err := env.engine.SelectPath(ctx, env.technician, ticket.ID, domain.PathResolvedOnVisit, "replaced pickup roller")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, updated.Status)
	require.Equal(t, domain.PathResolvedOnVisit, *updated.ResolutionPath)
	require.Equal(t, "replaced pickup roller", *updated.ResolutionSummary)
	require.NotNil(t, updated.ResolvedAt)
	require.NotNil(t, updated.SLAResolutionMet)
	require.True(t, *updated.SLAResolutionMet)

	closed, err := env.engine.Close(ctx, env.coordinator, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	// audit trail forms an unbroken chain from NEW to CLOSED
	history := closed.StatusHistory
	require.NotEmpty(t, history)
	require.Equal(t, domain.StatusNew, history[0].FromStatus)
	require.Equal(t, domain.StatusClosed, history[len(history)-1].ToStatus)
	for i := 1; i < len(history); i++ {
		require.Equal(t, history[i-1].ToStatus, history[i].FromStatus)
		require.False(t, history[i].ChangedAt.Before(history[i-1].ChangedAt))
	}
}

func TestPendingPartsScenarioPausesSLA(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.startWork(t)

	paused, err := env.engine.SelectPath(ctx, env.technician, ticket.ID, domain.PathPendingForPart, "")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingParts, paused.Status)
	require.True(t, paused.SLAPaused)
	require.NotNil(t, paused.SLAPausedAt)

	env.clk.Advance(90 * time.Minute)
	resumed, err := env.engine.AcknowledgePartsReceived(ctx, env.technician, ticket.ID, "roller kit delivered")
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, resumed.Status)
	require.False(t, resumed.SLAPaused)
	require.Nil(t, resumed.SLAPausedAt)
	require.Equal(t, 90, resumed.TotalSLAPausedMinutes)

	done, err := env.engine.CompleteRepair(ctx, env.technician, ticket.ID, "fitted new roller")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, done.Status)
	require.Equal(t, "fitted new roller", *done.ResolutionSummary)
	require.NotNil(t, done.ResolvedAt)
}

func TestStartCannotSkipPartsAcknowledgement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.startWork(t)
	_, err := env.engine.SelectPath(ctx, env.technician, ticket.ID, domain.PathPendingForPart, "")
	require.NoError(t, err)

	env.clk.Advance(90 * time.Minute)
	_, err = env.engine.Start(ctx, env.technician, ticket.ID)
	var precondition *domain.PreconditionFailedError
	require.ErrorAs(t, err, &precondition)
	require.Contains(t, precondition.Missing, "parts_received")

	// generic transition without the parts flag is rejected the same way
	_, err = env.engine.Transition(ctx, env.technician, ticket.ID, domain.StatusInProgress, StartPayload{})
	require.ErrorAs(t, err, &precondition)

	// the pause window must survive intact until the acknowledgement
	resumed, err := env.engine.AcknowledgePartsReceived(ctx, env.technician, ticket.ID, "")
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, resumed.Status)
	require.False(t, resumed.SLAPaused)
	require.Equal(t, 90, resumed.TotalSLAPausedMinutes)
}

func TestPartsReceivedOnlyFromPendingParts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t)
	_, err := env.engine.Assign(ctx, env.coordinator, ticket.ID, env.technician.ID, false)
	require.NoError(t, err)

	_, err = env.engine.AcknowledgePartsReceived(ctx, env.technician, ticket.ID, "")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	stored, err := env.engine.Get(ctx, env.technician, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAssigned, stored.Status)
}

func TestCompleteRepairRequiresPendingPartsPath(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.startWork(t)

	_, err := env.engine.CompleteRepair(context.Background(), env.technician, ticket.ID, "done")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestBackofficeAMCScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.toUnderRepair(t)

	require.Equal(t, domain.StatusDeviceUnderRepair, ticket.Status)
	require.True(t, ticket.DeviceInCustody)
	require.Len(t, ticket.CustodyLog, 1)
	require.Equal(t, domain.CustodyPickup, ticket.CustodyLog[0].Action)

	// ready-for-delivery is gated on the warranty decision
	_, err := env.engine.MarkReadyForDelivery(ctx, env.coordinator, ticket.ID)
	var precondition *domain.PreconditionFailedError
	require.ErrorAs(t, err, &precondition)
	require.Contains(t, precondition.Missing, "warranty_decision")

	_, err = env.engine.DecideWarranty(ctx, env.coordinator, ticket.ID, domain.WarrantyAMC)
	require.NoError(t, err)

	// same decision again is a no-op, a different one is rejected
	_, err = env.engine.DecideWarranty(ctx, env.coordinator, ticket.ID, domain.WarrantyAMC)
	require.NoError(t, err)
	_, err = env.engine.DecideWarranty(ctx, env.coordinator, ticket.ID, domain.WarrantyOEM)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = env.engine.RecordAMCRepair(ctx, env.technician, ticket.ID, AMCRepairInput{VendorName: "CarePlus"})
	require.NoError(t, err)

	_, err = env.engine.MarkReadyForDelivery(ctx, env.coordinator, ticket.ID)
	require.ErrorAs(t, err, &precondition)
	require.Contains(t, precondition.Missing, "amc_repair_completed")

	_, err = env.engine.CompleteAMCRepair(ctx, env.technician, ticket.ID, "board swapped")
	require.NoError(t, err)

	ready, err := env.engine.MarkReadyForDelivery(ctx, env.coordinator, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReadyForDelivery, ready.Status)

	// hand-over between staff keeps the device in custody
	transferred, err := env.engine.RecordTransfer(ctx, env.technician, ticket.ID, "to delivery driver")
	require.NoError(t, err)
	require.True(t, transferred.DeviceInCustody)
	require.Equal(t, domain.StatusReadyForDelivery, transferred.Status)

	_, err = env.engine.MarkOutForDelivery(ctx, env.technician, ticket.ID)
	require.NoError(t, err)

	delivered, err := env.engine.RecordDelivery(ctx, env.technician, ticket.ID, "customer signed")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, delivered.Status)
	require.False(t, delivered.DeviceInCustody)
	last, ok := delivered.LastCustodyAction()
	require.True(t, ok)
	require.Equal(t, domain.CustodyDelivery, last)

	closed, err := env.engine.Close(ctx, env.coordinator, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusClosed, closed.Status)
}

func TestOEMScenarioRequiresDeviceBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.toUnderRepair(t)

	_, err := env.engine.DecideWarranty(ctx, env.coordinator, ticket.ID, domain.WarrantyOEM)
	require.NoError(t, err)
	_, err = env.engine.RecordOEMRepair(ctx, env.technician, ticket.ID, OEMRepairInput{RMANumber: "RMA-42"})
	require.NoError(t, err)

	_, err = env.engine.CompleteOEMRepair(ctx, env.technician, ticket.ID, "")
	var precondition *domain.PreconditionFailedError
	require.ErrorAs(t, err, &precondition)
	require.Contains(t, precondition.Missing, "received_back_date")

	_, err = env.engine.MarkOEMReceived(ctx, env.technician, ticket.ID)
	require.NoError(t, err)
	_, err = env.engine.CompleteOEMRepair(ctx, env.technician, ticket.ID, "unit replaced under warranty")
	require.NoError(t, err)

	ready, err := env.engine.MarkReadyForDelivery(ctx, env.coordinator, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReadyForDelivery, ready.Status)

	delivered, err := env.engine.RecordDelivery(ctx, env.technician, ticket.ID, "")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, delivered.Status)
}

func TestOutOfWarrantyNeedsNoSubWorkflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.toUnderRepair(t)

	_, err := env.engine.DecideWarranty(ctx, env.coordinator, ticket.ID, domain.WarrantyNone)
	require.NoError(t, err)

	ready, err := env.engine.MarkReadyForDelivery(ctx, env.coordinator, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReadyForDelivery, ready.Status)
}

func TestDiagnosisGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t)
	_, err := env.engine.Assign(ctx, env.coordinator, ticket.ID, env.technician.ID, false)
	require.NoError(t, err)
	_, err = env.engine.Start(ctx, env.technician, ticket.ID)
	require.NoError(t, err)

	// no path without a diagnosis
	_, err = env.engine.SelectPath(ctx, env.technician, ticket.ID, domain.PathResolvedOnVisit, "fixed")
	var precondition *domain.PreconditionFailedError
	require.ErrorAs(t, err, &precondition)
	require.Contains(t, precondition.Missing, "diagnosis")

	_, err = env.engine.RecordDiagnosis(ctx, env.technician, ticket.ID, DiagnosisInput{
		Problem: "loose cable", RootCause: "vibration", TimeSpentMinutes: 10,
	})
	require.NoError(t, err)

	_, err = env.engine.SelectPath(ctx, env.technician, ticket.ID, domain.PathPendingForPart, "")
	require.NoError(t, err)

	// path selection is one-shot
	_, err = env.engine.SelectPath(ctx, env.technician, ticket.ID, domain.PathResolvedOnVisit, "fixed")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	// diagnosis freezes once a path commits
	_, err = env.engine.AcknowledgePartsReceived(ctx, env.technician, ticket.ID, "")
	require.NoError(t, err)
	_, err = env.engine.RecordDiagnosis(ctx, env.technician, ticket.ID, DiagnosisInput{
		Problem: "other", RootCause: "other",
	})
	require.ErrorAs(t, err, &conflict)
}

func TestDiagnosisAccumulatesTimeSpent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.startWork(t)

	updated, err := env.engine.RecordDiagnosis(ctx, env.technician, ticket.ID, DiagnosisInput{
		Problem: "worn pickup roller", RootCause: "roller past service life", TimeSpentMinutes: 15,
	})
	require.NoError(t, err)
	require.Equal(t, 45, updated.TimeSpentMinutes)
	require.Equal(t, 15, updated.Diagnosis.TimeSpentMinutes)
}

func TestAssignmentAcceptanceFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t)

	pending, err := env.engine.Assign(ctx, env.coordinator, ticket.ID, env.technician.ID, true)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingAcceptance, pending.Status)
	require.Nil(t, pending.FirstResponseAt)

	// only the assignee may accept
	_, err = env.engine.Accept(ctx, env.coordinator, ticket.ID)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	env.clk.Advance(20 * time.Minute)
	accepted, err := env.engine.Accept(ctx, env.technician, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAssigned, accepted.Status)
	require.NotNil(t, accepted.FirstResponseAt)
	require.Equal(t, testStart.Add(20*time.Minute), *accepted.FirstResponseAt)
	require.NotNil(t, accepted.SLAResponseMet)
	require.True(t, *accepted.SLAResponseMet)
}

func TestDeclineClearsAssignee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t)
	_, err := env.engine.Assign(ctx, env.coordinator, ticket.ID, env.technician.ID, true)
	require.NoError(t, err)

	_, err = env.engine.Decline(ctx, env.technician, ticket.ID, "")
	var precondition *domain.PreconditionFailedError
	require.ErrorAs(t, err, &precondition)

	declined, err := env.engine.Decline(ctx, env.technician, ticket.ID, "out sick this week")
	require.NoError(t, err)
	require.Equal(t, domain.StatusNew, declined.Status)
	require.Nil(t, declined.AssignedToID)
	require.Nil(t, declined.AssignedToName)
}

func TestAssignRejectsUnknownOrInactiveStaff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t)

	_, err := env.engine.Assign(ctx, env.coordinator, ticket.ID, "staff-ghost", false)
	var precondition *domain.PreconditionFailedError
	require.ErrorAs(t, err, &precondition)

	inactive := &domain.StaffMember{
		ID: "staff-idle", OrgID: "org-1", Name: "Pat", Email: "pat@example.com",
		Role: domain.StaffRoleTechnician, Active: false,
	}
	require.NoError(t, env.staff.Create(ctx, inactive))
	_, err = env.engine.Assign(ctx, env.coordinator, ticket.ID, inactive.ID, false)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestInvalidTransitionRejected(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	_, err := env.engine.Start(context.Background(), env.technician, ticket.ID)
	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, domain.StatusNew, invalid.From)
	require.Equal(t, domain.StatusInProgress, invalid.To)
}

func TestCloseBeforeCompletedRejected(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.startWork(t)

	_, err := env.engine.Close(context.Background(), env.coordinator, ticket.ID)
	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, domain.StatusInProgress, invalid.From)
	require.Equal(t, domain.StatusClosed, invalid.To)
}

func TestTerminalTicketsAreImmutable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.startWork(t)
	_, err := env.engine.SelectPath(ctx, env.technician, ticket.ID, domain.PathResolvedOnVisit, "fixed on site")
	require.NoError(t, err)
	_, err = env.engine.Close(ctx, env.coordinator, ticket.ID)
	require.NoError(t, err)

	_, err = env.engine.Cancel(ctx, env.coordinator, ticket.ID, "changed mind")
	var immutable *domain.ImmutableError
	require.ErrorAs(t, err, &immutable)
	require.Equal(t, domain.StatusClosed, immutable.Status)
}

func TestCancelRequiresReasonAndStopsPauseClock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.startWork(t)
	_, err := env.engine.SelectPath(ctx, env.technician, ticket.ID, domain.PathPendingForPart, "")
	require.NoError(t, err)

	_, err = env.engine.Cancel(ctx, env.coordinator, ticket.ID, "  ")
	var precondition *domain.PreconditionFailedError
	require.ErrorAs(t, err, &precondition)

	env.clk.Advance(30 * time.Minute)
	cancelled, err := env.engine.Cancel(ctx, env.coordinator, ticket.ID, "customer withdrew request")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.Equal(t, "customer withdrew request", *cancelled.CancellationReason)
	require.False(t, cancelled.SLAPaused)
	require.Equal(t, 30, cancelled.TotalSLAPausedMinutes)
}

func TestCancelAfterCompletionAllowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.startWork(t)
	_, err := env.engine.SelectPath(ctx, env.technician, ticket.ID, domain.PathResolvedOnVisit, "replaced roller")
	require.NoError(t, err)

	cancelled, err := env.engine.Cancel(ctx, env.coordinator, ticket.ID, "customer disputed the work")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.Equal(t, "customer disputed the work", *cancelled.CancellationReason)
	// resolution fields survive for the audit trail
	require.Equal(t, "replaced roller", *cancelled.ResolutionSummary)

	last := cancelled.StatusHistory[len(cancelled.StatusHistory)-1]
	require.Equal(t, domain.StatusCompleted, last.FromStatus)
	require.Equal(t, domain.StatusCancelled, last.ToStatus)
}

func TestCloseBackofficeRequiresDeviceReturned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// a COMPLETED back-office ticket whose device never came back
	path := domain.PathDeviceToBackoffice
	ticket := &domain.Ticket{
		OrgID: "org-1", TicketNumber: "FS-TEST0001", Title: "stub",
		Priority: domain.PriorityMedium, Status: domain.StatusCompleted,
		CustomerName: "Acme", ResolutionPath: &path,
		DeviceInCustody: true,
		CustodyLog: []domain.CustodyEntry{
			{Action: domain.CustodyPickup, ActorID: "staff-tech", At: testStart},
		},
	}
	require.NoError(t, env.tickets.Create(ctx, ticket))

	_, err := env.engine.Close(ctx, env.coordinator, ticket.ID)
	var precondition *domain.PreconditionFailedError
	require.ErrorAs(t, err, &precondition)
	require.Contains(t, precondition.Missing, "delivery_record")
	require.Contains(t, precondition.Missing, "device_returned")
}

func TestDeliveryRequiresCustody(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ticket := &domain.Ticket{
		OrgID: "org-1", TicketNumber: "FS-TEST0002", Title: "stub",
		Priority: domain.PriorityMedium, Status: domain.StatusReadyForDelivery,
		CustomerName: "Acme",
	}
	require.NoError(t, env.tickets.Create(ctx, ticket))

	_, err := env.engine.RecordDelivery(ctx, env.technician, ticket.ID, "")
	var precondition *domain.PreconditionFailedError
	require.ErrorAs(t, err, &precondition)
	require.Contains(t, precondition.Missing, "device_in_custody")
}

func TestConcurrentWriteSurfacesConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t)
	_, err := env.engine.Assign(ctx, env.coordinator, ticket.ID, env.technician.ID, false)
	require.NoError(t, err)

	engine := NewEngine(Dependencies{
		TicketRepo: &conflictOnceRepo{TicketRepository: env.tickets},
		StaffRepo:  env.staff,
		PolicyRepo: memPolicyRepo{},
		Clock:      env.clk,
	})

	_, err = engine.Start(ctx, env.technician, ticket.ID)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	// retry after reload succeeds
	updated, err := engine.Start(ctx, env.technician, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, updated.Status)
}

func TestRacingWritersExactlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t)
	_, err := env.engine.Assign(ctx, env.coordinator, ticket.ID, env.technician.ID, false)
	require.NoError(t, err)

	// both writers load the same version before either commits
	var readers sync.WaitGroup
	readers.Add(2)
	engine := NewEngine(Dependencies{
		TicketRepo: &rendezvousRepo{TicketRepository: env.tickets, readers: &readers},
		StaffRepo:  env.staff,
		PolicyRepo: memPolicyRepo{},
		Clock:      env.clk,
	})

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := engine.Start(ctx, env.technician, ticket.ID)
			errs <- err
		}()
	}

	var successes, conflicts int
	for i := 0; i < 2; i++ {
		if err := <-errs; err == nil {
			successes++
		} else {
			var conflict *domain.ConflictError
			require.ErrorAs(t, err, &conflict)
			conflicts++
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, conflicts)

	stored, err := env.engine.Get(ctx, env.technician, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, stored.Status)
	require.Len(t, stored.StatusHistory, 2)
}

func TestOrgScopingHidesForeignTickets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t)

	outsider := domain.Actor{ID: "staff-x", Name: "Sam", Role: domain.StaffRoleAdmin, OrgID: "org-2"}
	_, err := env.engine.Get(ctx, outsider, ticket.ID)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestSoftDeleteHidesTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t)

	require.NoError(t, env.engine.SoftDelete(ctx, env.coordinator, ticket.ID))
	_, err := env.engine.Get(ctx, env.coordinator, ticket.ID)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)

	err = env.engine.SoftDelete(ctx, env.coordinator, ticket.ID)
	require.ErrorAs(t, err, &notFound)
}

func TestListFiltersByStatusAndAssignee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.createTicket(t)
	env.createTicket(t)
	_, err := env.engine.Assign(ctx, env.coordinator, first.ID, env.technician.ID, false)
	require.NoError(t, err)

	assigned, err := env.engine.List(ctx, env.coordinator, ListFilter{
		Statuses: []domain.TicketStatus{domain.StatusAssigned},
	})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	require.Equal(t, first.ID, assigned[0].ID)

	techID := env.technician.ID
	mine, err := env.engine.List(ctx, env.coordinator, ListFilter{AssigneeID: &techID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

func TestGenericTransitionRoutesPayloads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t)

	_, err := env.engine.Transition(ctx, env.coordinator, ticket.ID, domain.StatusAssigned,
		AssignPayload{AssigneeID: env.technician.ID})
	require.NoError(t, err)

	_, err = env.engine.Transition(ctx, env.technician, ticket.ID, domain.StatusInProgress, StartPayload{})
	require.NoError(t, err)

	_, err = env.engine.RecordDiagnosis(ctx, env.technician, ticket.ID, DiagnosisInput{
		Problem: "cracked hinge", RootCause: "drop damage",
	})
	require.NoError(t, err)

	updated, err := env.engine.Transition(ctx, env.technician, ticket.ID, domain.StatusCompleted,
		ResolveOnVisitPayload{Summary: "hinge replaced"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, updated.Status)

	_, err = env.engine.Transition(ctx, env.coordinator, ticket.ID, "SHIPPED", nil)
	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	_, err = env.engine.Transition(ctx, env.coordinator, ticket.ID, domain.StatusCancelled, nil)
	var precondition *domain.PreconditionFailedError
	require.ErrorAs(t, err, &precondition)
}

func TestLifecycleEventsPublished(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.startWork(t)
	_, err := env.engine.SelectPath(ctx, env.technician, ticket.ID, domain.PathResolvedOnVisit, "done")
	require.NoError(t, err)
	_, err = env.engine.Close(ctx, env.coordinator, ticket.ID)
	require.NoError(t, err)

	types := env.eventTypes()
	require.Contains(t, types, events.EventTicketCreated)
	require.Contains(t, types, events.EventTicketAssigned)
	require.Contains(t, types, events.EventStatusChanged)
	require.Contains(t, types, events.EventDiagnosisAdded)
	require.Contains(t, types, events.EventPathSelected)
	require.Contains(t, types, events.EventTicketClosed)
}
