package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldserve/fieldserve/internal/api/dto"
	"github.com/fieldserve/fieldserve/internal/auth"
	"github.com/fieldserve/fieldserve/internal/domain"
	"github.com/fieldserve/fieldserve/internal/lifecycle"
	apperrors "github.com/fieldserve/fieldserve/pkg/util"
)

// TicketsHandler exposes the lifecycle engine over HTTP.
type TicketsHandler struct {
	engine *lifecycle.Engine
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(engine *lifecycle.Engine) *TicketsHandler {
	return &TicketsHandler{engine: engine}
}

func requireActor(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return domain.Actor{}, apperrors.NewUnauthorized("staff required")
	}
	return principal.Actor(), nil
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.CustomerName == "" {
		return apperrors.NewValidationError("title, customer_name required", nil)
	}

	ticket, err := h.engine.CreateTicket(c.UserContext(), actor, lifecycle.CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		Priority:        req.Priority,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		DeviceModel:     req.DeviceModel,
		DeviceSerial:    req.DeviceSerial,
		LocationAddress: req.LocationAddress,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	tickets, err := h.engine.List(c.UserContext(), actor, parseListQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.engine.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.Assign(c.UserContext(), actor, c.Params("id"), req.AssigneeID, req.RequireAcceptance)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

// Accept POST /tickets/:id/accept.
func (h *TicketsHandler) Accept(c *fiber.Ctx) error {
	return h.simpleOp(c, h.engine.Accept)
}

// Decline POST /tickets/:id/decline.
func (h *TicketsHandler) Decline(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.DeclineRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.Decline(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

// Start POST /tickets/:id/start.
func (h *TicketsHandler) Start(c *fiber.Ctx) error {
	return h.simpleOp(c, h.engine.Start)
}

// RecordDiagnosis POST /tickets/:id/diagnosis.
func (h *TicketsHandler) RecordDiagnosis(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.DiagnosisRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.RecordDiagnosis(c.UserContext(), actor, c.Params("id"), lifecycle.DiagnosisInput{
		Problem:          req.Problem,
		RootCause:        req.RootCause,
		Observations:     req.Observations,
		TimeSpentMinutes: req.TimeSpentMinutes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

// SelectPath POST /tickets/:id/path.
func (h *TicketsHandler) SelectPath(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.SelectPathRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.SelectPath(c.UserContext(), actor, c.Params("id"), req.Path, req.ResolutionSummary)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

// PartsReceived POST /tickets/:id/parts-received.
func (h *TicketsHandler) PartsReceived(c *fiber.Ctx) error {
	return h.notesOp(c, h.engine.AcknowledgePartsReceived)
}

// CompleteRepair POST /tickets/:id/complete.
func (h *TicketsHandler) CompleteRepair(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CompleteRepairRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.CompleteRepair(c.UserContext(), actor, c.Params("id"), req.ResolutionSummary)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

// RecordPickup POST /tickets/:id/pickup.
func (h *TicketsHandler) RecordPickup(c *fiber.Ctx) error {
	return h.notesOp(c, h.engine.RecordPickup)
}

// RecordTransfer POST /tickets/:id/transfer.
func (h *TicketsHandler) RecordTransfer(c *fiber.Ctx) error {
	return h.notesOp(c, h.engine.RecordTransfer)
}

// RecordDelivery POST /tickets/:id/delivery.
func (h *TicketsHandler) RecordDelivery(c *fiber.Ctx) error {
	return h.notesOp(c, h.engine.RecordDelivery)
}

// DecideWarranty POST /tickets/:id/warranty.
func (h *TicketsHandler) DecideWarranty(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.WarrantyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.DecideWarranty(c.UserContext(), actor, c.Params("id"), req.WarrantyType)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

// RecordAMCRepair POST /tickets/:id/repair/amc.
func (h *TicketsHandler) RecordAMCRepair(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.AMCRepairRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.RecordAMCRepair(c.UserContext(), actor, c.Params("id"), lifecycle.AMCRepairInput{
		VendorName: req.VendorName,
		Notes:      req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

// CompleteAMCRepair POST /tickets/:id/repair/amc/complete.
func (h *TicketsHandler) CompleteAMCRepair(c *fiber.Ctx) error {
	return h.notesOp(c, h.engine.CompleteAMCRepair)
}

// RecordOEMRepair POST /tickets/:id/repair/oem.
func (h *TicketsHandler) RecordOEMRepair(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.OEMRepairRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.RecordOEMRepair(c.UserContext(), actor, c.Params("id"), lifecycle.OEMRepairInput{
		RMANumber: req.RMANumber,
		Notes:     req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

// MarkOEMReceived POST /tickets/:id/repair/oem/received.
func (h *TicketsHandler) MarkOEMReceived(c *fiber.Ctx) error {
	return h.simpleOp(c, h.engine.MarkOEMReceived)
}

// CompleteOEMRepair POST /tickets/:id/repair/oem/complete.
func (h *TicketsHandler) CompleteOEMRepair(c *fiber.Ctx) error {
	return h.notesOp(c, h.engine.CompleteOEMRepair)
}

// ReadyForDelivery POST /tickets/:id/ready-for-delivery.
func (h *TicketsHandler) ReadyForDelivery(c *fiber.Ctx) error {
	return h.simpleOp(c, h.engine.MarkReadyForDelivery)
}

// OutForDelivery POST /tickets/:id/out-for-delivery.
func (h *TicketsHandler) OutForDelivery(c *fiber.Ctx) error {
	return h.simpleOp(c, h.engine.MarkOutForDelivery)
}

// Transition POST /tickets/:id/transition.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TargetStatus == "" {
		return apperrors.NewValidationError("target_status required", nil)
	}
	ticket, err := h.engine.Transition(c.UserContext(), actor, c.Params("id"), req.TargetStatus, payloadFromRequest(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

// Cancel POST /tickets/:id/cancel.
func (h *TicketsHandler) Cancel(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CancelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.Cancel(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	return h.simpleOp(c, h.engine.Close)
}

// Delete DELETE /tickets/:id (soft delete, admin only at route level).
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	if err := h.engine.SoftDelete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *TicketsHandler) simpleOp(c *fiber.Ctx, op func(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error)) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticket, err := op(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

func (h *TicketsHandler) notesOp(c *fiber.Ctx, op func(ctx context.Context, actor domain.Actor, ticketID, notes string) (*domain.Ticket, error)) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.NotesRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ticket, err := op(c.UserContext(), actor, c.Params("id"), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DetailFromTicket(ticket)})
}

func payloadFromRequest(req dto.TransitionRequest) lifecycle.TransitionPayload {
	switch req.TargetStatus {
	case domain.StatusAssigned:
		if req.AssigneeID != "" {
			return lifecycle.AssignPayload{AssigneeID: req.AssigneeID}
		}
		return lifecycle.AcceptPayload{}
	case domain.StatusPendingAcceptance:
		return lifecycle.AssignPayload{AssigneeID: req.AssigneeID, RequireAcceptance: true}
	case domain.StatusNew:
		return lifecycle.DeclinePayload{Reason: req.Reason}
	case domain.StatusInProgress:
		if req.PartsReceived {
			return lifecycle.PartsReceivedPayload{Notes: req.Notes}
		}
		return lifecycle.StartPayload{}
	case domain.StatusCompleted:
		if req.ResolutionSummary != "" {
			return lifecycle.ResolveOnVisitPayload{Summary: req.ResolutionSummary}
		}
		return lifecycle.DeliveryPayload{Notes: req.Notes}
	case domain.StatusPendingParts:
		return lifecycle.PendingPartsPayload{Notes: req.Notes}
	case domain.StatusDevicePickup:
		return lifecycle.DevicePickupPayload{}
	case domain.StatusDeviceUnderRepair:
		return lifecycle.PickupPayload{Notes: req.Notes}
	case domain.StatusReadyForDelivery:
		return lifecycle.ReadyForDeliveryPayload{}
	case domain.StatusOutForDelivery:
		return lifecycle.OutForDeliveryPayload{}
	case domain.StatusCancelled:
		return lifecycle.CancelPayload{Reason: req.Reason}
	case domain.StatusClosed:
		return lifecycle.ClosePayload{}
	}
	return nil
}

func parseListQuery(c *fiber.Ctx) lifecycle.ListFilter {
	filter := lifecycle.ListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	if search := c.Query("q"); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
