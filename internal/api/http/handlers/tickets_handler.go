package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pioneer-isp/helpdesk/internal/access"
	"github.com/pioneer-isp/helpdesk/internal/api/dto"
	"github.com/pioneer-isp/helpdesk/internal/audit"
	"github.com/pioneer-isp/helpdesk/internal/auth"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/lifecycle"
	"github.com/pioneer-isp/helpdesk/internal/service"
	"github.com/pioneer-isp/helpdesk/internal/sla"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

const maxPageSize = 200

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

func principalScope(c *fiber.Ctx) (access.Scope, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return access.Scope{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Scope, nil
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), scope, lifecycle.NewTicket{
		CustomerName:  req.CustomerName,
		AccountNumber: req.AccountNumber,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		Zip:           req.Zip,
		ServiceType:   req.ServiceType,
		Equipment:     req.Equipment,
		Plan:          req.Plan,
		CallSource:    req.CallSource,
		CallReason:    req.CallReason,
		Description:   req.Description,
		Priority:      req.Priority,
		AssignedTo:    req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	rows, err := h.service.ListTickets(c.UserContext(), scope, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummaryResponse, 0, len(rows))
	for i := range rows {
		items = append(items, ticketSummary(&rows[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:key.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	detail, err := h.service.GetTicket(c.UserContext(), scope, c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetailResponse{
		Ticket:      ticketResponse(&detail.Ticket),
		Standing:    standingResponse(detail.Standing),
		Notes:       eventResponses(detail.Notes),
		RecentNotes: eventResponses(detail.RecentNotes),
		History:     eventResponses(detail.History),
	}})
}

// UpdateTicket PATCH /tickets/:key.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}
	ticket, recorded, err := h.service.ApplyChanges(c.UserContext(), scope, c.Params("key"), service.TicketChanges{
		Status:     req.Status,
		Priority:   req.Priority,
		AssignedTo: req.AssignedTo,
		Note:       req.Note,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketChangeResponse{
		Ticket: ticketResponse(ticket),
		Events: eventResponses(recorded),
	}})
}

// UpdateField PUT /tickets/:key/fields/:field. A no-op returns an empty event list.
func (h *TicketsHandler) UpdateField(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	var req dto.UpdateFieldRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	field := domain.TicketField(c.Params("field"))
	ticket, event, err := h.service.UpdateField(c.UserContext(), scope, c.Params("key"), field, req.Value)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": changeResponse(ticket, event)})
}

// AddNote POST /tickets/:key/notes.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	var req dto.AddNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}
	event, err := h.service.AddNote(c.UserContext(), scope, c.Params("key"), req.Note)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": eventResponse(*event)})
}

// ListEvents GET /tickets/:key/events.
func (h *TicketsHandler) ListEvents(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	history, err := h.service.History(c.UserContext(), scope, c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponses(history)})
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.TicketStatus(strings.TrimSpace(part))
			if !status.Valid() {
				return filter, apperrors.NewInvalidEnumValue("status", string(status), domain.StatusNames())
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if c.QueryBool("active") && len(filter.Statuses) == 0 {
		filter.Statuses = append(filter.Statuses, domain.ActiveStatuses...)
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			priority := domain.TicketPriority(strings.TrimSpace(part))
			if !priority.Valid() {
				return filter, apperrors.NewInvalidEnumValue("priority", string(priority), domain.PriorityNames())
			}
			filter.Priorities = append(filter.Priorities, priority)
		}
	}
	if assignee := strings.TrimSpace(c.Query("assigned_to")); assignee != "" {
		filter.AssignedTo = &assignee
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	var err error
	if filter.CreatedFrom, err = parseTime("created_from", c.Query("created_from")); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = parseTime("created_to", c.Query("created_to")); err != nil {
		return filter, err
	}

	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func parseTime(field, val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid "+field, map[string]any{
			field:    val,
			"format": time.RFC3339,
		})
	}
	return &t, nil
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

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:            ticket.ID,
		Key:           ticket.Key,
		CustomerName:  ticket.CustomerName,
		AccountNumber: ticket.AccountNumber,
		Phone:         ticket.Phone,
		Address:       ticket.Address,
		City:          ticket.City,
		State:         ticket.State,
		Zip:           ticket.Zip,
		ServiceType:   ticket.ServiceType,
		Equipment:     ticket.Equipment,
		Plan:          ticket.Plan,
		CallSource:    ticket.CallSource,
		CallReason:    ticket.CallReason,
		Description:   ticket.Description,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		AssignedTo:    ticket.AssignedTo,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
		SLADue:        ticket.SLADue,
		ResolvedAt:    ticket.ResolvedAt,
	}
}

func ticketSummary(row *service.TicketSummary) dto.TicketSummaryResponse {
	return dto.TicketSummaryResponse{
		Key:          row.Ticket.Key,
		CustomerName: row.Ticket.CustomerName,
		Account:      row.Ticket.AccountNumber,
		ServiceType:  row.Ticket.ServiceType,
		CallReason:   row.Ticket.CallReason,
		Status:       row.Ticket.Status,
		Priority:     row.Ticket.Priority,
		AssignedTo:   row.Ticket.AssignedTo,
		CreatedAt:    row.Ticket.CreatedAt,
		SLADue:       row.Ticket.SLADue,
		Standing:     standingResponse(row.Standing),
		LatestNote:   row.LatestNote,
	}
}

func standingResponse(s sla.Standing) dto.StandingResponse {
	return dto.StandingResponse{Label: s.Label, State: string(s.State)}
}

func eventResponse(e domain.TicketEvent) dto.TicketEventResponse {
	return dto.TicketEventResponse{
		ID:        e.ID,
		Actor:     e.Actor,
		Action:    e.Action,
		From:      e.FromValue,
		To:        e.ToValue,
		Note:      e.Note,
		Message:   audit.ChangeMessage(e),
		CreatedAt: e.CreatedAt,
	}
}

func eventResponses(entries []domain.TicketEvent) []dto.TicketEventResponse {
	resp := make([]dto.TicketEventResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, eventResponse(entry))
	}
	return resp
}
