package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pioneer-isp/helpdesk/internal/api/dto"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/service"
)

// AssignmentHandler exposes the assignment shortcuts.
type AssignmentHandler struct {
	service *service.AssignmentService
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: assignmentService}
}

// Claim POST /tickets/:key/claim.
func (h *AssignmentHandler) Claim(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	ticket, event, err := h.service.SelfAssignTicket(c.UserContext(), scope, c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": changeResponse(ticket, event)})
}

// AssignToGroup POST /tickets/:key/assign-group.
func (h *AssignmentHandler) AssignToGroup(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	ticket, event, err := h.service.AssignTicketToGroup(c.UserContext(), scope, c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": changeResponse(ticket, event)})
}

func changeResponse(ticket *domain.Ticket, event *domain.TicketEvent) dto.TicketChangeResponse {
	recorded := []domain.TicketEvent{}
	if event != nil {
		recorded = append(recorded, *event)
	}
	return dto.TicketChangeResponse{
		Ticket: ticketResponse(ticket),
		Events: eventResponses(recorded),
	}
}
