package service

import (
	"context"

	"github.com/pioneer-isp/helpdesk/internal/access"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

// AssignmentService handles the assignment shortcuts offered next to the full edit form.
type AssignmentService struct {
	tickets *TicketService
}

// NewAssignmentService creates the service.
func NewAssignmentService(tickets *TicketService) *AssignmentService {
	return &AssignmentService{tickets: tickets}
}

// SelfAssignTicket assigns a visible ticket to the acting staff member.
func (s *AssignmentService) SelfAssignTicket(ctx context.Context, scope access.Scope, key string) (*domain.Ticket, *domain.TicketEvent, error) {
	if scope.Actor() == "" {
		return nil, nil, apperrors.NewUnauthorized("staff required")
	}
	return s.tickets.UpdateField(ctx, scope, key, domain.FieldAssignedTo, scope.Actor())
}

// AssignTicketToGroup hands a visible ticket to the actor's own group.
func (s *AssignmentService) AssignTicketToGroup(ctx context.Context, scope access.Scope, key string) (*domain.Ticket, *domain.TicketEvent, error) {
	if scope.Group() == "" {
		return nil, nil, apperrors.NewValidationError("actor has no group", map[string]any{"actor": scope.Actor()})
	}
	return s.tickets.UpdateField(ctx, scope, key, domain.FieldAssignedTo, scope.Group())
}
