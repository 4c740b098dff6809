// Package access decides which tickets an actor may see.
package access

import (
	"sort"

	"github.com/pioneer-isp/helpdesk/internal/domain"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

// GroupDirectory maps a group name to the identities that belong to it.
type GroupDirectory map[string][]string

// Members returns the identities listed for group.
func (d GroupDirectory) Members(group string) []string {
	return d[group]
}

// Scope is the visibility of one authenticated actor.
type Scope struct {
	actor   string
	group   string
	admin   bool
	allowed map[string]struct{}
}

// NewScope resolves the visibility of actor in group. Members of adminGroup see
// every ticket. Everyone else sees tickets assigned to a member of their group,
// or only tickets assigned to themselves when the group lists no members.
func NewScope(actor, group, adminGroup string, directory GroupDirectory) Scope {
	s := Scope{actor: actor, group: group}
	if adminGroup != "" && group == adminGroup {
		s.admin = true
		return s
	}
	members := directory.Members(group)
	if len(members) == 0 {
		members = []string{actor}
	}
	s.allowed = make(map[string]struct{}, len(members))
	for _, m := range members {
		s.allowed[m] = struct{}{}
	}
	return s
}

// Actor returns the identity the scope was built for.
func (s Scope) Actor() string { return s.actor }

// Group returns the actor's group.
func (s Scope) Group() string { return s.group }

// IsAdmin reports whether the scope is unrestricted.
func (s Scope) IsAdmin() bool { return s.admin }

// CanView reports whether the ticket is inside the scope.
func (s Scope) CanView(ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	if s.admin {
		return true
	}
	_, ok := s.allowed[ticket.AssignedTo]
	return ok
}

// Authorize returns a permission error when the ticket is out of scope.
func (s Scope) Authorize(ticket *domain.Ticket) error {
	if s.CanView(ticket) {
		return nil
	}
	details := map[string]any{"actor": s.actor}
	if ticket != nil {
		details["ticket_key"] = ticket.Key
	}
	return apperrors.NewPermissionDenied("ticket is outside your visibility scope", details)
}

// Filter returns the visible subset, preserving order.
func (s Scope) Filter(tickets []domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if s.CanView(&tickets[i]) {
			out = append(out, tickets[i])
		}
	}
	return out
}

// Assignees returns the assignee values a query must be restricted to.
// unrestricted is true for admins, in which case the list is nil.
func (s Scope) Assignees() (names []string, unrestricted bool) {
	if s.admin {
		return nil, true
	}
	names = make([]string, 0, len(s.allowed))
	for name := range s.allowed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, false
}
