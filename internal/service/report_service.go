package service

import (
	"context"
	"time"

	"github.com/pioneer-isp/helpdesk/internal/access"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/repository"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

// ReportDays is the length of the daily ticket series.
const ReportDays = 30

// ReportService builds dashboard figures over the tickets a scope can see.
type ReportService struct {
	store repository.Store
	now   func() time.Time
}

// DayCount is the number of tickets opened on one UTC day.
type DayCount struct {
	Day   string
	Count int
}

// ReportSummary aggregates visible tickets.
type ReportSummary struct {
	Total      int
	Active     int
	Done       int
	Overdue    int
	ByStatus   map[domain.TicketStatus]int
	ByPriority map[domain.TicketPriority]int
	PerDay     []DayCount
}

// NewReportService constructs the service. A nil clock uses time.Now.
func NewReportService(store repository.Store, clock func() time.Time) *ReportService {
	if clock == nil {
		clock = time.Now
	}
	return &ReportService{store: store, now: clock}
}

// Summary counts the tickets in scope. Overdue means active with the SLA deadline passed.
func (s *ReportService) Summary(ctx context.Context, scope access.Scope) (*ReportSummary, error) {
	filter := repository.TicketFilter{Limit: repository.NoLimit}
	applyScope(&filter, scope)
	tickets, err := s.store.Repositories().Tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	tickets = scope.Filter(tickets)

	now := s.now().UTC()
	today := now.Truncate(24 * time.Hour)
	firstDay := today.AddDate(0, 0, -(ReportDays - 1))

	summary := &ReportSummary{
		Total:      len(tickets),
		ByStatus:   make(map[domain.TicketStatus]int, len(domain.TicketStatuses)),
		ByPriority: make(map[domain.TicketPriority]int, len(domain.TicketPriorities)),
		PerDay:     make([]DayCount, ReportDays),
	}
	for _, status := range domain.TicketStatuses {
		summary.ByStatus[status] = 0
	}
	for _, priority := range domain.TicketPriorities {
		summary.ByPriority[priority] = 0
	}
	for i := range summary.PerDay {
		summary.PerDay[i].Day = firstDay.AddDate(0, 0, i).Format(time.DateOnly)
	}

	for _, ticket := range tickets {
		summary.ByStatus[ticket.Status]++
		summary.ByPriority[ticket.Priority]++
		if ticket.Status.Done() {
			summary.Done++
		} else {
			summary.Active++
			if !ticket.SLADue.IsZero() && ticket.SLADue.Before(now) {
				summary.Overdue++
			}
		}
		created := ticket.CreatedAt.UTC()
		if created.Before(firstDay) {
			continue
		}
		idx := int(created.Sub(firstDay) / (24 * time.Hour))
		if idx < ReportDays {
			summary.PerDay[idx].Count++
		}
	}
	return summary, nil
}
