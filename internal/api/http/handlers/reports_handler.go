package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pioneer-isp/helpdesk/internal/api/dto"
	"github.com/pioneer-isp/helpdesk/internal/service"
)

// ReportsHandler serves dashboard figures.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Summary GET /api/reports/summary.
func (h *ReportsHandler) Summary(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Summary(c.UserContext(), scope)
	if err != nil {
		return err
	}

	resp := dto.ReportSummaryResponse{
		Total:      summary.Total,
		Active:     summary.Active,
		Done:       summary.Done,
		Overdue:    summary.Overdue,
		ByStatus:   make(map[string]int, len(summary.ByStatus)),
		ByPriority: make(map[string]int, len(summary.ByPriority)),
		PerDay:     make([]dto.DayCountResponse, 0, len(summary.PerDay)),
	}
	for status, count := range summary.ByStatus {
		resp.ByStatus[string(status)] = count
	}
	for priority, count := range summary.ByPriority {
		resp.ByPriority[string(priority)] = count
	}
	for _, day := range summary.PerDay {
		resp.PerDay = append(resp.PerDay, dto.DayCountResponse{Day: day.Day, Count: day.Count})
	}
	return c.JSON(fiber.Map{"data": resp})
}
