package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pioneer-isp/helpdesk/internal/api/dto"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/service"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

// StaffHandler exposes staff/auth endpoints.
type StaffHandler struct {
	authService  *service.AuthService
	staffService *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{authService: authService, staffService: staffService}
}

// Login handles POST /auth/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	staff, token, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": staffResponse(staff),
			"auth":  dto.AuthResponse{Token: token.Value, ExpiresAt: token.ExpiresAt},
		},
	})
}

// Me handles GET /api/me.
func (h *StaffHandler) Me(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	names, unrestricted := scope.Assignees()
	return c.JSON(fiber.Map{"data": fiber.Map{
		"username":     scope.Actor(),
		"group":        scope.Group(),
		"admin":        scope.IsAdmin(),
		"unrestricted": unrestricted,
		"visible_as":   names,
	}})
}

// Assignees handles GET /api/assignees.
func (h *StaffHandler) Assignees(c *fiber.Ctx) error {
	set, err := h.staffService.Assignees(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": set.Names()})
}

// Groups handles GET /api/groups.
func (h *StaffHandler) Groups(c *fiber.Ctx) error {
	groups, err := h.staffService.Groups(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": groups})
}

// ListStaff handles GET /api/admin/staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	list, err := h.staffService.ListStaff(c.UserContext(), scope, parseStaffListFilters(c))
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(list))
	for i := range list {
		resp = append(resp, staffResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CreateStaff handles POST /api/admin/staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	staff, err := h.staffService.CreateStaff(c.UserContext(), scope, service.CreateStaffInput{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Group:       req.Group,
		Password:    req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(staff)})
}

// SetActive handles PATCH /api/admin/staff/:username.
func (h *StaffHandler) SetActive(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	var req dto.SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Active == nil {
		return apperrors.NewValidationError("active required", nil)
	}
	staff, err := h.staffService.SetActive(c.UserContext(), scope, c.Params("username"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

// DeleteStaff handles DELETE /api/admin/staff/:username.
func (h *StaffHandler) DeleteStaff(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	if err := h.staffService.DeleteStaff(c.UserContext(), scope, c.Params("username")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseBoolQuery(c *fiber.Ctx, key string) *bool {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return &parsed
		}
	}
	return nil
}

func parseStaffListFilters(c *fiber.Ctx) service.StaffListFilters {
	var filters service.StaffListFilters
	if group := strings.TrimSpace(c.Query("group")); group != "" {
		filters.Group = &group
	}
	filters.Active = parseBoolQuery(c, "active")
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filters.Offset = (page - 1) * pageSize
	filters.Limit = pageSize
	return filters
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:          staff.ID,
		Username:    staff.Username,
		DisplayName: staff.DisplayName,
		Group:       staff.Group,
		Active:      staff.Active,
		CreatedAt:   staff.CreatedAt,
	}
}
