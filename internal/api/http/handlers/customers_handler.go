package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pioneer-isp/helpdesk/internal/api/dto"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/service"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

// CustomersHandler serves the ticket form prefill.
type CustomersHandler struct {
	service *service.CustomerService
}

// NewCustomersHandler constructs handler.
func NewCustomersHandler(customerService *service.CustomerService) *CustomersHandler {
	return &CustomersHandler{service: customerService}
}

// Lookup GET /api/customers/lookup?account=&name=.
func (h *CustomersHandler) Lookup(c *fiber.Ctx) error {
	result, err := h.service.Lookup(c.UserContext(), c.Query("account"), c.Query("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CustomerLookupResponse{
		Customer: customerResponse(result.Customer),
		Matches:  result.Matches,
	}})
}

// Upsert PUT /api/admin/customers/:account.
func (h *CustomersHandler) Upsert(c *fiber.Ctx) error {
	scope, err := principalScope(c)
	if err != nil {
		return err
	}
	var req dto.UpsertCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	customer, inserted, err := h.service.Upsert(c.UserContext(), scope.Actor(), domain.Customer{
		AccountNumber: c.Params("account"),
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		ServiceType:   req.ServiceType,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": customerResponse(customer)})
}

func customerResponse(customer *domain.Customer) dto.CustomerResponse {
	return dto.CustomerResponse{
		AccountNumber: customer.AccountNumber,
		Name:          customer.Name,
		Phone:         customer.Phone,
		Email:         customer.Email,
		Address:       customer.Address,
		ServiceType:   customer.ServiceType,
		Notes:         customer.Notes,
	}
}
