package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachPayBack/internal/models"
	"github.com/saeid-a/CoachPayBack/internal/services"
)

type paymentApplicationService interface {
	CreatePayment(ctx context.Context, input services.CreatePaymentInput) (*models.Payment, error)
	UpdateStatus(ctx context.Context, paymentID int64, requestedStatus string) (*models.Payment, error)
	ListClientHistory(ctx context.Context, clientID int64) ([]models.PaymentDetail, error)
	ListGuestHistory(ctx context.Context, guestEmail string) ([]models.PaymentDetail, error)
}

type PaymentHandler struct {
	service paymentApplicationService
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type createPaymentRequest struct {
	ClientID   *int64  `json:"client_id"`
	GuestEmail *string `json:"guest_email"`
	Amount     float64 `json:"amount"`
	PaidOn     string  `json:"paid_on"`
}

type updatePaymentStatusRequest struct {
	Status string `json:"status"`
}

func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var paidOn time.Time
	if trimmed := strings.TrimSpace(req.PaidOn); trimmed != "" {
		parsed, err := time.Parse("2006-01-02", trimmed)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "paid_on must be a YYYY-MM-DD date"})
		}
		paidOn = parsed
	}

	payment, err := h.service.CreatePayment(c.Context(), services.CreatePaymentInput{
		ClientID:   req.ClientID,
		GuestEmail: req.GuestEmail,
		Amount:     req.Amount,
		PaidOn:     paidOn,
	})
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payment": payment})
}

// GetHistory renders a payer's payments annotated with plan/event/general
// categories. Coaches and admins use it for reporting.
func (h *PaymentHandler) GetHistory(c *fiber.Ctx) error {
	role := actorRole(c)
	if role != "coach" && role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	clientIDQuery := strings.TrimSpace(c.Query("client_id"))
	guestEmail := strings.TrimSpace(c.Query("guest_email"))
	if (clientIDQuery == "") == (guestEmail == "") {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "Provide exactly one of client_id or guest_email"})
	}

	var details []models.PaymentDetail
	if clientIDQuery != "" {
		clientID, err := parseQueryID(clientIDQuery)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
		}
		details, err = h.service.ListClientHistory(c.Context(), clientID)
		if err != nil {
			return mapPaymentError(c, err)
		}
	} else {
		var err error
		details, err = h.service.ListGuestHistory(c.Context(), guestEmail)
		if err != nil {
			return mapPaymentError(c, err)
		}
	}

	return c.JSON(fiber.Map{"payments": details})
}

func (h *PaymentHandler) UpdateStatus(c *fiber.Ctx) error {
	role := actorRole(c)
	if role != "coach" && role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	paymentID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment id"})
	}

	var req updatePaymentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	payment, err := h.service.UpdateStatus(c.Context(), paymentID, req.Status)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.JSON(fiber.Map{"payment": payment})
}

func parseQueryID(value string) (int64, error) {
	id, err := parseInt64(value)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func mapPaymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrClientNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Client not found"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process payment request"})
	}
}
