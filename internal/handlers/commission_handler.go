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

type commissionApplicationService interface {
	UpsertConfig(ctx context.Context, adminID, coachID int64, input services.CommissionConfigInput) (*models.CommissionConfig, error)
	GetConfig(ctx context.Context, coachID int64) (*models.CommissionConfig, error)
	ResolvePending(ctx context.Context, coachID int64) (*models.PendingCommissions, error)
	CreateCoachPayment(ctx context.Context, adminID int64, input services.CreateCoachPaymentInput) (*models.CoachPayment, error)
	CompleteCoachPayment(ctx context.Context, paymentID int64, paymentDate *time.Time) (*models.CoachPayment, error)
	CancelCoachPayment(ctx context.Context, paymentID int64) (*models.CoachPayment, error)
	ListCoachPayments(ctx context.Context, coachID int64, limit, offset int) ([]models.CoachPayment, int, error)
}

type CommissionHandler struct {
	service commissionApplicationService
}

func NewCommissionHandler(service *services.CommissionService) *CommissionHandler {
	return &CommissionHandler{service: service}
}

type upsertConfigRequest struct {
	Type            string   `json:"type"`
	PercentageValue *float64 `json:"percentage_value"`
	FixedAmount     *float64 `json:"fixed_amount"`
}

type createCoachPaymentRequest struct {
	CoachID         int64    `json:"coach_id"`
	ClientPaymentID *int64   `json:"client_payment_id"`
	Amount          *float64 `json:"amount"`
	Notes           *string  `json:"notes"`
}

type updateCoachPaymentStatusRequest struct {
	Status      string `json:"status"`
	PaymentDate string `json:"payment_date"`
}

func (h *CommissionHandler) GetConfig(c *fiber.Ctx) error {
	if actorRole(c) != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	coachID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
	}

	config, err := h.service.GetConfig(c.Context(), coachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Commission config not found"})
		}
		return mapCommissionError(c, err)
	}

	return c.JSON(fiber.Map{"config": config})
}

func (h *CommissionHandler) UpsertConfig(c *fiber.Ctx) error {
	if actorRole(c) != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	adminID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	coachID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
	}

	var req upsertConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	config, err := h.service.UpsertConfig(c.Context(), adminID, coachID, services.CommissionConfigInput{
		Type:            strings.TrimSpace(req.Type),
		PercentageValue: req.PercentageValue,
		FixedAmount:     req.FixedAmount,
	})
	if err != nil {
		return mapCommissionError(c, err)
	}

	return c.JSON(fiber.Map{"config": config})
}

func (h *CommissionHandler) GetPending(c *fiber.Ctx) error {
	if actorRole(c) != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	coachID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
	}

	pending, err := h.service.ResolvePending(c.Context(), coachID)
	if err != nil {
		return mapCommissionError(c, err)
	}

	return c.JSON(fiber.Map{"pending": pending})
}

func (h *CommissionHandler) CreateCoachPayment(c *fiber.Ctx) error {
	if actorRole(c) != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	adminID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createCoachPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	payment, err := h.service.CreateCoachPayment(c.Context(), adminID, services.CreateCoachPaymentInput{
		CoachID:         req.CoachID,
		ClientPaymentID: req.ClientPaymentID,
		Amount:          req.Amount,
		Notes:           req.Notes,
	})
	if err != nil {
		return mapCommissionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"coach_payment": payment})
}

func (h *CommissionHandler) UpdateCoachPaymentStatus(c *fiber.Ctx) error {
	if actorRole(c) != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	paymentID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach payment id"})
	}

	var req updateCoachPaymentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var payment *models.CoachPayment
	switch strings.ToLower(strings.TrimSpace(req.Status)) {
	case "complete", "completed":
		var paymentDate *time.Time
		if trimmed := strings.TrimSpace(req.PaymentDate); trimmed != "" {
			parsed, err := time.Parse("2006-01-02", trimmed)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).
					JSON(fiber.Map{"error": "payment_date must be a YYYY-MM-DD date"})
			}
			paymentDate = &parsed
		}
		payment, err = h.service.CompleteCoachPayment(c.Context(), paymentID, paymentDate)
	case "cancel", "cancelled", "canceled":
		payment, err = h.service.CancelCoachPayment(c.Context(), paymentID)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Status must be completed or cancelled"})
	}
	if err != nil {
		return mapCommissionError(c, err)
	}

	return c.JSON(fiber.Map{"coach_payment": payment})
}

// ListCoachPayments is paginated. Admins may list any coach; a coach
// may list only their own ledger.
func (h *CommissionHandler) ListCoachPayments(c *fiber.Ctx) error {
	role := actorRole(c)
	if role != "admin" && role != "coach" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	coachID := actorID
	if role == "admin" {
		coachID, err = parseQueryID(strings.TrimSpace(c.Query("coach_id")))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
		}
	}

	page, limit := parsePageQuery(c)
	payments, total, err := h.service.ListCoachPayments(c.Context(), coachID, limit, (page-1)*limit)
	if err != nil {
		return mapCommissionError(c, err)
	}

	return c.JSON(fiber.Map{
		"coach_payments": payments,
		"meta":           buildPaginationMeta(page, limit, total),
	})
}

func mapCommissionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidPercentage),
		errors.Is(err, services.ErrInvalidFixedAmount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrCoachNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Coach not found"})
	case errors.Is(err, services.ErrConfigurationMissing):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrPaymentNotCompleted):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateCommission):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Client payment already commissioned"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process commission request"})
	}
}
