package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/CoachPayBack/internal/repository"
)

type PlanHandler struct {
	planRepo   *repository.PlanRepository
	clientRepo *repository.ClientRepository
}

func NewPlanHandler(planRepo *repository.PlanRepository, clientRepo *repository.ClientRepository) *PlanHandler {
	return &PlanHandler{planRepo: planRepo, clientRepo: clientRepo}
}

type createPlanRequest struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

type assignPlanRequest struct {
	PlanID *int64 `json:"plan_id"`
}

func (h *PlanHandler) CreatePlan(c *fiber.Ctx) error {
	if actorRole(c) != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req createPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}
	if req.Cost <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cost must be greater than 0"})
	}

	plan, err := h.planRepo.Create(c.Context(), name, req.Cost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create plan"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"plan": plan})
}

func (h *PlanHandler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.planRepo.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list plans"})
	}

	return c.JSON(fiber.Map{"plans": plans})
}

// AssignPlan sets or clears a client's active plan. A null plan_id
// leaves the client without a plan.
func (h *PlanHandler) AssignPlan(c *fiber.Ctx) error {
	role := actorRole(c)
	if role != "coach" && role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	clientID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	var req assignPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if role == "coach" {
		actorID, err := parseActorID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}
		client, err := h.clientRepo.GetByID(c.Context(), clientID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Client not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load client"})
		}
		if client.CoachID != actorID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		}
	}

	client, err := h.clientRepo.SetPlan(c.Context(), clientID, req.PlanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Client not found"})
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Plan not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to assign plan"})
	}

	return c.JSON(fiber.Map{"client": client})
}
