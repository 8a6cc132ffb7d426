package handlers

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/CoachPayBack/internal/repository"
)

type ClientHandler struct {
	clientRepo *repository.ClientRepository
}

func NewClientHandler(clientRepo *repository.ClientRepository) *ClientHandler {
	return &ClientHandler{clientRepo: clientRepo}
}

type createClientRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	PlanID   *int64 `json:"plan_id"`
	CoachID  int64  `json:"coach_id"`
}

func (h *ClientHandler) CreateClient(c *fiber.Ctx) error {
	role := actorRole(c)
	if role != "coach" && role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createClientRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Full name is required"})
	}
	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid email format"})
	}

	coachID := actorID
	if role == "admin" {
		if req.CoachID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coach_id is required"})
		}
		coachID = req.CoachID
	}

	client, err := h.clientRepo.Create(c.Context(), repository.CreateClientInput{
		CoachID:  coachID,
		FullName: fullName,
		Email:    strings.ToLower(parsedEmail.Address),
		PlanID:   req.PlanID,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
			case "23503":
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Coach or plan not found"})
			}
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create client"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"client": client})
}

func (h *ClientHandler) ListClients(c *fiber.Ctx) error {
	role := actorRole(c)
	if role != "coach" && role != "admin" {
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

	clients, err := h.clientRepo.ListByCoachID(c.Context(), coachID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list clients"})
	}

	return c.JSON(fiber.Map{"clients": clients})
}
