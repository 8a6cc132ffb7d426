package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/CoachPayBack/internal/repository"
)

type EventHandler struct {
	eventRepo *repository.EventRepository
}

func NewEventHandler(eventRepo *repository.EventRepository) *EventHandler {
	return &EventHandler{eventRepo: eventRepo}
}

type createEventRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Date  string  `json:"date"`
}

type registerForEventRequest struct {
	ClientID   *int64  `json:"client_id"`
	GuestEmail *string `json:"guest_email"`
}

func (h *EventHandler) CreateEvent(c *fiber.Ctx) error {
	if actorRole(c) != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req createEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}
	if req.Price < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Price must not be negative"})
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be a YYYY-MM-DD date"})
	}

	event, err := h.eventRepo.Create(c.Context(), repository.CreateEventInput{
		Name:  name,
		Price: req.Price,
		Date:  date,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create event"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"event": event})
}

func (h *EventHandler) ListEvents(c *fiber.Ctx) error {
	events, err := h.eventRepo.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list events"})
	}

	return c.JSON(fiber.Map{"events": events})
}

// Register records intent to attend. Free events never get a payment,
// so registration is independent of any payment record.
func (h *EventHandler) Register(c *fiber.Ctx) error {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event id"})
	}

	var req registerForEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if (req.ClientID == nil) == (req.GuestEmail == nil) {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "Provide exactly one of client_id or guest_email"})
	}
	if req.GuestEmail != nil && strings.TrimSpace(*req.GuestEmail) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "guest_email must not be empty"})
	}

	if _, err := h.eventRepo.GetByID(c.Context(), eventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Event not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load event"})
	}

	registration, err := h.eventRepo.CreateRegistration(c.Context(), repository.CreateRegistrationInput{
		EventID:    eventID,
		ClientID:   req.ClientID,
		GuestEmail: req.GuestEmail,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Client not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"registration": registration})
}
