package handlers

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	ledgerws "github.com/saeid-a/CoachPayBack/internal/websocket"
	"github.com/saeid-a/CoachPayBack/pkg/utils"
)

// LedgerFeedHandler upgrades admin and coach dashboard connections onto
// the coach payment event feed.
type LedgerFeedHandler struct {
	hub       *ledgerws.Hub
	jwtSecret string
}

func NewLedgerFeedHandler(hub *ledgerws.Hub, jwtSecret string) *LedgerFeedHandler {
	return &LedgerFeedHandler{hub: hub, jwtSecret: jwtSecret}
}

// WebSocketAuth authenticates the upgrade request. Browsers cannot set
// headers on websocket dials, so the token arrives as a query param.
func (h *LedgerFeedHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
	}

	claims, err := utils.ValidateToken(token, h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}
	if claims.Role != "admin" && claims.Role != "coach" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *LedgerFeedHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, ok := conn.Locals("user_id").(string)
	if !ok {
		_ = conn.Close()
		return
	}
	role, _ := conn.Locals("role").(string)

	client := ledgerws.NewClient(h.hub, conn, userID, role)
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump()
}
