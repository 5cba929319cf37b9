package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/turno-service/internal/api/dto"
	"github.com/spec-kit/turno-service/internal/config"
	"github.com/spec-kit/turno-service/internal/service"
	apperrors "github.com/spec-kit/turno-service/pkg/util"
)

// CafeteriasHandler serves the cafeteria catalogue and the queue projections.
type CafeteriasHandler struct {
	cafeterias *service.CafeteriaService
	query      *service.QueryService
	qr         *service.QRService
	turnoCfg   config.TurnoConfig
	qrCfg      config.QRConfig
}

// NewCafeteriasHandler constructs handler.
func NewCafeteriasHandler(cafeterias *service.CafeteriaService, query *service.QueryService, qr *service.QRService, turnoCfg config.TurnoConfig, qrCfg config.QRConfig) *CafeteriasHandler {
	return &CafeteriasHandler{cafeterias: cafeterias, query: query, qr: qr, turnoCfg: turnoCfg, qrCfg: qrCfg}
}

// List GET /cafeterias.
func (h *CafeteriasHandler) List(c *fiber.Ctx) error {
	items, err := h.cafeterias.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.CafeteriaResponse, 0, len(items))
	for i := range items {
		out = append(out, cafeteriaResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get GET /cafeterias/:id.
func (h *CafeteriasHandler) Get(c *fiber.Ctx) error {
	cafeteria, err := h.cafeterias.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cafeteriaResponse(cafeteria)})
}

// Create POST /admin/cafeterias.
func (h *CafeteriasHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCafeteriaRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name is required", nil)
	}
	cafeteria, err := h.cafeterias.Create(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": cafeteriaResponse(cafeteria)})
}

// SetState POST /admin/cafeterias/:id/state.
func (h *CafeteriasHandler) SetState(c *fiber.Ctx) error {
	var req dto.SetCafeteriaStateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	cafeteria, err := h.cafeterias.SetState(c.UserContext(), c.Params("id"), req.State, adminActor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cafeteriaResponse(cafeteria)})
}

// Current GET /cafeterias/:id/current.
func (h *CafeteriasHandler) Current(c *fiber.Ctx) error {
	ticket, err := h.query.CurrentTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if ticket == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, h.turnoCfg.TicketTTL())})
}

// Queue GET /cafeterias/:id/queue.
func (h *CafeteriasHandler) Queue(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")
	current, err := h.query.CurrentTicket(ctx, id)
	if err != nil {
		return err
	}
	rest, err := h.query.RemainingQueue(ctx, id)
	if err != nil {
		return err
	}
	resp := dto.QueueResponse{Queue: ticketResponses(rest, h.turnoCfg.TicketTTL())}
	if current != nil {
		cur := ticketResponse(current, h.turnoCfg.TicketTTL())
		resp.Current = &cur
	}
	return c.JSON(fiber.Map{"data": resp})
}

// QR GET /admin/cafeterias/:id/qr returns the rotating entry code.
func (h *CafeteriasHandler) QR(c *fiber.Ctx) error {
	code, err := h.qr.CurrentCode(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := dto.QRCodeResponse{
		CafeteriaID: c.Params("id"),
		Code:        code,
		TTLSeconds:  h.qrCfg.TTLSeconds,
	}
	return c.JSON(fiber.Map{"data": resp})
}
