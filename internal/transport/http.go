package transport

import (
	"errors"
	"log/slog"

	"golang-notify-dispatch/internal/app"
	"golang-notify-dispatch/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handler holds all HTTP handlers for the notification dispatch service.
type Handler struct {
	svc *app.NotifyService
	log *slog.Logger
}

// NewHandler wires up a Handler with its dependencies.
func NewHandler(svc *app.NotifyService, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register mounts all routes onto the given Fiber router.
func (h *Handler) Register(router fiber.Router) {
	router.Post("/notifications", h.CreateNotification)
	router.Post("/dispatch", h.DispatchNow)
	router.Get("/notifications/:id", h.GetNotification)
}

type itemRequest struct {
	Recipient    string            `json:"recipient"`
	Message      string            `json:"message"`
	OTP          string            `json:"otp,omitempty"`
	TemplateName string            `json:"template_name,omitempty"`
	Subject      string            `json:"subject,omitempty"`
	CC           []string          `json:"cc,omitempty"`
	BCC          []string          `json:"bcc,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`
}

type notificationRequest struct {
	Channel     string        `json:"channel"`
	MessageType string        `json:"message_type,omitempty"`
	SenderID    string        `json:"sender_id,omitempty"`
	FromEmail   string        `json:"from_email,omitempty"`
	Subject     string        `json:"subject,omitempty"`
	PEID        string        `json:"pe_id,omitempty"`
	TemplateID  string        `json:"template_id,omitempty"`
	Items       []itemRequest `json:"items"`
}

type createNotificationResponse struct {
	NotificationID string `json:"notification_id"`
	Items          int    `json:"items"`
}

// buildNotification maps the request DTO onto a domain notification.
func buildNotification(req notificationRequest) (*domain.Notification, error) {
	var n *domain.Notification

	switch domain.Channel(req.Channel) {
	case domain.ChannelSMS:
		messageType := domain.MessageType(req.MessageType)
		if messageType == "" {
			messageType = domain.TypeTransactional
		}
		switch messageType {
		case domain.TypeTransactional, domain.TypePromotional, domain.TypeOTP:
		default:
			return nil, errors.New("message_type must be transactional, promotional or otp")
		}
		n = domain.NewSMSNotification(messageType, req.SenderID)
		n.DLT = domain.DLTData{PEID: req.PEID, TemplateID: req.TemplateID}

	case domain.ChannelEmail:
		n = domain.NewEmailNotification(req.FromEmail, req.Subject)

	default:
		return nil, errors.New("channel must be sms or email")
	}

	for _, it := range req.Items {
		n.AddItem(&domain.Item{
			Recipient:    it.Recipient,
			Message:      it.Message,
			OTP:          it.OTP,
			TemplateName: it.TemplateName,
			Subject:      it.Subject,
			CC:           it.CC,
			BCC:          it.BCC,
			Variables:    it.Variables,
			Status:       domain.StatusPending,
		})
	}

	return n, nil
}

// CreateNotification accepts a notification and saves it to the outbox for
// asynchronous dispatch.
//
// POST /notifications
func (h *Handler) CreateNotification(c *fiber.Ctx) error {
	var req notificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if len(req.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "at least one item is required"})
	}

	n, err := buildNotification(req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.svc.CreateNotification(c.Context(), n); err != nil {
		h.log.Error("create notification", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusAccepted).JSON(createNotificationResponse{
		NotificationID: n.ID.String(),
		Items:          len(n.Items),
	})
}

// DispatchNow runs the dispatch pipeline synchronously and returns the
// structured result. Validation rejections come back as 200 with
// success=false; capability and configuration violations map to 4xx/5xx.
//
// POST /dispatch
func (h *Handler) DispatchNow(c *fiber.Ctx) error {
	var req notificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	n, err := buildNotification(req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.svc.DispatchNow(c.Context(), n)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedCapability):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, domain.ErrConfiguration):
			h.log.Error("dispatch configuration error", "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		default:
			h.log.Error("dispatch failed", "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
		}
	}

	return c.JSON(result)
}

type itemStateResponse struct {
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
	ExtID     string `json:"ext_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type notificationResponse struct {
	NotificationID string              `json:"notification_id"`
	Channel        string              `json:"channel"`
	MessageType    string              `json:"message_type,omitempty"`
	Items          []itemStateResponse `json:"items"`
}

// GetNotification returns the stored state of a notification and its items.
//
// GET /notifications/:id
func (h *Handler) GetNotification(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a valid UUID"})
	}

	n, err := h.svc.GetNotification(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "notification not found"})
		}
		h.log.Error("get notification", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	resp := notificationResponse{
		NotificationID: n.ID.String(),
		Channel:        string(n.Channel),
		MessageType:    string(n.MessageType),
	}
	for _, item := range n.Items {
		resp.Items = append(resp.Items, itemStateResponse{
			Recipient: item.Recipient,
			Status:    string(item.Status),
			ExtID:     item.ExtID,
			Error:     item.Error,
		})
	}

	return c.JSON(resp)
}
