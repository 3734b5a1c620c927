package stockrequest

import (
	"bytes"
	"encoding/json"
	"strings"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/auth"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/objectstore"

	"github.com/gofiber/fiber/v2"
)

// SourceRef accepts requested_from as "super-admin", "admin" or an admin id
// given either as a string or a JSON number.
type SourceRef string

func (r *SourceRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = SourceRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = SourceRef(n.String())
	return nil
}

type ItemRequest struct {
	ProductID   *uint  `json:"product_id" form:"product_id"`
	ProductName string `json:"product_name" form:"product_name" validate:"max=150"`
	Model       string `json:"model" form:"model" validate:"max=100"`
	Quantity    int    `json:"quantity" form:"quantity" validate:"gt=0"`
}

// CreateRequest takes items[] or the legacy single-item fields.
type CreateRequest struct {
	Items         []ItemRequest `json:"items" validate:"omitempty,dive"`
	ProductID     *uint         `json:"product_id"`
	ProductName   string        `json:"product_name" validate:"max=150"`
	Model         string        `json:"model" validate:"max=100"`
	Quantity      int           `json:"quantity"`
	RequestedFrom SourceRef     `json:"requested_from" validate:"required"`
	Notes         string        `json:"notes" validate:"max=1000"`
}

type UpdateRequest struct {
	Items         []ItemRequest `json:"items" validate:"omitempty,dive"`
	ProductID     *uint         `json:"product_id"`
	ProductName   string        `json:"product_name" validate:"max=150"`
	Model         string        `json:"model" validate:"max=100"`
	Quantity      int           `json:"quantity"`
	RequestedFrom *SourceRef    `json:"requested_from"`
	Notes         *string       `json:"notes" validate:"omitempty,max=1000"`
}

type DispatchRequest struct {
	RejectionReason string `json:"rejection_reason" form:"rejection_reason" validate:"max=500"`
	ImageURL        string `json:"image_url" form:"image_url" validate:"max=500"`
}

type ConfirmRequest struct {
	ImageURL string `json:"image_url" form:"image_url" validate:"max=500"`
}

type Handler struct {
	svc   *Service
	store objectstore.Store
}

func NewHandler(svc *Service, store objectstore.Store) *Handler {
	return &Handler{svc: svc, store: store}
}

func (h *Handler) Register(r fiber.Router) {
	g := r.Group("/stock-requests")
	g.Get("/", h.List())
	g.Get("/:id", h.Get())
	g.Post("/", auth.RequireRole(models.RoleAdmin, models.RoleAgent), h.Create())
	g.Put("/:id", h.Update())
	g.Delete("/:id", h.Delete())
	g.Post("/:id/dispatch", auth.RequireRole(models.RoleSuperAdmin, models.RoleAdmin), h.Dispatch())
	g.Post("/:id/confirm", h.Confirm())
}

func toItems(items []ItemRequest, productID *uint, productName, model string, quantity int) []ItemInput {
	if len(items) == 0 {
		if productID == nil && strings.TrimSpace(productName) == "" && quantity == 0 {
			return nil
		}
		return []ItemInput{{ProductID: productID, ProductName: productName, Model: model, Quantity: quantity}}
	}
	out := make([]ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, ItemInput{ProductID: it.ProductID, ProductName: it.ProductName, Model: it.Model, Quantity: it.Quantity})
	}
	return out
}

// GET /api/stock-requests?status=pending&view=incoming
func (h *Handler) List() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		f := ListFilter{View: c.Query("view")}
		if st := c.Query("status"); st != "" {
			switch models.RequestStatus(st) {
			case models.RequestPending, models.RequestDispatched, models.RequestConfirmed, models.RequestRejected:
				f.Status = models.RequestStatus(st)
			default:
				return apperr.Validation("unknown status %q", st)
			}
		}
		if f.View != "" && f.View != "mine" && f.View != "incoming" {
			return apperr.Validation("view must be mine or incoming")
		}

		out, err := h.svc.List(c.UserContext(), actor, f)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": out})
	}
}

func (h *Handler) Get() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		req, err := h.svc.Get(c.UserContext(), actor, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": req})
	}
}

func (h *Handler) Create() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var body CreateRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := apperr.ValidateStruct(&body); err != nil {
			return err
		}

		req, err := h.svc.Create(c.UserContext(), actor, CreateInput{
			Items:         toItems(body.Items, body.ProductID, body.ProductName, body.Model, body.Quantity),
			RequestedFrom: string(body.RequestedFrom),
			Notes:         body.Notes,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": req})
	}
}

func (h *Handler) Update() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var body UpdateRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := apperr.ValidateStruct(&body); err != nil {
			return err
		}

		in := UpdateInput{
			Items: toItems(body.Items, body.ProductID, body.ProductName, body.Model, body.Quantity),
			Notes: body.Notes,
		}
		if body.RequestedFrom != nil {
			raw := string(*body.RequestedFrom)
			in.RequestedFrom = &raw
		}

		req, err := h.svc.Update(c.UserContext(), actor, c.Params("id"), in)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": req})
	}
}

func (h *Handler) Delete() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		if err := h.svc.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "message": "stock request deleted"})
	}
}

// POST /api/stock-requests/:id/dispatch, JSON or multipart with an `image` file.
func (h *Handler) Dispatch() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var body DispatchRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return apperr.Validation("invalid request body")
			}
		}
		if err := apperr.ValidateStruct(&body); err != nil {
			return err
		}

		id := c.Params("id")
		image := body.ImageURL
		var upload objectstore.Upload
		if strings.TrimSpace(body.RejectionReason) == "" {
			upload, err = objectstore.FromRequest(c, h.store, "stock-requests/"+id+"/dispatch")
			if err != nil {
				return err
			}
			if upload.URL != "" {
				image = upload.URL
			}
		}

		req, err := h.svc.Dispatch(c.UserContext(), actor, id, DispatchInput{
			RejectionReason: body.RejectionReason,
			Image:           image,
		})
		if err != nil {
			objectstore.Discard(c.UserContext(), h.store, upload, h.svc.logger)
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": req})
	}
}

func (h *Handler) Confirm() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var body ConfirmRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return apperr.Validation("invalid request body")
			}
		}
		if err := apperr.ValidateStruct(&body); err != nil {
			return err
		}

		id := c.Params("id")
		image := body.ImageURL
		upload, err := objectstore.FromRequest(c, h.store, "stock-requests/"+id+"/confirm")
		if err != nil {
			return err
		}
		if upload.URL != "" {
			image = upload.URL
		}

		req, err := h.svc.Confirm(c.UserContext(), actor, id, ConfirmInput{Image: image})
		if err != nil {
			objectstore.Discard(c.UserContext(), h.store, upload, h.svc.logger)
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": req})
	}
}
