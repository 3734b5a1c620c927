package stockreturn

import (
	"strconv"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/auth"
	"solar-inventory-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateRequest struct {
	ProductID uint   `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Reason    string `json:"reason" validate:"max=500"`
}

type UpdateRequest struct {
	Quantity *int    `json:"quantity" validate:"omitempty,gt=0"`
	Reason   *string `json:"reason" validate:"omitempty,max=500"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r fiber.Router) {
	g := r.Group("/stock-returns", auth.RequireRole(models.RoleSuperAdmin, models.RoleAdmin))
	g.Get("/", h.List())
	g.Get("/:id", h.Get())
	g.Post("/", auth.RequireRole(models.RoleAdmin), h.Create())
	g.Put("/:id", h.Update())
	g.Delete("/:id", h.Delete())
	g.Post("/:id/process", auth.RequireRole(models.RoleSuperAdmin), h.Process())
}

func returnID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid stock return id")
	}
	return uint(id), nil
}

// GET /api/stock-returns?status=pending&admin_id=3&product_id=7
func (h *Handler) List() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var f ListFilter
		if st := c.Query("status"); st != "" {
			switch models.ReturnStatus(st) {
			case models.ReturnPending, models.ReturnCompleted:
				f.Status = models.ReturnStatus(st)
			default:
				return apperr.Validation("unknown status %q", st)
			}
		}
		if v := c.QueryInt("admin_id"); v > 0 {
			f.AdminID = uint(v)
		}
		if v := c.QueryInt("product_id"); v > 0 {
			f.ProductID = uint(v)
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
		id, err := returnID(c)
		if err != nil {
			return err
		}
		ret, err := h.svc.Get(c.UserContext(), actor, id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": ret})
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

		ret, err := h.svc.Create(c.UserContext(), actor, CreateInput{
			ProductID: body.ProductID,
			Quantity:  body.Quantity,
			Reason:    body.Reason,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": ret})
	}
}

func (h *Handler) Update() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := returnID(c)
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

		ret, err := h.svc.Update(c.UserContext(), actor, id, UpdateInput{Quantity: body.Quantity, Reason: body.Reason})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": ret})
	}
}

func (h *Handler) Delete() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := returnID(c)
		if err != nil {
			return err
		}
		if err := h.svc.Delete(c.UserContext(), actor, id); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "message": "stock return deleted"})
	}
}

func (h *Handler) Process() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := returnID(c)
		if err != nil {
			return err
		}
		ret, err := h.svc.Process(c.UserContext(), actor, id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": ret})
	}
}
