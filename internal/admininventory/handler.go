package admininventory

import (
	"strconv"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/auth"
	"solar-inventory-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SetRequest struct {
	AdminID   uint   `json:"admin_id" validate:"required"`
	ProductID uint   `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
	Notes     string `json:"notes" validate:"max=500"`
}

type UpdateRequest struct {
	Quantity *int   `json:"quantity" validate:"required,gte=0"`
	Notes    string `json:"notes" validate:"max=500"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r fiber.Router) {
	g := r.Group("/admin-inventory")
	g.Get("/", h.List())
	g.Get("/admin/:adminId", h.ForOwner())
	g.Get("/:id", h.Get())

	manage := auth.RequireRole(models.RoleSuperAdmin)
	g.Post("/", manage, h.Set())
	g.Put("/:id", manage, h.Update())
	g.Delete("/:id", manage, h.Delete())
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return uint(id), nil
}

// GET /api/admin-inventory?admin_id=3&product_id=7
func (h *Handler) List() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var f ListFilter
		if v := c.QueryInt("admin_id"); v > 0 {
			f.AdminID = uint(v)
		}
		if v := c.QueryInt("product_id"); v > 0 {
			f.ProductID = uint(v)
		}
		rows, err := h.svc.List(c.UserContext(), actor, f)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": rows})
	}
}

func (h *Handler) ForOwner() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		ownerID, err := paramID(c, "adminId")
		if err != nil {
			return err
		}
		rows, err := h.svc.ForOwner(c.UserContext(), actor, ownerID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": rows})
	}
}

func (h *Handler) Get() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		row, err := h.svc.Get(c.UserContext(), actor, id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": row})
	}
}

func (h *Handler) Set() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var body SetRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := apperr.ValidateStruct(&body); err != nil {
			return err
		}
		out, err := h.svc.Set(c.UserContext(), actor, SetInput{
			AdminID:   body.AdminID,
			ProductID: body.ProductID,
			Quantity:  body.Quantity,
			Notes:     body.Notes,
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": out})
	}
}

func (h *Handler) Update() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
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
		out, err := h.svc.Update(c.UserContext(), actor, id, *body.Quantity, body.Notes)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": out})
	}
}

func (h *Handler) Delete() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		out, err := h.svc.Delete(c.UserContext(), actor, id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": out})
	}
}
