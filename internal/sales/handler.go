package sales

import (
	"time"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/auth"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/objectstore"
	"solar-inventory-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type AddressRequest struct {
	ContactName string `json:"contact_name" validate:"max=150"`
	Phone       string `json:"phone" validate:"max=30"`
	Line1       string `json:"line1" validate:"required,max=255"`
	Line2       string `json:"line2" validate:"max=255"`
	City        string `json:"city" validate:"max=100"`
	State       string `json:"state" validate:"max=100"`
	PostalCode  string `json:"postal_code" validate:"max=20"`
	Country     string `json:"country" validate:"max=100"`
}

type ItemRequest struct {
	ProductID   *uint            `json:"product_id"`
	ProductName string           `json:"product_name" validate:"max=150"`
	Model       string           `json:"model" validate:"max=100"`
	Quantity    int              `json:"quantity" validate:"gt=0"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	LineTotal   *decimal.Decimal `json:"line_total"`
	GSTRate     *decimal.Decimal `json:"gst_rate"`
}

// CreateRequest takes items[] or the legacy single-item fields.
type CreateRequest struct {
	Type          models.SaleType `json:"type" validate:"required,oneof=B2B B2C"`
	CustomerName  string          `json:"customer_name" validate:"required,max=150"`
	CustomerPhone string          `json:"customer_phone" validate:"max=30"`
	CustomerEmail string          `json:"customer_email" validate:"omitempty,email,max=100"`
	GSTNumber     string          `json:"gst_number" validate:"max=30"`

	BillingAddressID      *uint           `json:"billing_address_id"`
	BillingAddress        *AddressRequest `json:"billing_address"`
	DeliveryAddressID     *uint           `json:"delivery_address_id"`
	DeliveryAddress       *AddressRequest `json:"delivery_address"`
	DeliverySameAsBilling bool            `json:"delivery_same_as_billing"`

	Items       []ItemRequest    `json:"items" validate:"omitempty,dive"`
	ProductID   *uint            `json:"product_id"`
	ProductName string           `json:"product_name" validate:"max=150"`
	Model       string           `json:"model" validate:"max=100"`
	Quantity    int              `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	GSTRate     *decimal.Decimal `json:"gst_rate"`

	Subtotal       *decimal.Decimal     `json:"subtotal"`
	TaxAmount      *decimal.Decimal     `json:"tax_amount"`
	DiscountAmount *decimal.Decimal     `json:"discount_amount"`
	TotalAmount    *decimal.Decimal     `json:"total_amount"`
	PaymentStatus  models.PaymentStatus `json:"payment_status" validate:"omitempty,oneof=pending completed"`
	Notes          string               `json:"notes" validate:"max=1000"`
	SaleDate       *time.Time           `json:"sale_date"`
}

type UpdateRequest struct {
	CustomerName  *string               `json:"customer_name" validate:"omitempty,max=150"`
	CustomerPhone *string               `json:"customer_phone" validate:"omitempty,max=30"`
	CustomerEmail *string               `json:"customer_email" validate:"omitempty,max=100"`
	GSTNumber     *string               `json:"gst_number" validate:"omitempty,max=30"`
	PaymentStatus *models.PaymentStatus `json:"payment_status" validate:"omitempty,oneof=pending completed"`
	Notes         *string               `json:"notes" validate:"omitempty,max=1000"`
	SaleDate      *time.Time            `json:"sale_date"`
}

type ConfirmBillRequest struct {
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
	g := r.Group("/sales")
	g.Get("/summary", h.Summary())
	g.Get("/", h.List())
	g.Get("/:id", h.Get())
	g.Post("/", h.Create())
	g.Put("/:id", h.Update())
	g.Delete("/:id", auth.RequireRole(models.RoleSuperAdmin), h.Delete())
	g.Post("/:id/confirm-bill", auth.RequireRole(models.RoleAccount), h.ConfirmBill())
}

func (body *CreateRequest) input() CreateInput {
	in := CreateInput{
		Type:                  body.Type,
		CustomerName:          body.CustomerName,
		CustomerPhone:         body.CustomerPhone,
		CustomerEmail:         body.CustomerEmail,
		GSTNumber:             body.GSTNumber,
		BillingAddressID:      body.BillingAddressID,
		BillingAddress:        body.BillingAddress.input(),
		DeliveryAddressID:     body.DeliveryAddressID,
		DeliveryAddress:       body.DeliveryAddress.input(),
		DeliverySameAsBilling: body.DeliverySameAsBilling,
		Subtotal:              body.Subtotal,
		TaxAmount:             body.TaxAmount,
		DiscountAmount:        body.DiscountAmount,
		TotalAmount:           body.TotalAmount,
		PaymentStatus:         body.PaymentStatus,
		Notes:                 body.Notes,
		SaleDate:              body.SaleDate,
	}

	if len(body.Items) == 0 {
		if body.ProductID != nil || body.ProductName != "" || body.Quantity != 0 {
			in.Items = []stock.SaleLineInput{{
				ProductID:   body.ProductID,
				ProductName: body.ProductName,
				Model:       body.Model,
				Quantity:    body.Quantity,
				UnitPrice:   body.UnitPrice,
				GSTRate:     body.GSTRate,
			}}
		}
		return in
	}
	for _, it := range body.Items {
		in.Items = append(in.Items, stock.SaleLineInput{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Model:       it.Model,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
			GSTRate:     it.GSTRate,
		})
	}
	return in
}

func (a *AddressRequest) input() *AddressInput {
	if a == nil {
		return nil
	}
	return &AddressInput{
		ContactName: a.ContactName,
		Phone:       a.Phone,
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		Country:     a.Country,
	}
}

func parseListFilter(c *fiber.Ctx) (ListFilter, error) {
	var f ListFilter
	if t := c.Query("type"); t != "" {
		if t != string(models.SaleB2B) && t != string(models.SaleB2C) {
			return f, apperr.Validation("type must be B2B or B2C")
		}
		f.Type = models.SaleType(t)
	}
	if p := c.Query("payment_status"); p != "" {
		if p != string(models.PaymentPending) && p != string(models.PaymentCompleted) {
			return f, apperr.Validation("payment_status must be pending or completed")
		}
		f.PaymentStatus = models.PaymentStatus(p)
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return f, apperr.Validation("from must be YYYY-MM-DD")
		}
		f.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return f, apperr.Validation("to must be YYYY-MM-DD")
		}
		f.To = t.AddDate(0, 0, 1)
	}
	return f, nil
}

// GET /api/sales?type=B2B&payment_status=pending&from=2024-01-01&to=2024-01-31
func (h *Handler) List() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		f, err := parseListFilter(c)
		if err != nil {
			return err
		}
		out, err := h.svc.List(c.UserContext(), actor, f)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": out})
	}
}

func (h *Handler) Summary() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		f, err := parseListFilter(c)
		if err != nil {
			return err
		}
		out, err := h.svc.Summary(c.UserContext(), actor, f)
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
		sale, err := h.svc.Get(c.UserContext(), actor, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": sale})
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

		sale, err := h.svc.Create(c.UserContext(), actor, body.input())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": sale})
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

		sale, err := h.svc.Update(c.UserContext(), actor, c.Params("id"), UpdateInput{
			CustomerName:  body.CustomerName,
			CustomerPhone: body.CustomerPhone,
			CustomerEmail: body.CustomerEmail,
			GSTNumber:     body.GSTNumber,
			PaymentStatus: body.PaymentStatus,
			Notes:         body.Notes,
			SaleDate:      body.SaleDate,
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": sale})
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
		return c.JSON(fiber.Map{"success": true, "message": "sale deleted"})
	}
}

// POST /api/sales/:id/confirm-bill, multipart `image` or JSON image_url.
func (h *Handler) ConfirmBill() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var body ConfirmBillRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return apperr.Validation("invalid request body")
			}
		}

		id := c.Params("id")
		image := body.ImageURL
		upload, err := objectstore.FromRequest(c, h.store, "sales/"+id+"/bill")
		if err != nil {
			return err
		}
		if upload.URL != "" {
			image = upload.URL
		}

		sale, err := h.svc.ConfirmBill(c.UserContext(), actor, id, image)
		if err != nil {
			objectstore.Discard(c.UserContext(), h.store, upload, h.svc.logger)
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": sale})
	}
}
