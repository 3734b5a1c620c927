package catalog

import (
	"strconv"
	"strings"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/auth"
	"solar-inventory-backend/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Name      string           `json:"name" validate:"required,max=150"`
	Model     string           `json:"model" validate:"max=100"`
	Category  string           `json:"category" validate:"max=100"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	GSTRate   *decimal.Decimal `json:"gst_rate"`
	Quantity  int              `json:"quantity" validate:"gte=0"`
}

type UpdateProductRequest struct {
	Name      *string          `json:"name" validate:"omitempty,max=150"`
	Model     *string          `json:"model" validate:"omitempty,max=100"`
	Category  *string          `json:"category" validate:"omitempty,max=100"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	GSTRate   *decimal.Decimal `json:"gst_rate"`
}

// AdjustStockRequest: quantity is signed.
type AdjustStockRequest struct {
	Quantity int    `json:"quantity" validate:"required"`
	Notes    string `json:"notes" validate:"max=500"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func productID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid product id")
	}
	return uint(id), nil
}

// GET /api/products?category=Panels&q=400w
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := ListProducts(c.UserContext(), database.DB, c.Query("category"), c.Query("q"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": products})
	}
}

// GET /api/products/:id
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productID(c)
		if err != nil {
			return err
		}
		p, err := GetProduct(c.UserContext(), database.DB, id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": p})
	}
}

// POST /api/products (super-admin)
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if err := apperr.ValidateStruct(&body); err != nil {
			return err
		}

		in := ProductInput{
			Name:      body.Name,
			Model:     body.Model,
			Category:  body.Category,
			UnitPrice: decimal.Zero,
			GSTRate:   decimal.Zero,
			Quantity:  body.Quantity,
		}
		if body.UnitPrice != nil {
			in.UnitPrice = *body.UnitPrice
		}
		if body.GSTRate != nil {
			in.GSTRate = *body.GSTRate
		}
		p, err := CreateProduct(c.UserContext(), database.DB, actor, in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": p})
	}
}

// PUT /api/products/:id (super-admin)
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := productID(c)
		if err != nil {
			return err
		}
		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := apperr.ValidateStruct(&body); err != nil {
			return err
		}

		p, err := UpdateProduct(c.UserContext(), database.DB, actor, id, ProductPatch{
			Name:      body.Name,
			Model:     body.Model,
			Category:  body.Category,
			UnitPrice: body.UnitPrice,
			GSTRate:   body.GSTRate,
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": p})
	}
}

// DELETE /api/products/:id (super-admin)
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := productID(c)
		if err != nil {
			return err
		}
		if err := DeleteProduct(c.UserContext(), database.DB, actor, id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/products/:id/stock (super-admin)
func AdjustStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := productID(c)
		if err != nil {
			return err
		}
		var body AdjustStockRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := apperr.ValidateStruct(&body); err != nil {
			return err
		}
		p, err := AdjustStock(c.UserContext(), database.DB, actor, id, body.Quantity, body.Notes)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": p})
	}
}

// POST /api/products/import (super-admin), multipart "file" holding an .xlsx
func ImportProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return apperr.Validation("file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return apperr.Validation("only .xlsx files can be imported")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return apperr.System("open upload", err)
		}
		defer file.Close()

		res, err := ImportProducts(c.UserContext(), database.DB, actor, file)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": res})
	}
}

// GET /api/categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cats, err := ListCategories(c.UserContext(), database.DB)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": cats})
	}
}

// POST /api/categories (super-admin)
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var body CreateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := apperr.ValidateStruct(&body); err != nil {
			return err
		}
		cat, err := CreateCategory(c.UserContext(), database.DB, actor, body.Name)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": cat})
	}
}
