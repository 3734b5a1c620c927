package auth

import (
	"strings"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/database"
	"solar-inventory-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email"`
	Phone    string          `json:"phone" validate:"max=30"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role" validate:"required,oneof=admin agent account"`
	AdminID  *uint           `json:"admin_id"`
}

// CreateUserHandler: the super-admin creates admins, account users and
// agents; an admin creates agents owned by themselves.
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}

		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.Name = strings.TrimSpace(body.Name)
		if err := apperr.ValidateStruct(&body); err != nil {
			return err
		}

		var owner *uint
		switch {
		case actor.IsSuperAdmin():
			if body.Role == models.RoleAgent {
				if body.AdminID == nil {
					return apperr.Validation("admin_id is required for agents")
				}
				var admin models.User
				if err := database.DB.Where("id = ? AND role = ?", *body.AdminID, models.RoleAdmin).First(&admin).Error; err != nil {
					return apperr.Validation("admin_id %d is not an admin", *body.AdminID)
				}
				owner = body.AdminID
			}
		case actor.IsAdmin():
			if body.Role != models.RoleAgent {
				return apperr.Authorization("admins can only create agents")
			}
			id := actor.ID
			owner = &id
		default:
			return apperr.Authorization("role %s cannot create users", actor.Role)
		}

		var count int64
		if err := database.DB.Model(&models.User{}).Where("email = ?", body.Email).Count(&count).Error; err != nil {
			return apperr.System("check email", err)
		}
		if count > 0 {
			return apperr.Validation("email %s is already registered", body.Email)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return apperr.System("hash password", err)
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			Phone:        strings.TrimSpace(body.Phone),
			PasswordHash: string(hash),
			Role:         body.Role,
			AdminID:      owner,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return apperr.System("create user", err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": user})
	}
}

// GET /api/users?role=agent
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}

		q := database.DB.Model(&models.User{})
		switch {
		case actor.IsSuperAdmin():
		case actor.IsAdmin():
			q = q.Where("admin_id = ?", actor.ID)
		default:
			return apperr.Authorization("role %s cannot list users", actor.Role)
		}
		if role := c.Query("role"); role != "" {
			q = q.Where("role = ?", role)
		}

		var users []models.User
		if err := q.Order("name").Find(&users).Error; err != nil {
			return apperr.System("list users", err)
		}
		return c.JSON(fiber.Map{"success": true, "data": users})
	}
}
