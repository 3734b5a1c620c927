package auth

import (
	"errors"
	"strings"
	"time"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/config"
	"solar-inventory-backend/internal/database"
	"solar-inventory-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterSuperAdminRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterSuperAdminHandler bootstraps the single super-admin account.
func RegisterSuperAdminHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterSuperAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.Name = strings.TrimSpace(body.Name)
		if err := apperr.ValidateStruct(&body); err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return apperr.System("hash password", err)
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleSuperAdmin,
		}
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			exists, err := superAdminExists(tx)
			if err != nil {
				return err
			}
			if exists {
				return apperr.Authorization("a super-admin already exists")
			}
			if err := tx.Create(&user).Error; err != nil {
				return apperr.System("create super-admin", err)
			}
			return nil
		})
		if err != nil {
			// a concurrent bootstrap that lost on the unique index
			if apperr.Is(err, apperr.KindSystem) {
				if exists, cerr := superAdminExists(database.DB); cerr == nil && exists {
					return apperr.Authorization("a super-admin already exists")
				}
			}
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		})
	}
}

func superAdminExists(db *gorm.DB) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count).Error; err != nil {
		return false, apperr.System("count super-admins", err)
	}
	return count > 0, nil
}

func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if err := apperr.ValidateStruct(&body); err != nil {
			return err
		}

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Authentication("invalid email or password")
			}
			return apperr.System("load user", err)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return apperr.Authentication("invalid email or password")
		}

		token, err := GenerateToken(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour, &user)
		if err != nil {
			return apperr.System("sign token", err)
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  user,
		})
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := database.DB.First(&user, actor.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Authentication("user no longer exists")
			}
			return apperr.System("load user", err)
		}

		resp := fiber.Map{"user": user}
		if user.AdminID != nil {
			var owner models.User
			if err := database.DB.First(&owner, *user.AdminID).Error; err == nil {
				resp["admin"] = fiber.Map{"id": owner.ID, "name": owner.Name}
			}
		}
		return c.JSON(resp)
	}
}
