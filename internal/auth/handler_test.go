package auth

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/database"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
)

func TestRegisterSuperAdminOnlyOnce(t *testing.T) {
	database.DB = testutil.NewDB(t)
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(testutil.Logger())})
	app.Post("/auth/register-super-admin", RegisterSuperAdminHandler())

	const callers = 4
	statuses := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"name":"root %d","email":"root%d@example.com","password":"secret-pass"}`, i, i)
			req := httptest.NewRequest("POST", "/auth/register-super-admin", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	created := 0
	for i, status := range statuses {
		switch status {
		case fiber.StatusCreated:
			created++
		case fiber.StatusForbidden:
		default:
			t.Errorf("caller %d: status %d", i, status)
		}
	}
	if created != 1 {
		t.Errorf("created %d super-admins, want 1", created)
	}

	var count int64
	database.DB.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count)
	if count != 1 {
		t.Errorf("stored super-admins = %d, want 1", count)
	}

	extra := models.User{Name: "second", Email: "second@example.com", PasswordHash: "x", Role: models.RoleSuperAdmin}
	if err := database.DB.Create(&extra).Error; err == nil {
		t.Error("the users table accepted a second super-admin")
	}
}
