package stockrequest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"mime/multipart"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/auth"
	"solar-inventory-backend/internal/objectstore"
	"solar-inventory-backend/internal/stock"
	"solar-inventory-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
)

func asActor(a stock.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, a.ID)
		c.Locals(auth.CtxUserNameKey, a.Name)
		c.Locals(auth.CtxUserRoleKey, a.Role)
		c.Locals(auth.CtxAdminIDKey, a.AdminID)
		return c.Next()
	}
}

func proofUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var pic bytes.Buffer
	if err := png.Encode(&pic, img); err != nil {
		t.Fatal(err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "proof.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(pic.Bytes())
	w.Close()
	return &body, w.FormDataContentType()
}

func storedFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestFailedDispatchDiscardsUploadedProof(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	store, err := objectstore.NewLocal(root, "/uploads")
	if err != nil {
		t.Fatal(err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(testutil.Logger())})
	app.Use(asActor(f.root))
	NewHandler(f.svc, store).Register(app)

	short := f.create(t, f.adminA, "super-admin", item(f.battery, 50))
	body, ctype := proofUpload(t)
	req := httptest.NewRequest("POST", "/stock-requests/"+short.ID+"/dispatch", body)
	req.Header.Set("Content-Type", ctype)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("short dispatch status = %d, want 400", resp.StatusCode)
	}
	if n := storedFiles(t, root); n != 0 {
		t.Errorf("%d images left behind by a failed dispatch", n)
	}

	ok := f.create(t, f.adminA, "super-admin", item(f.panel, 20))
	body, ctype = proofUpload(t)
	req = httptest.NewRequest("POST", "/stock-requests/"+ok.ID+"/dispatch", body)
	req.Header.Set("Content-Type", ctype)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("dispatch status = %d, want 200", resp.StatusCode)
	}
	if n := storedFiles(t, root); n != 1 {
		t.Errorf("stored images = %d, want 1", n)
	}
}
