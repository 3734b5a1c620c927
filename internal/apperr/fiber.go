package apperr

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var validate = validator.New()

// ValidateStruct runs the `validate` tags of a request body and turns the
// failures into a field -> tag map on a validation error.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Validation("invalid request body")
	}
	fields := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		fields[ve.Field()] = ve.Tag()
	}
	return Validation("request validation failed").WithDetails(fields)
}

// Handler renders every error returned by a route. Domain errors use the
// structured envelope, framework errors keep the plain {error} shape.
func Handler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *Error
		if errors.As(err, &appErr) {
			if appErr.Kind == KindSystem {
				logger.WithFields(logrus.Fields{
					"method": c.Method(),
					"path":   c.Path(),
				}).Error(appErr.Error())
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"error": fiber.Map{
						"code":    KindSystem,
						"message": "unexpected server error",
					},
				})
			}
			body := fiber.Map{
				"code":    appErr.Kind,
				"message": appErr.Message,
			}
			if appErr.Details != nil {
				body["details"] = appErr.Details
			}
			return c.Status(appErr.HTTPStatus()).JSON(fiber.Map{
				"success": false,
				"error":   body,
			})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error": fe.Message,
			})
		}

		logger.WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("unexpected error: " + err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unexpected server error",
		})
	}
}
