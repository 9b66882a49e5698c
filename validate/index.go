package validate

import (
	"errors"
	"strconv"

	"cinema_booking/constants"
	"cinema_booking/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// GetById kiểm tra param là số dương và lưu vào c.Locals(key).
func GetById(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value, err := strconv.ParseUint(c.Params(key), 10, 64)
		if err != nil || value == 0 {
			return utils.ErrorResponseHaveKey(c, fiber.StatusBadRequest, "Tham số "+key+" không hợp lệ",
				errors.New("params invalid"), constants.DATA_INPUT_INVALID)
		}
		c.Locals(key, uint(value))
		return c.Next()
	}
}

// body parse JSON vào T, validate rồi lưu vào c.Locals("input").
func body[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input T
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponseHaveKey(c, fiber.StatusBadRequest, "Dữ liệu không hợp lệ", err, constants.DATA_INPUT_INVALID)
		}
		if err := validate.Struct(input); err != nil {
			return utils.ErrorResponseHaveKey(c, fiber.StatusBadRequest, err.Error(), err, constants.DATA_INPUT_INVALID)
		}
		c.Locals("input", input)
		return c.Next()
	}
}
