package utils

import (
	"cinema_booking/constants"

	"github.com/gofiber/fiber/v2"
)

func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	var errMsg interface{}
	if err != nil {
		errMsg = err.Error()
	} else {
		errMsg = nil
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   errMsg,
	})
}

func ErrorResponseHaveKey(c *fiber.Ctx, status int, message string, err error, keyError string) error {
	var errMsg string
	if err != nil {
		errMsg = err.Error()
	} else {
		errMsg = ""
	}
	return c.Status(status).JSON(fiber.Map{
		"status":   "error",
		"message":  message,
		"errors":   errMsg,
		"keyError": keyError,
	})
}

// ConflictResponse trả về 409 kèm danh sách ghế không giữ/đặt được
func ConflictResponse(c *fiber.Ctx, message string, seatIds []uint) error {
	if seatIds == nil {
		seatIds = []uint{}
	}
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"status":             "error",
		"message":            message,
		"keyError":           constants.SEAT_UNAVAILABLE,
		"unavailableSeatIds": seatIds,
	})
}

func SuccessResponse(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}
