package validate

import (
	"cinema_booking/model"

	"github.com/gofiber/fiber/v2"
)

func HoldSeat() fiber.Handler {
	return body[model.HoldSeatInput]()
}

func ReleaseSeat() fiber.Handler {
	return body[model.ReleaseSeatInput]()
}
