package validate

import (
	"cinema_booking/model"

	"github.com/gofiber/fiber/v2"
)

func CreateTicket() fiber.Handler {
	return body[model.CreateTicketInput]()
}

func CreatePayment() fiber.Handler {
	return body[model.CreatePaymentInput]()
}
