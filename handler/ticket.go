package handler

import (
	"cinema_booking/middleware"
	"cinema_booking/model"
	"cinema_booking/service"
	"cinema_booking/utils"

	"github.com/gofiber/fiber/v2"
)

// CreateTicket đặt vé trực tiếp hoặc chốt các ghế người mua đang giữ.
func (h *Handler) CreateTicket(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateTicketInput)

	ticket, err := h.booking.CreateTicket(c.UserContext(), service.CreateTicketRequest{
		BuyerId:     middleware.HolderId(c, input.HeldBy),
		ShowtimeId:  input.ShowtimeID,
		SeatIds:     input.SeatIds,
		Combos:      input.Combos,
		VoucherCode: input.VoucherCode,
		TotalAmount: input.TotalAmount,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, ticket)
}

func (h *Handler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.booking.GetTicket(c.UserContext(), c.Params("ticketId"))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, ticket)
}
