package handler

import (
	"net/url"

	"cinema_booking/model"
	"cinema_booking/service"
	"cinema_booking/utils"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) CreatePayment(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreatePaymentInput)

	link, err := h.payments.InitiatePayment(c.UserContext(), service.InitiatePaymentRequest{
		TicketId: input.TicketId,
		Amount:   input.Amount,
		ClientIP: c.IP(),
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, link)
}

// VNPayIPN luôn trả HTTP 200, kết quả nằm trong RspCode.
func (h *Handler) VNPayIPN(c *fiber.Ctx) error {
	ack := h.payments.HandleIPN(c.UserContext(), callbackQuery(c))
	return c.Status(fiber.StatusOK).JSON(ack)
}

// VNPayReturn xử lý redirect của trình duyệt sau khi thanh toán.
func (h *Handler) VNPayReturn(c *fiber.Ctx) error {
	result := h.payments.HandleReturn(c.UserContext(), callbackQuery(c))
	status := fiber.StatusOK
	if result.Status == "error" {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(result)
}

// callbackQuery gom tham số vnp_* từ query string, hoặc từ form khi IPN gửi POST.
func callbackQuery(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	if len(values) == 0 && c.Method() == fiber.MethodPost {
		c.Context().PostArgs().VisitAll(func(key, value []byte) {
			values.Add(string(key), string(value))
		})
	}
	return values
}
