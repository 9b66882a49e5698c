package handler

import (
	"cinema_booking/middleware"
	"cinema_booking/model"
	"cinema_booking/service"
	"cinema_booking/utils"

	"github.com/gofiber/fiber/v2"
)

// GetSeatMap trả sơ đồ ghế hiện tại, client dùng để đồng bộ lại khi mất sự kiện.
func (h *Handler) GetSeatMap(c *fiber.Ctx) error {
	showtimeId := c.Locals("showtimeId").(uint)

	seatMap, err := h.reservations.Snapshot(c.UserContext(), showtimeId)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, seatMap)
}

func (h *Handler) HoldSeat(c *fiber.Ctx) error {
	showtimeId := c.Locals("showtimeId").(uint)
	input := c.Locals("input").(model.HoldSeatInput)

	result, err := h.reservations.Hold(c.UserContext(), service.HoldRequest{
		ShowtimeId: showtimeId,
		RoomId:     input.RoomId,
		SeatIds:    input.SeatIds,
		HolderId:   middleware.HolderId(c, input.GuestSessionId),
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, result)
}

func (h *Handler) ReleaseSeat(c *fiber.Ctx) error {
	showtimeId := c.Locals("showtimeId").(uint)
	input := c.Locals("input").(model.ReleaseSeatInput)

	holder := input.HeldBy
	if id := middleware.CustomerId(c); id > 0 {
		holder = middleware.HolderId(c, "")
	}
	if holder == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "heldBy is required", nil)
	}

	released, err := h.reservations.Release(c.UserContext(), service.ReleaseRequest{
		ShowtimeId: showtimeId,
		RoomId:     input.RoomId,
		SeatIds:    input.SeatIds,
		HolderId:   holder,
	})
	if err != nil {
		return serviceError(c, err)
	}
	if released == nil {
		released = []uint{}
	}
	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{"releasedSeatIds": released})
}
