package handler

import (
	"errors"

	"cinema_booking/constants"
	"cinema_booking/logger"
	"cinema_booking/realtime"
	"cinema_booking/service"
	"cinema_booking/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Handler struct {
	reservations *service.ReservationManager
	booking      *service.BookingCoordinator
	payments     *service.PaymentReconciler
	bus          *realtime.Bus
}

func New(reservations *service.ReservationManager, booking *service.BookingCoordinator, payments *service.PaymentReconciler, bus *realtime.Bus) *Handler {
	return &Handler{
		reservations: reservations,
		booking:      booking,
		payments:     payments,
		bus:          bus,
	}
}

// serviceError chuyển service.Error sang mã HTTP tương ứng.
func serviceError(c *fiber.Ctx, err error) error {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		svcErr = &service.Error{Kind: service.KindInternal, Message: "internal error", Err: err}
	}

	switch svcErr.Kind {
	case service.KindValidation, service.KindChecksum, service.KindAmountMismatch:
		return utils.ErrorResponseHaveKey(c, fiber.StatusBadRequest, svcErr.Message, nil, constants.DATA_INPUT_INVALID)
	case service.KindNotFound:
		return utils.ErrorResponseHaveKey(c, fiber.StatusNotFound, svcErr.Message, nil, constants.NOT_FOUND)
	case service.KindConflict:
		return utils.ConflictResponse(c, svcErr.Message, svcErr.SeatIds)
	case service.KindAlreadyProcessed:
		return utils.ErrorResponseHaveKey(c, fiber.StatusConflict, svcErr.Message, nil, constants.ALREADY_PROCESSED)
	default:
		logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		return utils.ErrorResponseHaveKey(c, fiber.StatusInternalServerError, "Lỗi hệ thống", nil, constants.INTERNAL_ERROR)
	}
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
