package router

import (
	"cinema_booking/handler"
	"cinema_booking/middleware"
	"cinema_booking/validate"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(app *fiber.App, h *handler.Handler, jwtSecret string) {
	app.Get("/health", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", logger.New())
	v1 := api.Group("/v1", middleware.OptionalJWT(jwtSecret))

	showtime := v1.Group("/showtimes/:showtimeId", validate.GetById("showtimeId"))
	showtime.Get("/seats", h.GetSeatMap)
	showtime.Post("/hold", validate.HoldSeat(), h.HoldSeat)
	showtime.Post("/release", validate.ReleaseSeat(), h.ReleaseSeat)

	ticket := v1.Group("/tickets")
	ticket.Post("/", validate.CreateTicket(), h.CreateTicket)
	ticket.Get("/:ticketId", h.GetTicket)

	v1.Post("/payments", validate.CreatePayment(), h.CreatePayment)

	// Server-to-Server
	vnpay := app.Group("/vnpay", logger.New())
	vnpay.Get("/ipn", h.VNPayIPN)
	vnpay.Post("/ipn", h.VNPayIPN)
	vnpay.Get("/return", h.VNPayReturn)

	app.Get("/ws/rooms/:roomId/showtimes/:showtimeId", handler.UpgradeWebsocket, websocket.New(h.SeatWebsocket))
}
