package routes

import (
	"net/http"

	"parkwise/auth"
	"parkwise/booking"
	"parkwise/facilities"
	"parkwise/floors"
	"parkwise/middleware"
	"parkwise/payments"
	"parkwise/ratelim"
	"parkwise/security"
	"parkwise/slots"
	"parkwise/tickets"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/uploads/*filepath", http.Dir("static/uploads"))
}

func AddAuthRoutes(router *httprouter.Router) {
	router.POST("/api/auth/register", ratelim.RateLimit(auth.Register))
	router.POST("/api/auth/login", ratelim.RateLimit(auth.Login))
	router.POST("/api/auth/logout", middleware.Authenticate(auth.LogoutUser))
	router.POST("/api/auth/token/refresh", ratelim.RateLimit(middleware.Authenticate(auth.RefreshToken)))
}

func AddFacilityRoutes(router *httprouter.Router) {
	router.GET("/api/facilities", facilities.GetFacilities)
	router.GET("/api/nearby-facilities", ratelim.RateLimit(facilities.GetNearbyFacilities))
	router.GET("/api/facilities/:facilityid", middleware.OptionalAuth(facilities.GetFacility))
	router.POST("/api/facilities", ratelim.RateLimit(middleware.Authenticate(facilities.CreateFacility)))
	router.PUT("/api/facilities/:facilityid", middleware.Authenticate(facilities.UpdateFacility))
	router.DELETE("/api/facilities/:facilityid", middleware.Authenticate(middleware.RequireRole(facilities.DeleteFacility, "admin")))
	router.GET("/api/facilities/:facilityid/dashboard", middleware.Authenticate(facilities.GetDashboard))
	router.POST("/api/facilities/:facilityid/banner", middleware.Authenticate(facilities.UploadBanner))
}

func AddFloorRoutes(router *httprouter.Router) {
	router.POST("/api/floors", middleware.Authenticate(middleware.RequireRole(floors.CreateFloor, "admin", "security")))
	router.GET("/api/floors", middleware.Authenticate(floors.GetFloors))
	router.GET("/api/floor-summary", middleware.Authenticate(floors.GetFloorSummary))
	router.GET("/api/floors/:floorid", middleware.Authenticate(floors.GetFloor))
	router.PUT("/api/floors/:floorid", middleware.Authenticate(middleware.RequireRole(floors.UpdateFloor, "admin", "security")))
	router.DELETE("/api/floors/:floorid", middleware.Authenticate(middleware.RequireRole(floors.DeleteFloor, "admin")))
	router.GET("/api/floors/:floorid/slots", middleware.Authenticate(slots.GetSlotsByFloor))
}

func AddSlotRoutes(router *httprouter.Router) {
	router.POST("/api/slots", middleware.Authenticate(middleware.RequireRole(slots.CreateSlots, "admin", "security")))
	router.GET("/api/slots", middleware.Authenticate(slots.GetSlots))
	router.PUT("/api/slots/:slotid", middleware.Authenticate(middleware.RequireRole(slots.UpdateSlot, "admin", "security")))
	router.DELETE("/api/slots/:slotid", middleware.Authenticate(middleware.RequireRole(slots.DeleteSlot, "admin")))
}

func AddBookingRoutes(router *httprouter.Router, h *booking.Handlers) {
	router.POST("/api/bookings", ratelim.RateLimit(middleware.Authenticate(h.CreateBooking)))
	router.GET("/api/bookings/my", middleware.Authenticate(h.GetUserBookings))
	router.PUT("/api/bookings/:bookingid/cancel", middleware.Authenticate(h.CancelBooking))
	router.GET("/api/bookings/ticket/:ticketid", middleware.Authenticate(h.GetBookingByTicket))
	router.GET("/api/facilities/:facilityid/bookings", middleware.Authenticate(h.GetFacilityBookings))

	router.GET("/ws/facilities/:facilityid/availability", booking.HandleAvailabilityWS)
}

func AddSecurityRoutes(router *httprouter.Router, h *security.Handlers) {
	router.POST("/api/security/assign", middleware.Authenticate(middleware.RequireRole(facilities.AssignSecurity, "admin")))
	router.POST("/api/security/checkin", middleware.Authenticate(middleware.RequireRole(h.CheckIn, "admin", "security")))
	router.POST("/api/security/exit-amount", middleware.Authenticate(middleware.RequireRole(h.ExitAmount, "admin", "security")))
	router.POST("/api/security/checkout/:vehicleid", middleware.Authenticate(middleware.RequireRole(h.Checkout, "admin", "security")))
	router.GET("/api/security/occupied", middleware.Authenticate(middleware.RequireRole(h.OccupiedSlots, "admin", "security")))
}

func AddPaymentRoutes(router *httprouter.Router) {
	router.GET("/api/payments", middleware.Authenticate(payments.GetPayments))
	router.POST("/api/payments", middleware.Authenticate(payments.Idempotent(payments.AddPayment)))
	router.POST("/api/payments/prebooking", ratelim.RateLimit(middleware.Authenticate(payments.Idempotent(payments.ProcessPreBookingPayment))))
}

func AddTicketRoutes(router *httprouter.Router) {
	router.GET("/api/tickets/:ticketid/qr", tickets.TicketQR)
	router.GET("/api/tickets/:ticketid/print", tickets.PrintTicket)
	router.POST("/api/tickets/scan", middleware.Authenticate(middleware.RequireRole(tickets.ScanTicket, "admin", "security")))
}
