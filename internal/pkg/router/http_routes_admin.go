package router

import (
	"github.com/ManuelReschke/TrafficWatch/app/controllers"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h *HttpRouter) registerAdminRoutes(router fiber.Router) {
	adminGroup := router.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/dashboard", controllers.HandleAdminDashboard)

	// Complaints
	adminGroup.Get("/complaints", controllers.HandleAdminComplaints)
	adminGroup.Post("/complaints/:id", controllers.HandleAdminComplaintUpdate)
	adminGroup.Get("/submit-complaint", controllers.HandleSubmitComplaint)
	adminGroup.Post("/submit-complaint", controllers.HandleSubmitComplaint)

	// Document verification
	adminGroup.Get("/documents", controllers.HandleAdminDocuments)
	adminGroup.Post("/documents/:id/approve", controllers.HandleAdminDocumentApprove)
	adminGroup.Post("/documents/:id/reject", controllers.HandleAdminDocumentReject)
}
