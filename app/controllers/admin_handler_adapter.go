package controllers

import (
	"github.com/ManuelReschke/TrafficWatch/app/repository"
	"github.com/gofiber/fiber/v2"
)

// Global admin controller instance
var adminController *AdminController

// InitializeAdminController initializes the global admin controller with repositories
func InitializeAdminController(repos *repository.Repositories) {
	adminController = NewAdminController(repos)
}

// GetAdminController returns the global admin controller instance
func GetAdminController() *AdminController {
	if adminController == nil {
		InitializeAdminController(repository.GetGlobalFactory().GetRepositories())
	}
	return adminController
}

// Adapter functions used by the router

func HandleAdminDashboard(c *fiber.Ctx) error {
	return GetAdminController().HandleDashboard(c)
}

func HandleAdminComplaints(c *fiber.Ctx) error {
	return GetAdminController().HandleComplaints(c)
}

func HandleAdminComplaintUpdate(c *fiber.Ctx) error {
	return GetAdminController().HandleComplaintUpdate(c)
}

func HandleAdminDocuments(c *fiber.Ctx) error {
	return GetAdminController().HandleDocuments(c)
}

func HandleAdminDocumentApprove(c *fiber.Ctx) error {
	return GetAdminController().HandleDocumentApprove(c)
}

func HandleAdminDocumentReject(c *fiber.Ctx) error {
	return GetAdminController().HandleDocumentReject(c)
}
