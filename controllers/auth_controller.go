package controllers

import (
	"github.com/gin-gonic/gin"

	"incidentwatch/middleware"
	"incidentwatch/models"
	"incidentwatch/services"
	"incidentwatch/utils"
)

type AuthController struct {
	authService *services.AuthService
}

func NewAuthController(authService *services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// Register creates a reporter account and returns an access token.
func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid registration request: "+err.Error())
		return
	}

	resp, err := ac.authService.Register(c.Request.Context(), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "Reporter registered", resp)
}

// Login verifies credentials and returns an access token.
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid login request: "+err.Error())
		return
	}

	resp, err := ac.authService.Login(c.Request.Context(), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Login successful", resp)
}

// Me returns the authenticated reporter's profile.
func (ac *AuthController) Me(c *gin.Context) {
	reporterID := c.GetString(middleware.ContextReporterID)

	profile, err := ac.authService.GetProfile(c.Request.Context(), reporterID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Profile retrieved", profile)
}
