package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sangjun0330/MNL-project-sub004/internal/http/middleware"
	"github.com/sangjun0330/MNL-project-sub004/internal/http/render"
	"github.com/sangjun0330/MNL-project-sub004/templates/pages"
)

func AdminDashboard(c *gin.Context) {
	u, _ := middleware.CurrentUser(c) // RequireAdmin garanti eder

	render.Component(c, http.StatusOK, pages.AdminDashboard(
		middleware.GetFlash(c),
		middleware.GetCSRFToken(c),
		u.Email,
	))
}
