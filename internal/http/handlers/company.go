package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sangjun0330/MNL-project-sub004/internal/http/middleware"
	"github.com/sangjun0330/MNL-project-sub004/internal/http/render"
	"github.com/sangjun0330/MNL-project-sub004/templates/pages"
)

// CompanyHandler handles the company info page
type CompanyHandler struct{}

func NewCompanyHandler() *CompanyHandler {
	return &CompanyHandler{}
}

// Get returns the company page
func (h *CompanyHandler) Get(c *gin.Context) {
	flash := middleware.GetFlash(c)
	render.Component(c, 200, pages.Company(flash))
}
