package render

import (
	"github.com/gin-gonic/gin"

	"github.com/sangjun0330/MNL-project-sub004/internal/http/middleware"
	"github.com/sangjun0330/MNL-project-sub004/templates/pages"
)

func ErrorPage(c *gin.Context, status int, msg string, requestID string) {
	flash := middleware.GetFlash(c)
	Component(c, status, pages.Error(status, msg, requestID, flash))
}
