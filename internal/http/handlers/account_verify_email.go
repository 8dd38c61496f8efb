package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sangjun0330/MNL-project-sub004/internal/http/flash"
	"github.com/sangjun0330/MNL-project-sub004/internal/http/middleware"
	"github.com/sangjun0330/MNL-project-sub004/internal/http/render"
	"github.com/sangjun0330/MNL-project-sub004/internal/modules/users"
	"github.com/sangjun0330/MNL-project-sub004/pkg/view"
)

type AccountVerifyEmailHandler struct {
	verifySvc *users.VerifyService
	Flash     *flash.Codec
}

func NewAccountVerifyEmailHandler(verifySvc *users.VerifyService, flashCodec *flash.Codec) *AccountVerifyEmailHandler {
	return &AccountVerifyEmailHandler{verifySvc: verifySvc, Flash: flashCodec}
}

func (h *AccountVerifyEmailHandler) SendVerificationEmail(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	// Send verification email
	if h.verifySvc != nil {
		if err := h.verifySvc.StartEmailVerification(c.Request.Context(), user.ID, user.Email); err != nil {
			render.RedirectWithFlash(c, h.Flash, "/account", view.FlashError, "Doğrulama e-postası gönderilemedi")
			return
		}
	}

	render.RedirectWithFlash(c, h.Flash, "/account", view.FlashSuccess, "Doğrulama e-postası gönderildi. Lütfen e-posta hesabınızı kontrol edin.")
}
