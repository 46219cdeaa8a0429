package handler

import (
	"net/http"

	"upload-gateway/internal/services"
	"upload-gateway/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type FolderHandler struct {
	service *services.FolderService
}

func NewFolderHandler(service *services.FolderService) *FolderHandler {
	return &FolderHandler{service: service}
}

func (h *FolderHandler) Create(c *gin.Context) {
	var req httpdto.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	node, err := h.service.Create(c.Request.Context(), req.ToService())
	if err != nil {
		writeUploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(node))
}
