package handler

import (
	"net/http"
	"strings"

	"upload-gateway/internal/storage"
	"upload-gateway/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type PresignHandler struct {
	objects *storage.Client
}

func NewPresignHandler(objects *storage.Client) *PresignHandler {
	return &PresignHandler{objects: objects}
}

// Presign returns a presigned PUT URL for the direct, non-chunked
// upload path.
func (h *PresignHandler) Presign(c *gin.Context) {
	bucket := c.Param("bucket")
	objectPath := strings.TrimPrefix(c.Param("key"), "/")
	if bucket == "" || objectPath == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("bucket and object path required", "INVALID_REQUEST"))
		return
	}
	url, err := h.objects.PresignPut(c.Request.Context(), bucket, objectPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PresignResponse{URL: url}))
}
