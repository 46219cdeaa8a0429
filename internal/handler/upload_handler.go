package handler

import (
	"errors"
	"net/http"

	"upload-gateway/internal/services"
	"upload-gateway/internal/transport/httpdto"
	upload_errors "upload-gateway/pkg/errors"

	"github.com/gin-gonic/gin"
)

const sessionHeader = "Session-Id"

type UploadHandler struct {
	service *services.UploadService
}

func NewUploadHandler(service *services.UploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

func (h *UploadHandler) PreUpload(c *gin.Context) {
	sessionID := c.GetHeader(sessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("Session-Id header required", "INVALID_REQUEST"))
		return
	}
	var req httpdto.PreUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	jobs, err := h.service.PreUpload(c.Request.Context(), sessionID, req.ToService())
	if err != nil {
		writeUploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewJobDTOs(jobs)))
}

func (h *UploadHandler) SaveChunk(c *gin.Context) {
	sessionID := c.GetHeader(sessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("Session-Id header required", "INVALID_REQUEST"))
		return
	}
	var form httpdto.ChunkForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	fileHeader, err := c.FormFile("chunk_data")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("chunk_data file part required", "INVALID_REQUEST"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable chunk", "INVALID_REQUEST"))
		return
	}
	defer src.Close()

	if err := h.service.SaveChunk(c.Request.Context(), sessionID, form.ToService(), src); err != nil {
		writeUploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"chunk_number": form.ResumableChunkNumber}))
}

func (h *UploadHandler) OnSuccess(c *gin.Context) {
	sessionID := c.GetHeader(sessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("Session-Id header required", "INVALID_REQUEST"))
		return
	}
	var req httpdto.OnSuccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	rec, err := h.service.OnSuccess(c.Request.Context(), sessionID, req.ToService())
	if err != nil {
		writeUploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewJobDTO(rec)))
}

func (h *UploadHandler) GetStatus(c *gin.Context) {
	sessionID := c.GetHeader(sessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("Session-Id header required", "INVALID_REQUEST"))
		return
	}
	projectCode := c.Query("project_code")
	if projectCode == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("project_code required", "INVALID_REQUEST"))
		return
	}
	jobs, err := h.service.Status(c.Request.Context(), sessionID, projectCode, c.Query("operator"))
	if err != nil {
		writeUploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewJobDTOs(jobs)))
}

func (h *UploadHandler) ClearStatus(c *gin.Context) {
	sessionID := c.GetHeader(sessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("Session-Id header required", "INVALID_REQUEST"))
		return
	}
	if err := h.service.ClearSession(c.Request.Context(), sessionID); err != nil {
		writeUploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

// writeUploadError maps service errors onto HTTP statuses. Admission
// conflicts keep the full per-path list in the body.
func writeUploadError(c *gin.Context, err error) {
	var conflict *services.ConflictError
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, httpdto.NewConflictResponse(err.Error(), conflict.Failed))
	case errors.Is(err, upload_errors.ErrResourceBusy):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "RESOURCE_BUSY"))
	case errors.Is(err, upload_errors.ErrJobIDTaken), errors.Is(err, upload_errors.ErrConflict):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "CONFLICT"))
	case errors.Is(err, upload_errors.ErrNotFound), errors.Is(err, upload_errors.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse(err.Error(), "NOT_FOUND"))
	case errors.Is(err, upload_errors.ErrInvalidInput), errors.Is(err, upload_errors.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
	}
}
