package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"upload-gateway/internal/services"
	upload_errors "upload-gateway/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func recordError(err error) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	writeUploadError(c, err)
	return rec
}

func TestWriteUploadErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"resource busy", fmt.Errorf("%w: gr-proj/a.txt", upload_errors.ErrResourceBusy), http.StatusConflict, "RESOURCE_BUSY"},
		{"job id taken", upload_errors.ErrJobIDTaken, http.StatusConflict, "CONFLICT"},
		{"not found", upload_errors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"project not found", upload_errors.ErrProjectNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"invalid input", upload_errors.ErrInvalidInput, http.StatusBadRequest, "INVALID_REQUEST"},
		{"invalid transition", upload_errors.ErrInvalidTransition, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "REQUEST_FAILED"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := recordError(tc.err)
			assert.Equal(t, tc.status, rec.Code)

			var body struct {
				Success bool   `json:"success"`
				Code    string `json:"code"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestWriteUploadErrorConflictListsFailedPaths(t *testing.T) {
	rec := recordError(&services.ConflictError{Failed: []services.ConflictItem{
		{Name: "dup.txt", Type: "File"},
		{DisplayPath: "taken", Type: "Folder"},
	}})
	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Data struct {
			Failed []services.ConflictItem `json:"failed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Failed, 2)
	assert.Equal(t, "dup.txt", body.Data.Failed[0].Name)
	assert.Equal(t, "taken", body.Data.Failed[1].DisplayPath)
}

func TestSessionHeaderRequired(t *testing.T) {
	h := NewUploadHandler(nil)
	router := gin.New()
	router.POST("/v1/files/jobs", h.PreUpload)
	router.POST("/v1/files", h.OnSuccess)
	router.GET("/v1/files/jobs", h.GetStatus)
	router.DELETE("/v1/files/jobs", h.ClearStatus)
	router.POST("/v1/files/chunks", h.SaveChunk)

	requests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/files/jobs"},
		{http.MethodPost, "/v1/files"},
		{http.MethodGet, "/v1/files/jobs"},
		{http.MethodDelete, "/v1/files/jobs"},
		{http.MethodPost, "/v1/files/chunks"},
	}
	for _, tc := range requests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s", tc.method, tc.path)
	}
}
