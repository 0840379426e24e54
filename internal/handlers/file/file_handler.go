// internal/handlers/file/file_handler.go
package file

import (
	"net/http"
	"strconv"

	xerrors "serverkit-service/internal/pkg/errors"
	"serverkit-service/internal/pkg/response"
	fileService "serverkit-service/internal/service/file"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FileHandler struct {
	fileService *fileService.FileService
	logger      *zap.Logger
}

func NewFileHandler(svc *fileService.FileService, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		fileService: svc,
		logger:      logger,
	}
}

// Upload accepts a multipart form with a "file" field.
func (h *FileHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.ValidationError(c, "missing file", err)
		return
	}

	src, err := header.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to read upload", err)
		return
	}
	defer src.Close()

	info, err := h.fileService.SaveFile(
		c.Request.Context(),
		header.Filename,
		header.Header.Get("Content-Type"),
		src,
	)
	if err != nil {
		h.logger.Error("upload failed", zap.String("filename", header.Filename), zap.Error(err))
		response.Error(c, xerrors.HTTPStatus(err), "failed to store file", err)
		return
	}

	response.Success(c, http.StatusCreated, "file uploaded", info)
}

// Get returns file metadata.
func (h *FileHandler) Get(c *gin.Context) {
	info, err := h.fileService.GetFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to get file", err)
		return
	}
	response.Success(c, http.StatusOK, "ok", info)
}

// Download streams the stored bytes.
func (h *FileHandler) Download(c *gin.Context) {
	info, rc, err := h.fileService.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to open file", err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+info.OriginalName+`"`)
	c.DataFromReader(http.StatusOK, info.Size, info.MimeType, rc, nil)
}

// List pages through stored files.
func (h *FileHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	files, err := h.fileService.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to list files", err)
		return
	}
	response.Success(c, http.StatusOK, "ok", files)
}

// Delete removes a file and its metadata.
func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.fileService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to delete file", err)
		return
	}
	response.Success(c, http.StatusOK, "file deleted", nil)
}
