package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/transport/http/response"
)

const maxPDFSize = 10 << 20 // 10 MB

type DocumentHandler struct {
	documentService *app.DocumentService
}

func NewDocumentHandler(documentService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Upload accepts a multipart form with one or more "files" parts, each a PDF.
// The batch is partial-success: per-file outcomes come back itemized.
func (h *DocumentHandler) Upload(c *gin.Context) {
	if _, ok := getUserIDFromContext(c); !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files provided")
		return
	}

	var files []app.UploadFile
	var openErrs []app.UploadFailure
	for _, fh := range fileHeaders {
		if fh.Size > maxPDFSize {
			openErrs = append(openErrs, app.UploadFailure{Filename: fh.Filename, Error: "file too large (max 10MB)"})
			continue
		}
		f, err := fh.Open()
		if err != nil {
			openErrs = append(openErrs, app.UploadFailure{Filename: fh.Filename, Error: "failed to read file"})
			continue
		}
		defer f.Close()

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" && strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
			contentType = "application/pdf"
		}
		files = append(files, app.UploadFile{
			Filename:    fh.Filename,
			ContentType: contentType,
			Content:     f,
		})
	}

	result, err := h.documentService.Upload(c.Request.Context(), files)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload failed")
		return
	}
	result.Failed = append(result.Failed, openErrs...)

	response.OK(c, result)
}

func (h *DocumentHandler) List(c *gin.Context) {
	if _, ok := getUserIDFromContext(c); !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	documents, err := h.documentService.List()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}

	response.OK(c, documents)
}

func (h *DocumentHandler) DeleteAll(c *gin.Context) {
	if _, ok := getUserIDFromContext(c); !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	removed, err := h.documentService.DeleteAll(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete documents failed")
		return
	}

	response.OK(c, gin.H{"deleted_documents": removed})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if _, ok := getUserIDFromContext(c); !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	filename := c.Param("filename")
	if err := h.documentService.Delete(c.Request.Context(), filename); err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_document": filepath.Base(filename)})
}
