package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"legiseye/internal/app"
	"legiseye/internal/repository"
	"legiseye/internal/transport/http/response"
)

type DocumentHandler struct {
	documentService *app.DocumentService
	maxUploadBytes  int64
}

type RenameDocumentRequest struct {
	Name string `json:"name" binding:"required,max=256"`
}

func NewDocumentHandler(documentService *app.DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, maxUploadBytes: maxUploadBytes}
}

// Upload takes a multipart form with "file" and optional "name" and "team_id".
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		response.FromError(c, app.ErrFileTooLarge, "")
		return
	}

	var teamID uint
	if raw := c.PostForm("team_id"); raw != "" {
		v, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid team_id")
			return
		}
		teamID = uint(v)
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	var reader io.Reader = f
	if h.maxUploadBytes > 0 {
		reader = io.LimitReader(f, h.maxUploadBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	doc, err := h.documentService.Upload(c.Request.Context(), app.UploadInput{
		UserID:   userID,
		FileName: file.Filename,
		Name:     c.PostForm("name"),
		TeamID:   teamID,
		Data:     data,
	})
	if err != nil {
		response.FromError(c, err, "upload document failed")
		return
	}
	c.JSON(http.StatusAccepted, response.APIResponse{Code: response.CodeOK, Message: "accepted", Data: doc})
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := queryUint(c, "team_id")
	if !ok {
		return
	}

	docs, err := h.documentService.List(userID, repository.DocumentFilter{TeamID: teamID, Query: c.Query("q")})
	if err != nil {
		response.FromError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}

	includePages := c.Query("include_pages") == "true" || c.Query("include_pages") == "1"
	detail, err := h.documentService.Get(c.Request.Context(), userID, docID, includePages)
	if err != nil {
		response.FromError(c, err, "get document failed")
		return
	}
	response.OK(c, detail)
}

// File streams the stored original. ?download=1 forces an attachment.
func (h *DocumentHandler) File(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.File(userID, docID)
	if err != nil {
		response.FromError(c, err, "open document file failed")
		return
	}
	if c.Query("download") == "1" {
		c.FileAttachment(doc.StoragePath, doc.OriginalName)
		return
	}
	c.Header("Content-Type", doc.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.OriginalName))
	c.File(doc.StoragePath)
}

func (h *DocumentHandler) Rename(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RenameDocumentRequest
	if !bindJSON(c, &req) {
		return
	}

	doc, err := h.documentService.Rename(userID, docID, req.Name)
	if err != nil {
		response.FromError(c, err, "rename document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), userID, docID); err != nil {
		response.FromError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted_document_id": docID})
}

func (h *DocumentHandler) Reanalyze(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.Reanalyze(c.Request.Context(), userID, docID)
	if err != nil {
		response.FromError(c, err, "reanalyze document failed")
		return
	}
	c.JSON(http.StatusAccepted, response.APIResponse{Code: response.CodeOK, Message: "accepted", Data: doc})
}

// Highlights returns glossary spans for ?page=N, or every page when page is absent.
func (h *DocumentHandler) Highlights(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page := queryInt(c, "page", 0)
	if page < 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid page")
		return
	}

	pages, err := h.documentService.Highlights(c.Request.Context(), userID, docID, page)
	if err != nil {
		response.FromError(c, err, "load highlights failed")
		return
	}
	response.OK(c, pages)
}
