package handler

import (
	"github.com/gin-gonic/gin"

	"legiseye/internal/app"
	"legiseye/internal/transport/http/response"
)

type CommentHandler struct {
	commentService *app.CommentService
}

type AddCommentRequest struct {
	Body     string `json:"body" binding:"required"`
	Page     int    `json:"page" binding:"min=0"`
	Quote    string `json:"quote" binding:"max=1024"`
	ParentID *uint  `json:"parent_id"`
}

type EditCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

type ResolveCommentRequest struct {
	Resolved *bool `json:"resolved"`
}

func NewCommentHandler(commentService *app.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func (h *CommentHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}

	threads, err := h.commentService.List(userID, docID)
	if err != nil {
		response.FromError(c, err, "list comments failed")
		return
	}
	response.OK(c, threads)
}

func (h *CommentHandler) Add(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AddCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.commentService.Add(userID, docID, app.AddCommentInput{
		Body:     req.Body,
		Page:     req.Page,
		Quote:    req.Quote,
		ParentID: req.ParentID,
	})
	if err != nil {
		response.FromError(c, err, "add comment failed")
		return
	}
	response.Created(c, comment)
}

func (h *CommentHandler) Edit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req EditCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.commentService.Edit(userID, commentID, req.Body)
	if err != nil {
		response.FromError(c, err, "edit comment failed")
		return
	}
	response.OK(c, comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.commentService.Delete(userID, commentID); err != nil {
		response.FromError(c, err, "delete comment failed")
		return
	}
	response.OK(c, gin.H{"deleted_comment_id": commentID})
}

// Resolve marks a comment resolved; {"resolved": false} reopens it.
func (h *CommentHandler) Resolve(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ResolveCommentRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	resolved := req.Resolved == nil || *req.Resolved

	comment, err := h.commentService.Resolve(userID, commentID, resolved)
	if err != nil {
		response.FromError(c, err, "resolve comment failed")
		return
	}
	response.OK(c, comment)
}
