package handler

import (
	"github.com/gin-gonic/gin"

	"legiseye/internal/app"
	"legiseye/internal/transport/http/response"
)

type SharingHandler struct {
	sharingService *app.SharingService
}

type ShareRequest struct {
	TeamID uint `json:"team_id" binding:"required,gt=0"`
}

func NewSharingHandler(sharingService *app.SharingService) *SharingHandler {
	return &SharingHandler{sharingService: sharingService}
}

func (h *SharingHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}

	teams, err := h.sharingService.List(userID, docID)
	if err != nil {
		response.FromError(c, err, "list shares failed")
		return
	}
	response.OK(c, teams)
}

func (h *SharingHandler) Share(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ShareRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.sharingService.Share(userID, docID, req.TeamID); err != nil {
		response.FromError(c, err, "share document failed")
		return
	}
	response.OK(c, gin.H{"document_id": docID, "team_id": req.TeamID})
}

func (h *SharingHandler) Unshare(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}

	if err := h.sharingService.Unshare(userID, docID, teamID); err != nil {
		response.FromError(c, err, "unshare document failed")
		return
	}
	response.OK(c, gin.H{"document_id": docID, "team_id": teamID})
}
