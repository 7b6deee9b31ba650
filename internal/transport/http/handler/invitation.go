package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"legiseye/internal/app"
	"legiseye/internal/transport/http/response"
)

type InvitationHandler struct {
	invitationService *app.InvitationService
}

type InviteRequest struct {
	Email string `json:"email" binding:"required,email,max=128"`
	Role  string `json:"role"`
}

func NewInvitationHandler(invitationService *app.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

func (h *InvitationHandler) Invite(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req InviteRequest
	if !bindJSON(c, &req) {
		return
	}

	invitation, err := h.invitationService.Invite(c.Request.Context(), app.InviteInput{
		ActorID: userID,
		TeamID:  teamID,
		Email:   req.Email,
		Role:    req.Role,
	})
	if err != nil {
		response.FromError(c, err, "invite member failed")
		return
	}
	response.Created(c, invitation)
}

func (h *InvitationHandler) ListTeam(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	invitations, err := h.invitationService.ListTeam(userID, teamID)
	if err != nil {
		response.FromError(c, err, "list invitations failed")
		return
	}
	response.OK(c, invitations)
}

func (h *InvitationHandler) Revoke(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	invitationID, ok := pathID(c, "invitation_id")
	if !ok {
		return
	}

	if err := h.invitationService.Revoke(userID, teamID, invitationID); err != nil {
		response.FromError(c, err, "revoke invitation failed")
		return
	}
	response.OK(c, gin.H{"revoked_invitation_id": invitationID})
}

func (h *InvitationHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	invitations, err := h.invitationService.ListMine(userID)
	if err != nil {
		response.FromError(c, err, "list invitations failed")
		return
	}
	response.OK(c, invitations)
}

func (h *InvitationHandler) Accept(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	token, ok := invitationToken(c)
	if !ok {
		return
	}

	team, err := h.invitationService.Accept(userID, token)
	if err != nil {
		response.FromError(c, err, "accept invitation failed")
		return
	}
	response.OK(c, team)
}

func (h *InvitationHandler) Decline(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	token, ok := invitationToken(c)
	if !ok {
		return
	}

	if err := h.invitationService.Decline(userID, token); err != nil {
		response.FromError(c, err, "decline invitation failed")
		return
	}
	response.OK(c, gin.H{"declined": true})
}

func invitationToken(c *gin.Context) (string, bool) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" || len(token) > 64 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid token")
		return "", false
	}
	return token, true
}
