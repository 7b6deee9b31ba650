package handler

import (
	"github.com/gin-gonic/gin"

	"legiseye/internal/app"
	"legiseye/internal/transport/http/response"
)

type TeamHandler struct {
	teamService *app.TeamService
}

type TeamRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	Description string `json:"description" binding:"max=512"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type TransferOwnershipRequest struct {
	UserID uint `json:"user_id" binding:"required,gt=0"`
}

func NewTeamHandler(teamService *app.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

func (h *TeamHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req TeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.Create(userID, req.Name, req.Description)
	if err != nil {
		response.FromError(c, err, "create team failed")
		return
	}
	response.Created(c, team)
}

func (h *TeamHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	teams, err := h.teamService.List(userID)
	if err != nil {
		response.FromError(c, err, "list teams failed")
		return
	}
	response.OK(c, teams)
}

func (h *TeamHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.teamService.Get(userID, teamID)
	if err != nil {
		response.FromError(c, err, "get team failed")
		return
	}
	response.OK(c, detail)
}

func (h *TeamHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req TeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.Update(userID, teamID, req.Name, req.Description)
	if err != nil {
		response.FromError(c, err, "update team failed")
		return
	}
	response.OK(c, team)
}

func (h *TeamHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.teamService.Delete(userID, teamID); err != nil {
		response.FromError(c, err, "delete team failed")
		return
	}
	response.OK(c, gin.H{"deleted_team_id": teamID})
}

// RemoveMember also serves "leave team" when user_id is the caller.
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := h.teamService.RemoveMember(userID, teamID, targetID); err != nil {
		response.FromError(c, err, "remove member failed")
		return
	}
	response.OK(c, gin.H{"team_id": teamID, "removed_user_id": targetID})
}

func (h *TeamHandler) ChangeRole(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	var req ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.teamService.ChangeRole(userID, teamID, targetID, req.Role); err != nil {
		response.FromError(c, err, "change role failed")
		return
	}
	response.OK(c, gin.H{"team_id": teamID, "user_id": targetID, "role": req.Role})
}

func (h *TeamHandler) TransferOwnership(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req TransferOwnershipRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.teamService.TransferOwnership(userID, teamID, req.UserID); err != nil {
		response.FromError(c, err, "transfer ownership failed")
		return
	}
	response.OK(c, gin.H{"team_id": teamID, "owner_id": req.UserID})
}
