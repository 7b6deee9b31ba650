// Package access ranks team roles and decides what each role may do.
package access

import "legiseye/internal/model"

type Action string

const (
	ViewDocument        Action = "view_document"
	CommentDocument     Action = "comment_document"
	UploadToTeam        Action = "upload_to_team"
	ShareDocument       Action = "share_document"
	DeleteTeamDocument  Action = "delete_team_document"
	ManageDocument      Action = "manage_document"
	ResolveComment      Action = "resolve_comment"
	ModerateComment     Action = "moderate_comment"
	ManageMembers       Action = "manage_members"
	ChangeRoles         Action = "change_roles"
	InviteMembers       Action = "invite_members"
	UpdateTeam          Action = "update_team"
	DeleteTeam          Action = "delete_team"
	TransferOwnership   Action = "transfer_ownership"
	UnshareFromTeam     Action = "unshare_from_team"
	ViewTeamInvitations Action = "view_team_invitations"
)

var minimumRole = map[Action]string{
	ViewDocument:        model.RoleViewer,
	CommentDocument:     model.RoleMember,
	UploadToTeam:        model.RoleMember,
	ShareDocument:       model.RoleMember,
	ResolveComment:      model.RoleMember,
	DeleteTeamDocument:  model.RoleAdmin,
	ManageDocument:      model.RoleAdmin,
	ModerateComment:     model.RoleAdmin,
	ManageMembers:       model.RoleAdmin,
	ChangeRoles:         model.RoleAdmin,
	InviteMembers:       model.RoleAdmin,
	UpdateTeam:          model.RoleAdmin,
	UnshareFromTeam:     model.RoleAdmin,
	ViewTeamInvitations: model.RoleAdmin,
	DeleteTeam:          model.RoleOwner,
	TransferOwnership:   model.RoleOwner,
}

// Rank orders roles: viewer 1, member 2, admin 3, owner 4. Unknown roles rank 0.
func Rank(role string) int {
	switch role {
	case model.RoleViewer:
		return 1
	case model.RoleMember:
		return 2
	case model.RoleAdmin:
		return 3
	case model.RoleOwner:
		return 4
	default:
		return 0
	}
}

// Can reports whether role is allowed to perform action.
func Can(role string, action Action) bool {
	minRole, ok := minimumRole[action]
	if !ok {
		return false
	}
	r := Rank(role)
	return r > 0 && r >= Rank(minRole)
}

// Assignable reports whether role may be given through invitations or role
// changes. Ownership only moves by transfer.
func Assignable(role string) bool {
	switch role {
	case model.RoleAdmin, model.RoleMember, model.RoleViewer:
		return true
	default:
		return false
	}
}

// CanChangeRole checks that actor outranks both the target's current role and
// the role being assigned.
func CanChangeRole(actorRole, targetRole, newRole string) bool {
	if !Can(actorRole, ChangeRoles) || !Assignable(newRole) {
		return false
	}
	actor := Rank(actorRole)
	return Rank(targetRole) < actor && Rank(newRole) < actor
}

// CanRemoveMember allows admins and owners to remove lower ranked members.
// The owner is never removable.
func CanRemoveMember(actorRole, targetRole string) bool {
	if targetRole == model.RoleOwner || !Can(actorRole, ManageMembers) {
		return false
	}
	return Rank(targetRole) < Rank(actorRole)
}

// CanInviteAs allows an inviter to grant at most a role below their own.
func CanInviteAs(actorRole, role string) bool {
	return Can(actorRole, InviteMembers) && Assignable(role) && Rank(role) < Rank(actorRole)
}

// Best returns the highest ranked role, or "" for none.
func Best(roles ...string) string {
	best := ""
	for _, r := range roles {
		if Rank(r) > Rank(best) {
			best = r
		}
	}
	return best
}
