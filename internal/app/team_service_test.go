package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legiseye/internal/model"
)

func TestTeamLifecycle(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	svc := NewTeamService(f.teams, f.members, f.notifier, nil)

	_, err := svc.Create(owner.ID, "  ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	team, err := svc.Create(owner.ID, " Legal ", " contracts ")
	require.NoError(t, err)
	assert.Equal(t, "Legal", team.Name)

	list, err := svc.List(owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.RoleOwner, list[0].Role)
	assert.Equal(t, 1, list[0].MemberCount)

	member := f.user(t, "bob")
	f.join(t, team.ID, member.ID, model.RoleMember)

	_, err = svc.Update(member.ID, team.ID, "Mine", "")
	assert.ErrorIs(t, err, ErrForbidden)
	updated, err := svc.Update(owner.ID, team.ID, "Legal Ops", "all contracts")
	require.NoError(t, err)
	assert.Equal(t, "Legal Ops", updated.Name)

	detail, err := svc.Get(member.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, detail.Role)
	assert.Len(t, detail.Members, 2)

	stranger := f.user(t, "eve")
	_, err = svc.Get(stranger.ID, team.ID)
	assert.ErrorIs(t, err, ErrTeamNotFound)

	assert.ErrorIs(t, svc.Delete(member.ID, team.ID), ErrForbidden)
	require.NoError(t, svc.Delete(owner.ID, team.ID))
	_, err = svc.Get(owner.ID, team.ID)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestTeamRoleRules(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	admin := f.user(t, "bob")
	admin2 := f.user(t, "carol")
	member := f.user(t, "dan")
	svc := NewTeamService(f.teams, f.members, f.notifier, nil)
	team, err := svc.Create(owner.ID, "Legal", "")
	require.NoError(t, err)
	f.join(t, team.ID, admin.ID, model.RoleAdmin)
	f.join(t, team.ID, admin2.ID, model.RoleAdmin)
	f.join(t, team.ID, member.ID, model.RoleMember)

	assert.ErrorIs(t, svc.ChangeRole(admin.ID, team.ID, member.ID, model.RoleOwner), ErrInvalidInput)
	assert.ErrorIs(t, svc.ChangeRole(admin.ID, team.ID, member.ID, model.RoleAdmin), ErrForbidden)
	assert.ErrorIs(t, svc.ChangeRole(admin.ID, team.ID, admin2.ID, model.RoleViewer), ErrForbidden)
	assert.ErrorIs(t, svc.ChangeRole(member.ID, team.ID, admin.ID, model.RoleViewer), ErrForbidden)
	require.NoError(t, svc.ChangeRole(admin.ID, team.ID, member.ID, model.RoleViewer))
	require.NoError(t, svc.ChangeRole(owner.ID, team.ID, member.ID, model.RoleAdmin))
	assert.Equal(t, []string{model.NotifyTeamRoleChanged, model.NotifyTeamRoleChanged}, f.notificationTypes(t, member.ID))

	assert.ErrorIs(t, svc.RemoveMember(admin.ID, team.ID, owner.ID), ErrForbidden)
	assert.ErrorIs(t, svc.RemoveMember(admin.ID, team.ID, admin2.ID), ErrForbidden)
	assert.ErrorIs(t, svc.RemoveMember(owner.ID, team.ID, owner.ID), ErrOwnerCannotLeave)
	require.NoError(t, svc.RemoveMember(owner.ID, team.ID, admin2.ID))
	assert.Contains(t, f.notificationTypes(t, admin2.ID), model.NotifyTeamMemberRemoved)
	require.NoError(t, svc.RemoveMember(member.ID, team.ID, member.ID))
	assert.ErrorIs(t, svc.RemoveMember(owner.ID, team.ID, member.ID), ErrMemberNotFound)
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	admin := f.user(t, "bob")
	stranger := f.user(t, "eve")
	svc := NewTeamService(f.teams, f.members, f.notifier, nil)
	team, err := svc.Create(owner.ID, "Legal", "")
	require.NoError(t, err)
	f.join(t, team.ID, admin.ID, model.RoleAdmin)

	assert.ErrorIs(t, svc.TransferOwnership(admin.ID, team.ID, admin.ID), ErrForbidden)
	assert.ErrorIs(t, svc.TransferOwnership(owner.ID, team.ID, stranger.ID), ErrMemberNotFound)
	require.NoError(t, svc.TransferOwnership(owner.ID, team.ID, admin.ID))

	detail, err := svc.Get(owner.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, detail.Role)
	assert.Equal(t, admin.ID, detail.Team.OwnerID)
	require.NoError(t, svc.RemoveMember(owner.ID, team.ID, owner.ID))
}
