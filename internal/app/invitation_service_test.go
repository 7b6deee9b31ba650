package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legiseye/internal/jobs"
	"legiseye/internal/model"
)

func newInvitationService(f *fixture, queue Publisher, now time.Time) *InvitationService {
	svc := NewInvitationService(f.teams, f.members, f.users, f.invitations, f.notifier, NewMailer(queue, nil, nil),
		InvitationServiceConfig{TTL: 72 * time.Hour, BaseURL: "http://app.test/"}, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestInviteAndAccept(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	invitee := f.user(t, "bob")
	team := f.team(t, owner.ID, "Legal")
	queue := &recordingPublisher{}
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	svc := newInvitationService(f, queue, now)
	ctx := context.Background()

	inv, err := svc.Invite(ctx, InviteInput{ActorID: owner.ID, TeamID: team.ID, Email: " BOB@example.com ", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", inv.Email)
	assert.Equal(t, model.InvitationPending, inv.Status)
	assert.Equal(t, now.Add(72*time.Hour), inv.ExpiresAt)
	assert.NotEmpty(t, inv.Token)

	require.Len(t, queue.payloads, 1)
	email := queue.payloads[0].(jobs.Email)
	assert.Equal(t, "bob@example.com", email.To)
	assert.Contains(t, email.Text, "http://app.test/invitations/"+inv.Token)
	assert.Equal(t, []string{model.NotifyTeamInvitation}, f.notificationTypes(t, invitee.ID))

	_, err = svc.Invite(ctx, InviteInput{ActorID: owner.ID, TeamID: team.ID, Email: "bob@example.com"})
	assert.ErrorIs(t, err, ErrInvitationPending)

	mine, err := svc.ListMine(invitee.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Legal", mine[0].TeamName)

	stranger := f.user(t, "eve")
	_, err = svc.Accept(stranger.ID, inv.Token)
	assert.ErrorIs(t, err, ErrInvitationWrongEmail)

	joined, err := svc.Accept(invitee.ID, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, team.ID, joined.ID)

	member, err := f.members.Get(team.ID, invitee.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, model.RoleAdmin, member.Role)
	assert.Contains(t, f.notificationTypes(t, owner.ID), model.NotifyTeamMemberAdded)

	_, err = svc.Accept(invitee.ID, inv.Token)
	assert.ErrorIs(t, err, ErrInvitationClosed)

	_, err = svc.Invite(ctx, InviteInput{ActorID: owner.ID, TeamID: team.ID, Email: "bob@example.com"})
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestInvitePermissions(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	admin := f.user(t, "bob")
	member := f.user(t, "carol")
	team := f.team(t, owner.ID, "Legal")
	f.join(t, team.ID, admin.ID, model.RoleAdmin)
	f.join(t, team.ID, member.ID, model.RoleMember)
	svc := newInvitationService(f, &recordingPublisher{}, time.Now())
	ctx := context.Background()

	_, err := svc.Invite(ctx, InviteInput{ActorID: member.ID, TeamID: team.ID, Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Invite(ctx, InviteInput{ActorID: admin.ID, TeamID: team.ID, Email: "x@example.com", Role: "admin"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Invite(ctx, InviteInput{ActorID: owner.ID, TeamID: team.ID, Email: "x@example.com", Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Invite(ctx, InviteInput{ActorID: owner.ID, TeamID: team.ID, Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	inv, err := svc.Invite(ctx, InviteInput{ActorID: admin.ID, TeamID: team.ID, Email: "x@example.com", Role: "viewer"})
	require.NoError(t, err)

	_, err = svc.ListTeam(member.ID, team.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	list, err := svc.ListTeam(admin.ID, team.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.ErrorIs(t, svc.Revoke(member.ID, team.ID, inv.ID), ErrForbidden)
	require.NoError(t, svc.Revoke(admin.ID, team.ID, inv.ID))
	assert.ErrorIs(t, svc.Revoke(admin.ID, team.ID, inv.ID), ErrInvitationClosed)
}

func TestInvitationExpiresAndDecline(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	team := f.team(t, owner.ID, "Legal")
	start := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	svc := newInvitationService(f, &recordingPublisher{}, start)
	ctx := context.Background()

	first, err := svc.Invite(ctx, InviteInput{ActorID: owner.ID, TeamID: team.ID, Email: "late@example.com"})
	require.NoError(t, err)
	second, err := svc.Invite(ctx, InviteInput{ActorID: owner.ID, TeamID: team.ID, Email: "shy@example.com"})
	require.NoError(t, err)

	late := f.user(t, "late")
	shy := f.user(t, "shy")

	svc.now = func() time.Time { return start.Add(73 * time.Hour) }
	_, err = svc.Accept(late.ID, first.Token)
	assert.ErrorIs(t, err, ErrInvitationExpired)

	list, err := svc.ListTeam(owner.ID, team.ID)
	require.NoError(t, err)
	for _, inv := range list {
		assert.Equal(t, model.InvitationExpired, inv.Status)
	}

	svc.now = func() time.Time { return start.Add(time.Hour) }
	require.NoError(t, svc.Decline(shy.ID, second.Token))
	_, err = svc.Accept(shy.ID, second.Token)
	assert.ErrorIs(t, err, ErrInvitationClosed)

	_, err = svc.Accept(shy.ID, "missing-token")
	assert.ErrorIs(t, err, ErrInvitationNotFound)
}
