package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legiseye/internal/model"
)

func TestNotificationFlow(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	svc := f.notifier

	svc.NotifyAll([]uint{alice.ID, bob.ID, bob.ID}, alice.ID, model.Notification{Type: model.NotifyDocumentShared, Title: "shared"})
	svc.Notify(model.Notification{UserID: bob.ID, Type: model.NotifyCommentAdded, Title: "comment"})

	count, err := svc.UnreadCount(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	none, err := svc.UnreadCount(alice.ID)
	require.NoError(t, err)
	assert.Zero(t, none)

	list, err := svc.List(bob.ID, true, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, svc.MarkRead(bob.ID, list[0].ID))
	assert.ErrorIs(t, svc.MarkRead(alice.ID, list[1].ID), ErrNotificationNotFound)

	marked, err := svc.MarkAllRead(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	assert.ErrorIs(t, svc.Delete(alice.ID, list[0].ID), ErrNotificationNotFound)
	require.NoError(t, svc.Delete(bob.ID, list[0].ID))
	remaining, err := svc.List(bob.ID, false, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
