package memory

import (
	"context"
	"testing"
	"time"

	"caregiver-support/internal/domain/carerecipients"
	"caregiver-support/internal/domain/emergencyinfo"
	"caregiver-support/internal/domain/records"
	"caregiver-support/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCareRecipientRepo_ListKeepsInsertionOrder(t *testing.T) {
	repo := NewCareRecipientRepo()
	ctx := context.Background()
	same := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Create(ctx, carerecipients.CareRecipient{ID: id, OwnerUserID: "u1", CreatedAt: same}))
	}
	require.NoError(t, repo.Create(ctx, carerecipients.CareRecipient{ID: "x", OwnerUserID: "u2", CreatedAt: same}))

	got, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	ids := []string{}
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	require.NoError(t, repo.Delete(ctx, "a"))
	_, err = repo.GetByID(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, carerecipients.ErrNotFound)
}

func TestRecordRepo_ListFiltersAndOrders(t *testing.T) {
	repo := NewRecordRepo()
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	add := func(id, rid string, kind records.Kind, h int) {
		require.NoError(t, repo.Create(ctx, records.Record{
			ID: id, CareRecipientID: rid, Kind: kind, OccurredAt: base.Add(time.Duration(h) * time.Hour),
		}))
	}
	add("m1", "7", records.KindMeals, 8)
	add("m2", "7", records.KindMeals, 12)
	add("m3", "7", records.KindMeals, 30)
	add("n1", "7", records.KindNotes, 9)
	add("m4", "8", records.KindMeals, 9)

	to := base.Add(24 * time.Hour)
	got, err := repo.List(ctx, records.ListFilter{
		CareRecipientID: "7",
		Kinds:           []records.Kind{records.KindMeals},
		From:            &base,
		To:              &to,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].ID)
	assert.Equal(t, "m1", got[1].ID)

	limited, err := repo.List(ctx, records.ListFilter{CareRecipientID: "7", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "m3", limited[0].ID)

	require.NoError(t, repo.DeleteByRecipient(ctx, "7"))
	left, err := repo.List(ctx, records.ListFilter{CareRecipientID: "8"})
	require.NoError(t, err)
	assert.Len(t, left, 1)
	none, err := repo.List(ctx, records.ListFilter{CareRecipientID: "7"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepos_DuplicatesMapToDomainConflicts(t *testing.T) {
	ctx := context.Background()

	infos := NewEmergencyInfoRepo()
	require.NoError(t, infos.Create(ctx, emergencyinfo.Info{ID: "e1", CareRecipientID: "7"}))
	assert.ErrorIs(t, infos.Create(ctx, emergencyinfo.Info{ID: "e2", CareRecipientID: "7"}), emergencyinfo.ErrAlreadyExists)
	_, err := infos.GetByRecipient(ctx, "8")
	assert.ErrorIs(t, err, emergencyinfo.ErrNotFound)

	people := NewUserRepo()
	require.NoError(t, people.Create(ctx, users.User{ID: "u1", Email: "ana@example.com"}))
	assert.ErrorIs(t, people.Create(ctx, users.User{ID: "u2", Email: "ana@example.com"}), users.ErrEmailTaken)
}
