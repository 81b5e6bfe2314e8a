package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeLog struct {
	mu  sync.Mutex
	got []Change
}

func (l *changeLog) add(c Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, c)
}

func (l *changeLog) snapshot() []Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Change(nil), l.got...)
}

func TestMemory_SharedBackendNotifiesOtherTabs(t *testing.T) {
	ctx := context.Background()
	tab1 := NewMemory()
	tab2 := tab1.NewTab()

	var seen1, seen2 changeLog
	cancel1, err := tab1.Subscribe(ctx, seen1.add)
	require.NoError(t, err)
	defer cancel1()
	cancel2, err := tab2.Subscribe(ctx, seen2.add)
	require.NoError(t, err)

	require.NoError(t, tab1.Set(ctx, KeyActiveCareRecipientID, "7"))

	v, err := tab2.Get(ctx, KeyActiveCareRecipientID)
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	assert.Empty(t, seen1.snapshot(), "own writes are not notified")
	assert.Equal(t, []Change{{Key: KeyActiveCareRecipientID, Value: "7"}}, seen2.snapshot())

	require.NoError(t, tab1.Delete(ctx, KeyActiveCareRecipientID))
	require.NoError(t, tab1.Delete(ctx, KeyActiveCareRecipientID))
	assert.Len(t, seen2.snapshot(), 2, "deleting a missing key does not notify")

	cancel2()
	cancel2()
	require.NoError(t, tab1.Set(ctx, "other", "x"))
	assert.Len(t, seen2.snapshot(), 2)

	_, err = tab2.Get(ctx, KeyActiveCareRecipientID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "carectl", "state.json")

	f1, err := NewFile(path)
	require.NoError(t, err)

	_, err = f1.Get(ctx, KeyAuthToken)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f1.Set(ctx, KeyAuthToken, "tok"))
	require.NoError(t, f1.Set(ctx, KeyUnlockedEmergencyInfoIDs, `[42]`))

	f2, err := NewFile(path)
	require.NoError(t, err)
	v, err := f2.Get(ctx, KeyUnlockedEmergencyInfoIDs)
	require.NoError(t, err)
	assert.Equal(t, `[42]`, v)

	require.NoError(t, f2.Delete(ctx, KeyAuthToken))
	_, err = f1.Get(ctx, KeyAuthToken)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewFile("")
	assert.Error(t, err)
}

func setupRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedis_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewRedis(setupRedis(t), "test")

	_, err := s.Get(ctx, KeyActiveCareRecipientID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeyActiveCareRecipientID, "7"))
	v, err := s.Get(ctx, KeyActiveCareRecipientID)
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	require.NoError(t, s.Delete(ctx, KeyActiveCareRecipientID))
	_, err = s.Get(ctx, KeyActiveCareRecipientID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_NotifiesOtherInstances(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t)
	tab1 := NewRedis(client, "test")
	tab2 := NewRedis(client, "test")

	var seen1, seen2 changeLog
	cancel1, err := tab1.Subscribe(ctx, seen1.add)
	require.NoError(t, err)
	defer cancel1()
	cancel2, err := tab2.Subscribe(ctx, seen2.add)
	require.NoError(t, err)
	defer cancel2()

	require.NoError(t, tab1.Set(ctx, KeyUnlockedEmergencyInfoIDs, `["e1"]`))

	require.Eventually(t, func() bool { return len(seen2.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, Change{Key: KeyUnlockedEmergencyInfoIDs, Value: `["e1"]`}, seen2.snapshot()[0])

	require.NoError(t, tab2.Delete(ctx, KeyUnlockedEmergencyInfoIDs))
	require.Eventually(t, func() bool { return len(seen1.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, seen1.snapshot()[0].Deleted)

	// tab1 nunca ve su propia escritura
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, seen1.snapshot(), 1)
}
