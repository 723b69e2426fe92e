package models

import (
	"errors"
	"testing"
	"time"

	"clinicdesk/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_Lifecycle(t *testing.T) {
	q := NewQueue(4, 9, "2024-05-01")
	require.NotNil(t, q.OpenClinicID)
	assert.Equal(t, uint(4), *q.OpenClinicID)
	assert.Equal(t, QueueStatusOpen, q.Status)

	pos, err := q.Admit()
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.Equal(t, QueueStatusActive, q.Status)

	pos, err = q.Admit()
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	now := time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC)
	require.NoError(t, q.Close(now))
	assert.True(t, q.IsClosed())
	assert.Nil(t, q.OpenClinicID)
	require.NotNil(t, q.ClosedAt)
	assert.Equal(t, now, *q.ClosedAt)
}

func TestQueue_ClosedIsTerminal(t *testing.T) {
	q := NewQueue(1, 1, "2024-05-01")
	require.NoError(t, q.Close(time.Now()))

	_, err := q.Admit()
	assert.True(t, errors.Is(err, domain.ErrNoOpenQueue))
	assert.True(t, errors.Is(q.Close(time.Now()), domain.ErrNoOpenQueue))
}

func TestQueue_CloseFromOpenWithoutEntries(t *testing.T) {
	q := NewQueue(1, 1, "2024-05-01")
	require.NoError(t, q.Close(time.Now()))
	assert.Equal(t, 0, q.LastPosition)
}

func TestQueue_IsStale(t *testing.T) {
	q := NewQueue(1, 1, "2024-05-01")
	assert.False(t, q.IsStale("2024-05-01"))
	assert.True(t, q.IsStale("2024-05-02"))

	require.NoError(t, q.Close(time.Now()))
	assert.False(t, q.IsStale("2024-05-02"), "closed queues are never stale")
}

func TestQueueEntry_Serve(t *testing.T) {
	e := &QueueEntry{ID: 5, Status: EntryStatusWaiting}
	now := time.Now()

	require.NoError(t, e.Serve(now))
	assert.Equal(t, EntryStatusServed, e.Status)
	assert.False(t, e.IsWaiting())

	err := e.Serve(now)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestPrescriptionItem_DosageRefs(t *testing.T) {
	d, p := uint(3), uint(8)
	item := PrescriptionItem{DosageID: &d, PeriodID: &p}
	assert.Equal(t, []uint{3, 8}, item.DosageRefs())
	assert.Empty(t, (&PrescriptionItem{}).DosageRefs())
}

func TestClinic_LocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, (&Clinic{}).Location())
	assert.Equal(t, time.UTC, (&Clinic{Timezone: "Not/AZone"}).Location())
	assert.Equal(t, "Asia/Colombo", (&Clinic{Timezone: "Asia/Colombo"}).Location().String())
}
