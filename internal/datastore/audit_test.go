package datastore

import (
	"testing"
	"time"

	"github.com/safetrack/safetrack/internal/datastore/entities"
	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditConsumerWritesOneRowPerEvent(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	seedInspection(t, m, "insp-audit", string(inspection.StatusInProgress), 2)
	audit := NewAuditConsumer(m)
	assert.Equal(t, "audit", audit.Name())

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	events := []inspection.Event{
		{
			Type:         inspection.EventResponseRecorded,
			InspectionID: "insp-audit",
			ActorID:      "alice",
			ItemID:       "insp-audit-item-1",
			State:        inspection.StateNOK,
			Comment:      "guard missing",
			Status:       inspection.StatusInProgress,
			At:           at,
		},
		{
			Type:         inspection.EventItemsMarkedNA,
			InspectionID: "insp-audit",
			ActorID:      "sup",
			Reason:       "area closed",
			Count:        1,
			Status:       inspection.StatusInProgress,
			At:           at.Add(time.Minute),
		},
		{
			Type:           inspection.EventInspectionTransitioned,
			InspectionID:   "insp-audit",
			ActorID:        "sup",
			PreviousStatus: inspection.StatusInProgress,
			Status:         inspection.StatusForcedClosed,
			Reason:         "guard missing",
			At:             at.Add(2 * time.Minute),
		},
	}
	for _, ev := range events {
		require.NoError(t, audit.ProcessEvent(ev))
	}

	rows, err := audit.History(t.Context(), "insp-audit", 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, entities.AuditResponseRecorded, rows[0].Action)
	assert.Equal(t, entities.EntityItemResponse, rows[0].EntityType)
	assert.Equal(t, "insp-audit-item-1", rows[0].EntityID)
	assert.Equal(t, "NOK", rows[0].Metadata["state"])
	assert.Equal(t, "guard missing", rows[0].Metadata["comment"])
	require.NotNil(t, rows[0].UserID)
	assert.Equal(t, "alice", *rows[0].UserID)

	assert.Equal(t, entities.AuditItemsMarkedNA, rows[1].Action)
	assert.Equal(t, entities.EntityInspection, rows[1].EntityType)
	assert.InDelta(t, 1, rows[1].Metadata["count"], 0)

	assert.Equal(t, entities.AuditInspectionTransition, rows[2].Action)
	assert.Equal(t, "in_progress", rows[2].Metadata["from"])
	assert.Equal(t, "forced_closed", rows[2].Metadata["to"])
	assert.Equal(t, "guard missing", rows[2].Metadata["reason"])

	limited, err := audit.History(t.Context(), "insp-audit", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAuditRowWithoutActor(t *testing.T) {
	t.Parallel()

	row := auditRow(inspection.Event{
		Type:         inspection.EventInspectionTransitioned,
		InspectionID: "insp-1",
		Status:       inspection.StatusInProgress,
	})
	assert.Nil(t, row.UserID)
	assert.False(t, row.CreatedAt.IsZero())
	assert.NotContains(t, row.Metadata, "reason")
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	ctx := t.Context()

	demo, err := m.SeedDemo(ctx)
	require.NoError(t, err)
	_, err = m.SeedDemo(ctx)
	require.NoError(t, err)

	store := NewInspectionStore(m)
	insp, err := store.GetInspection(ctx, demo.InspectionID)
	require.NoError(t, err)
	assert.Equal(t, inspection.StatusInProgress, insp.Status)

	items, err := store.GetItems(ctx, demo.InspectionID)
	require.NoError(t, err)
	assert.Len(t, items, demo.Items)

	ok, err := NewRoleRepository(m, 0).HasAnyRole(ctx, DemoSupervisorID, inspection.DefaultElevatedRoles...)
	require.NoError(t, err)
	assert.True(t, ok)

	var grants int64
	require.NoError(t, m.DB().Model(&entities.UserRole{}).Count(&grants).Error)
	assert.EqualValues(t, len(demo.Users), grants)
}
