package cases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevansetu/telehealth-platform/internal/identity"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

func TestReleaseExpiredReturnsClaimsToPool(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now().UTC()
	past := now.Add(-10 * time.Minute)
	future := now.Add(time.Hour)

	store.Seed(Case{ID: "expired-intern", PatientID: "p1", Symptoms: "s", Status: StatusAssignedIntern, AssignedInternID: "intern-1", ClaimExpiresAt: &past, CreatedAt: now})
	store.Seed(Case{ID: "expired-doctor", PatientID: "p2", Symptoms: "s", Status: StatusAssignedDoctor, AssignedDoctorID: "doctor-1", ClaimExpiresAt: &past, CreatedAt: now})
	store.Seed(Case{ID: "live-claim", PatientID: "p3", Symptoms: "s", Status: StatusAssignedIntern, AssignedInternID: "intern-2", ClaimExpiresAt: &future, CreatedAt: now})

	reclaimer := NewReclaimer(store, nil, logging.New("error"), time.Minute)
	released, err := reclaimer.ReleaseExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), released)

	expired, err := store.GetCase(context.Background(), "expired-intern")
	require.NoError(t, err)
	assert.Equal(t, StatusPendingIntern, expired.Status)
	assert.Empty(t, expired.AssignedInternID)
	assert.Nil(t, expired.ClaimExpiresAt)

	expiredDoc, err := store.GetCase(context.Background(), "expired-doctor")
	require.NoError(t, err)
	assert.Equal(t, StatusPendingDoctor, expiredDoc.Status)
	assert.Empty(t, expiredDoc.AssignedDoctorID)

	live, err := store.GetCase(context.Background(), "live-claim")
	require.NoError(t, err)
	assert.Equal(t, StatusAssignedIntern, live.Status)
	assert.Equal(t, "intern-2", live.AssignedInternID)
}

func TestReleasedCaseIsClaimableAgain(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	store.Seed(Case{ID: "case-1", PatientID: "p1", Symptoms: "s", Status: StatusAssignedIntern, AssignedInternID: "intern-1", ClaimExpiresAt: &past, CreatedAt: now})

	reclaimer := NewReclaimer(store, nil, logging.New("error"), time.Minute)
	_, err := reclaimer.ReleaseExpired(context.Background())
	require.NoError(t, err)

	coord, _ := newTestCoordinator(t, store, map[string]identity.Role{"intern-2": identity.RoleIntern})
	result, err := coord.Claim(context.Background(), "case-1", "intern-2", identity.RoleIntern)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestReclaimerRunStopsOnCancel(t *testing.T) {
	store := NewMemoryStore()
	reclaimer := NewReclaimer(store, nil, logging.New("error"), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reclaimer.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reclaimer did not stop after cancel")
	}
}
