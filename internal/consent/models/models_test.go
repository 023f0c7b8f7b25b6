package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestCurrentStatus(t *testing.T) {
	userID := uuid.New()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	t.Run("one entry per type, latest grant wins", func(t *testing.T) {
		records := []*Record{
			{UserID: userID, ConsentType: "marketing", ConsentVersion: "1.0", Granted: true, GrantedAt: ptrTime(t0)},
			{UserID: userID, ConsentType: "marketing", ConsentVersion: "2.0", Granted: true, GrantedAt: ptrTime(t1)},
			{UserID: userID, ConsentType: "analytics", ConsentVersion: "1.0", Granted: true, GrantedAt: ptrTime(t0)},
		}

		status := CurrentStatus(records)
		require.Len(t, status, 2)
		assert.Equal(t, "2.0", status["marketing"].ConsentVersion)
		assert.True(t, status["marketing"].IsActive)
	})

	t.Run("revoked grant is present but inactive", func(t *testing.T) {
		records := []*Record{
			{ConsentType: "marketing", ConsentVersion: "1.0", Granted: true, GrantedAt: ptrTime(t0), RevokedAt: ptrTime(t1)},
			{ConsentType: "marketing", ConsentVersion: RevokeMarkerVersion, Granted: false, RevokedAt: ptrTime(t1)},
		}

		status := CurrentStatus(records)
		require.Contains(t, status, "marketing")
		assert.False(t, status["marketing"].IsActive)
		// The granted record outranks the never-granted marker (epoch grant time).
		assert.True(t, status["marketing"].Granted)
		assert.NotNil(t, status["marketing"].RevokedAt)
	})

	t.Run("never-granted type still appears", func(t *testing.T) {
		records := []*Record{
			{ConsentType: "research", ConsentVersion: "1.0", Granted: false, RevokedAt: ptrTime(t0)},
		}

		status := CurrentStatus(records)
		require.Contains(t, status, "research")
		assert.False(t, status["research"].IsActive)
	})

	t.Run("empty ledger yields empty map", func(t *testing.T) {
		assert.Empty(t, CurrentStatus(nil))
	})
}

func TestRecordIsActive(t *testing.T) {
	now := time.Now()
	assert.True(t, Record{Granted: true}.IsActive())
	assert.False(t, Record{Granted: true, RevokedAt: &now}.IsActive())
	assert.False(t, Record{Granted: false}.IsActive())
}
