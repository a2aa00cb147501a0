package services

import (
	"context"
	"testing"
	"time"

	"github.com/Govind-619/FarmMart/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUnreconciled(t *testing.T) {
	f := newCallbackFixture(t)
	old := time.Now().Add(-2 * time.Hour)

	answered := f.request
	stale := f.fx.PaymentRequest(f.order, "M2", "C2")
	fresh := f.fx.PaymentRequest(f.order, "M3", "C3")
	for _, pr := range []*models.PaymentRequest{answered, stale} {
		require.NoError(t, f.db.Model(pr).Update("created_at", old).Error)
	}
	f.svc.HandleCallback(context.Background(), []byte(successCallback))
	f.svc.Wait()

	got, err := FindUnreconciled(context.Background(), f.db, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stale.ID, got[0].ID)
	assert.NotEqual(t, fresh.ID, got[0].ID)
}
