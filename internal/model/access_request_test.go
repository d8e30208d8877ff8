package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessRequestStatePredicates(t *testing.T) {
	req := &AccessRequest{State: RequestStatePending}
	assert.True(t, req.IsPending())
	assert.False(t, req.IsGranted())
	assert.False(t, req.IsRevoked())

	req.State = RequestStateGranted
	assert.True(t, req.IsGranted())
	assert.False(t, req.IsPending())

	req.State = RequestStateRevoked
	assert.True(t, req.IsRevoked())
	assert.False(t, req.IsGranted())
}

func TestIsAccessValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(time.Hour)

	tests := []struct {
		name  string
		req   AccessRequest
		at    time.Time
		valid bool
	}{
		{
			name:  "pending is never valid",
			req:   AccessRequest{State: RequestStatePending},
			at:    now,
			valid: false,
		},
		{
			name:  "granted before expiry",
			req:   AccessRequest{State: RequestStateGranted, ExpiryTime: &expiry},
			at:    now,
			valid: true,
		},
		{
			name:  "granted exactly at expiry",
			req:   AccessRequest{State: RequestStateGranted, ExpiryTime: &expiry},
			at:    expiry,
			valid: true,
		},
		{
			name:  "granted after expiry",
			req:   AccessRequest{State: RequestStateGranted, ExpiryTime: &expiry},
			at:    expiry.Add(time.Second),
			valid: false,
		},
		{
			name:  "granted with no recorded expiry never expires",
			req:   AccessRequest{State: RequestStateGranted},
			at:    now.Add(1000 * time.Hour),
			valid: true,
		},
		{
			name:  "revoked is invalid even before expiry",
			req:   AccessRequest{State: RequestStateRevoked, ExpiryTime: &expiry},
			at:    now,
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.req.IsAccessValid(tt.at))
		})
	}
}

func TestIsAccessValidIsPure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(time.Hour)
	req := AccessRequest{State: RequestStateGranted, ExpiryTime: &expiry}

	// Одинаковый снимок + одинаковый now -> одинаковый результат
	for i := 0; i < 5; i++ {
		assert.True(t, req.IsAccessValid(now))
		assert.False(t, req.IsAccessValid(expiry.Add(time.Nanosecond)))
	}
}
