package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampPage(t *testing.T) {
	tests := []struct {
		name                string
		limit, offset       int
		wantLimit, wantOffs int
	}{
		{"defaults", 0, 0, 20, 0},
		{"kept", 5, 10, 5, 10},
		{"capped", 500, 0, 100, 0},
		{"negative offset", 5, -3, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := ClampPage(tt.limit, tt.offset, DefaultPageSize, MaxPageSize)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffs, offset)
		})
	}
}

func TestNewPaginationInfo(t *testing.T) {
	assert.True(t, NewPaginationInfo(30, 10, 0, 10).HasMore)
	assert.False(t, NewPaginationInfo(30, 10, 20, 10).HasMore)
	assert.False(t, NewPaginationInfo(0, 10, 0, 0).HasMore)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, ParseDuration("90s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("0s", time.Minute))
}

func TestDaysAgo(t *testing.T) {
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), DaysAgo(now, 30))
}
