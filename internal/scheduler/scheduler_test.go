package scheduler

import (
	"net/netip"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvisle/hostscan/internal/config"
	"github.com/kvisle/hostscan/internal/errors"
)

func newTestScheduler() *Scheduler {
	return New(config.Default(), nil)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	id, err := s.AddJob("office", "0 * * * *",
		netip.MustParseAddr("192.168.0.1"), netip.MustParseAddr("192.168.0.254"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "office", jobs[0].Name)
	assert.Equal(t, "0 * * * *", jobs[0].CronExpr)
	assert.False(t, jobs[0].Running)
}

func TestAddJobValidation(t *testing.T) {
	tests := []struct {
		name  string
		cron  string
		start string
		end   string
		code  errors.ErrorCode
	}{
		{
			name:  "invalid cron expression",
			cron:  "not a cron",
			start: "10.0.0.1",
			end:   "10.0.0.2",
			code:  errors.CodeValidation,
		},
		{
			name:  "inverted range",
			cron:  "0 * * * *",
			start: "10.0.0.2",
			end:   "10.0.0.1",
			code:  errors.CodeInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler()
			defer s.Stop()

			id, err := s.AddJob("bad", tt.cron,
				netip.MustParseAddr(tt.start), netip.MustParseAddr(tt.end))
			require.Error(t, err)
			assert.Equal(t, uuid.Nil, id)
			assert.True(t, errors.IsCode(err, tt.code))
			assert.Empty(t, s.ListJobs())
		})
	}
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	id, err := s.AddJob("office", "0 * * * *",
		netip.MustParseAddr("10.0.0.1"), netip.MustParseAddr("10.0.0.2"))
	require.NoError(t, err)

	require.NoError(t, s.RemoveJob(id))
	assert.Empty(t, s.ListJobs())

	err = s.RemoveJob(id)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())

	s.Stop()
	// Stopping twice is harmless.
	s.Stop()
}
