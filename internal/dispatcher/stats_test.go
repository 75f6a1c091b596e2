package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCountersSnapshot(t *testing.T) {
	stats := &Stats{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stats.recordPoll(true, at)
	stats.recordPoll(false, at.Add(time.Second))
	stats.recordDelivered(at.Add(2 * time.Second))
	stats.recordFailed(at.Add(3 * time.Second))
	stats.recordDeadLetter(at.Add(4 * time.Second))
	stats.recordRecovered(3)
	stats.recordRecovered(0)
	stats.recordProcessingError()

	counters := stats.Counters()
	assert.Equal(t, int64(3), counters.ItemsProcessed)
	assert.Equal(t, int64(1), counters.ItemsDelivered)
	assert.Equal(t, int64(2), counters.ItemsFailed, "dead letters count as failures too")
	assert.Equal(t, int64(1), counters.ItemsDeadLetter)
	assert.Equal(t, int64(3), counters.ItemsRecovered)
	assert.Equal(t, int64(2), counters.PollCycles)
	assert.Equal(t, int64(1), counters.EmptyPolls)
	assert.Equal(t, int64(1), counters.ProcessingErrors)
	require.NotNil(t, counters.LastPollAt)
	assert.Equal(t, at.Add(time.Second), *counters.LastPollAt)
	require.NotNil(t, counters.LastEventAt)
	assert.Equal(t, at.Add(4*time.Second), *counters.LastEventAt)
}

func TestStatsZeroTimestampsStayOmitted(t *testing.T) {
	counters := (&Stats{}).Counters()
	assert.Nil(t, counters.LastPollAt)
	assert.Nil(t, counters.LastEventAt)
}
