package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetGlobalMetricsIsSingleton(t *testing.T) {
	first := GetGlobalMetrics()
	second := GetGlobalMetrics()
	assert.Same(t, first, second)
}

func TestRecordingDoesNotPanic(t *testing.T) {
	m := GetGlobalMetrics()

	m.IncrementScansTotal("success")
	m.RecordScanDuration("success", 3*time.Second)
	m.IncrementHostsScanned("alive")
	m.IncrementPipelineFaults()
	m.PipelineStarted()
	m.PipelineFinished()
	m.IncrementProbesTotal("ping", "ok")
	m.RecordProbeDuration("ping", 5*time.Millisecond)
	m.IncrementStoreQueries("record_host", "success")
	m.IncrementStoreErrors("record_host")
}

func TestRegistryGathers(t *testing.T) {
	m := GetGlobalMetrics()
	m.IncrementScansTotal("success")

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["hostscan_scan_total"])
	assert.True(t, names["hostscan_scan_active_pipelines"])
}
