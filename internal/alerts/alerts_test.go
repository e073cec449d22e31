package alerts

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffScansDetectsNewRemovedAndChanged(t *testing.T) {
	previous := []Asset{
		{IP: "192.168.1.10", MAC: "aa:bb", Category: "iot", OpenPorts: []int{80}},
		{IP: "192.168.1.11", MAC: "cc:dd", Category: "unclassified"},
	}
	current := []Asset{
		{IP: "192.168.1.10", MAC: "aa:bb", Category: "iot", OpenPorts: []int{80, 443}},
		{IP: "192.168.1.12", MAC: "ee:ff", Category: "iot"},
	}

	diff := DiffScans(current, previous)
	require.Len(t, diff.NewAssets, 1)
	assert.Equal(t, "192.168.1.12", diff.NewAssets[0].IP)

	require.Len(t, diff.RemovedAssets, 1)
	assert.Equal(t, "192.168.1.11", diff.RemovedAssets[0].IP)

	require.Len(t, diff.ChangedAssets, 1)
	assert.Equal(t, TypePortChange, diff.ChangedAssets[0].ChangeType)
	assert.True(t, diff.HasChanges())
}

func TestDiffScansCountsUnchangedAssets(t *testing.T) {
	assets := []Asset{{IP: "192.168.1.10", MAC: "aa:bb", Category: "iot"}}
	diff := DiffScans(assets, assets)
	assert.Equal(t, 1, diff.UnchangedCount)
	assert.False(t, diff.HasChanges())
}

func TestEvaluateDiffProducesNewDeviceAlert(t *testing.T) {
	diff := DiffResult{NewAssets: []Asset{{IP: "192.168.1.50"}}}
	alerts := EvaluateDiff(diff, nil, 0)
	require.Len(t, alerts, 1)
	assert.Equal(t, TypeNewDevice, alerts[0].Type)
	assert.Equal(t, SeverityWarning, alerts[0].Severity)
}

func TestEvaluateDiffTriggersMassChangeAtThreshold(t *testing.T) {
	var assets []Asset
	for i := 0; i < 10; i++ {
		assets = append(assets, Asset{IP: "192.168.1.1"})
	}
	diff := DiffResult{NewAssets: assets}
	alerts := EvaluateDiff(diff, nil, 10)

	var massAlerts int
	for _, a := range alerts {
		if a.Type == TypeMassChange {
			massAlerts++
			assert.Equal(t, SeverityCritical, a.Severity)
		}
	}
	assert.Equal(t, 1, massAlerts)
}

func TestEvaluateDiffMatchesRogueDeviceRule(t *testing.T) {
	diff := DiffResult{NewAssets: []Asset{{IP: "10.66.0.5", MAC: "de:ad:be:ef:00:01"}}}
	rules := []RogueRule{{IPPrefix: "10.66.", Severity: SeverityCritical}}

	alerts := EvaluateDiff(diff, rules, 0)
	var found bool
	for _, a := range alerts {
		if a.Type == TypeRogueDevice {
			found = true
			assert.Equal(t, SeverityCritical, a.Severity)
		}
	}
	assert.True(t, found)
}

func TestEvaluateDiffGivesEachFieldChangeItsOwnType(t *testing.T) {
	diff := DiffResult{ChangedAssets: []AssetChange{
		{IP: "192.168.1.1", ChangeType: TypeVendorChange, Field: "vendor", OldValue: "a", NewValue: "b"},
		{IP: "192.168.1.1", ChangeType: TypeHostnameChange, Field: "hostname", OldValue: "a", NewValue: "b"},
	}}
	alerts := EvaluateDiff(diff, nil, 0)
	require.Len(t, alerts, 2)
	assert.Equal(t, TypeVendorChange, alerts[0].Type)
	assert.Equal(t, TypeHostnameChange, alerts[1].Type)
}

func TestLogChannelAppendsFormattedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.log")
	ch := &LogChannel{Path: path}

	ok := ch.Send(Alert{Type: TypeNewDevice, Severity: SeverityWarning, IP: "192.168.1.1", Message: "new device detected: 192.168.1.1"})
	assert.True(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "new device detected: 192.168.1.1")
}

func TestWebhookChannelPostsJSONAndReportsSuccess(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL)
	ch.HTTPClient = srv.Client()
	ok := ch.Send(Alert{Type: TypeMassChange, Severity: SeverityCritical, Message: "mass change"})
	assert.True(t, ok)
	assert.Equal(t, "application/json", gotContentType)
}

func TestWebhookChannelEmptyURLSkips(t *testing.T) {
	ch := NewWebhookChannel("")
	assert.False(t, ch.Send(Alert{}))
}

type countingChannel struct {
	calls int
	ok    bool
}

func (c *countingChannel) Send(alert Alert) bool {
	c.calls++
	return c.ok
}

func TestDispatchRespectsPerChannelSeverityFloorAndIsolatesFailures(t *testing.T) {
	passing := &countingChannel{ok: true}
	failing := &countingChannel{ok: false}

	channels := []ChannelConfig{
		{Channel: passing, MinSeverity: SeverityWarning, Name: "log"},
		{Channel: failing, MinSeverity: SeverityInfo, Name: "webhook"},
	}

	alertsToSend := []Alert{
		{Severity: SeverityInfo},
		{Severity: SeverityCritical},
	}

	successes := Dispatch(alertsToSend, channels)
	assert.Equal(t, 1, successes, "only the critical alert clears the warning floor on the passing channel")
	assert.Equal(t, 1, passing.calls, "info alert must not reach the warning-floor channel")
	assert.Equal(t, 2, failing.calls, "failing channel still receives both, it just doesn't count as delivered")
}

func TestPipelineProcessDiffRecordsRecentAlerts(t *testing.T) {
	passing := &countingChannel{ok: true}
	p := NewPipeline([]ChannelConfig{{Channel: passing, MinSeverity: SeverityInfo}})

	diff := DiffResult{NewAssets: []Asset{{IP: "192.168.1.1"}}}
	generated, successes := p.ProcessDiff(diff)

	require.Len(t, generated, 1)
	assert.Equal(t, 1, successes)
	assert.NotEmpty(t, generated[0].ID)
	assert.False(t, generated[0].Timestamp.IsZero())

	recent := p.Recent(10)
	require.Len(t, recent, 1)
	assert.Equal(t, generated[0].ID, recent[0].ID)
}

func TestPipelineRecentLogIsBounded(t *testing.T) {
	p := NewPipeline(nil)
	for i := 0; i < maxRecentAlerts+5; i++ {
		p.ProcessDiff(DiffResult{NewAssets: []Asset{{IP: "10.0.0.1"}}})
	}
	assert.Len(t, p.Recent(0), maxRecentAlerts)
}

func TestPipelineDiffAndProcessTracksPreviousSnapshot(t *testing.T) {
	p := NewPipeline(nil)

	diff1, generated1, _ := p.DiffAndProcess([]Asset{{IP: "192.168.1.10", MAC: "aa:bb"}})
	require.Len(t, diff1.NewAssets, 1, "first snapshot has no baseline, so every asset is new")
	require.Len(t, generated1, 1)

	diff2, _, _ := p.DiffAndProcess([]Asset{{IP: "192.168.1.10", MAC: "aa:bb"}})
	assert.Empty(t, diff2.NewAssets, "second call diffs against the first snapshot, not an empty baseline")
	assert.Equal(t, 1, diff2.UnchangedCount)
}
