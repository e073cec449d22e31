package alerts

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxRecentAlerts bounds the in-memory alert log.
const maxRecentAlerts = 200

// Pipeline runs diff -> evaluate -> dispatch and keeps a bounded
// in-memory log of recent alerts for the status API to surface.
type Pipeline struct {
	Channels      []ChannelConfig
	RogueRules    []RogueRule
	MassThreshold int

	mu       sync.Mutex
	recent   []Alert
	previous []Asset
}

// NewPipeline builds a Pipeline dispatching to channels.
func NewPipeline(channels []ChannelConfig) *Pipeline {
	return &Pipeline{Channels: channels, MassThreshold: DefaultMassThreshold}
}

// ProcessDiff evaluates diff into alerts, stamps identity and
// timestamp, records each in the recent-alert log, and dispatches to
// every configured channel. Returns the generated alerts and the
// dispatch success count.
func (p *Pipeline) ProcessDiff(diff DiffResult) ([]Alert, int) {
	generated := EvaluateDiff(diff, p.RogueRules, p.MassThreshold)
	now := time.Now()

	for i := range generated {
		generated[i].ID = p.nextID()
		generated[i].Timestamp = now
	}

	p.mu.Lock()
	for _, a := range generated {
		p.recent = append([]Alert{a}, p.recent...)
	}
	if len(p.recent) > maxRecentAlerts {
		p.recent = p.recent[:maxRecentAlerts]
	}
	p.mu.Unlock()

	return generated, Dispatch(generated, p.Channels)
}

// Recent returns up to limit most-recently-generated alerts, newest
// first.
func (p *Pipeline) Recent(limit int) []Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	if limit <= 0 || limit > len(p.recent) {
		limit = len(p.recent)
	}
	out := make([]Alert, limit)
	copy(out, p.recent[:limit])
	return out
}

// DiffAndProcess diffs current against the previously submitted
// snapshot (empty on the pipeline's first call), processes the
// resulting DiffResult, and remembers current as the new baseline for
// the next call. This is the entry point the scan-ingestion API
// handler calls each time the (out-of-scope) classification pipeline
// posts a fresh snapshot.
func (p *Pipeline) DiffAndProcess(current []Asset) (DiffResult, []Alert, int) {
	p.mu.Lock()
	previous := p.previous
	p.previous = append([]Asset(nil), current...)
	p.mu.Unlock()

	diff := DiffScans(current, previous)
	generated, successes := p.ProcessDiff(diff)
	return diff, generated, successes
}

func (p *Pipeline) nextID() string {
	return "alert-" + uuid.New().String()[:8]
}
