package logging

// BatchProgress decides which completion counts of a batch are worth a log
// line. It emits the first observation, each time the completed share crosses
// a step boundary, and once when the batch finishes.
type BatchProgress struct {
	step     int
	lastStep int
	finished bool
}

// NewBatchProgress returns a tracker emitting every stepPercent percent.
// Values outside 1..100 fall back to 10.
func NewBatchProgress(stepPercent int) *BatchProgress {
	if stepPercent <= 0 || stepPercent > 100 {
		stepPercent = 10
	}
	return &BatchProgress{step: stepPercent, lastStep: -1}
}

// Observe records done out of total and reports whether to log it.
func (p *BatchProgress) Observe(done, total int) bool {
	if p == nil {
		return true
	}
	if total <= 0 || p.finished {
		return false
	}
	if done >= total {
		p.finished = true
		return true
	}
	current := done * 100 / total / p.step
	if current <= p.lastStep {
		return false
	}
	p.lastStep = current
	return true
}
