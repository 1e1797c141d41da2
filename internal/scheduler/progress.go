package scheduler

// QueueProgress summarises one queue.
type QueueProgress struct {
	Name     string
	Limit    int
	Total    int
	Done     int
	Failed   int
	InFlight int
	Peak     int
}

// Snapshot is a point-in-time view of the running batch.
type Snapshot struct {
	Queues  []QueueProgress
	Total   int
	Done    int
	Failed  int
	Percent float64
}

// Progress reports the state of the current or most recent batch. Percent is
// weighted by each action's SizeOfWork.
func (s *Scheduler) Progress() Snapshot {
	s.mu.Lock()
	queues := s.queues
	s.mu.Unlock()

	var snap Snapshot
	var totalWork, doneWork float64
	for _, q := range queues {
		qp := QueueProgress{
			Name:     q.Name,
			Limit:    q.Limit,
			Total:    len(q.Actions),
			InFlight: q.InFlight(),
			Peak:     q.Peak(),
		}
		for _, a := range q.Actions {
			st := a.Status()
			size := float64(a.SizeOfWork())
			if size <= 0 {
				size = 1
			}
			totalWork += size
			if st.Done() {
				qp.Done++
				doneWork += size
				if st.Failed() {
					qp.Failed++
				}
				continue
			}
			doneWork += size * st.Percent() / 100
		}
		snap.Queues = append(snap.Queues, qp)
		snap.Total += qp.Total
		snap.Done += qp.Done
		snap.Failed += qp.Failed
	}
	if totalWork > 0 {
		snap.Percent = doneWork * 100 / totalWork
	} else {
		snap.Percent = 100
	}
	return snap
}
