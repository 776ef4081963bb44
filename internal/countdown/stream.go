package countdown

// Stream subscribes a channel with room for one pending snapshot. A consumer
// that falls behind sees only the newest one, and the final snapshot of a run
// is never dropped.
func (e *Engine) Stream() (<-chan Snapshot, Subscription) {
	ch := make(chan Snapshot, 1)
	sub := e.Subscribe(func(s Snapshot) {
		for {
			select {
			case ch <- s:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	})
	return ch, sub
}
