package iothreads

// eventDecay implements apply_event's constant-space "N events in W
// seconds" detector by exponential decay: value decays linearly toward
// zero between events, and each event adds a fixed window W. If value
// would reach or exceed (N-1)*W, the events are judged to be arriving
// too close together. This captures "a few stalls in quick succession"
// in O(1) memory per priority, at the cost of the precision a true
// sliding window would give.
type eventDecay struct {
	value      int64
	updateTime int64 // unix seconds of the last event, 0 if none yet
}

// apply reports whether this event, combined with recent history,
// crosses the (n, windowSeconds) threshold. now is unix seconds,
// threaded in by the caller since this package avoids time.Now() calls
// inside its own decay math to keep the detector independently testable.
func (d *eventDecay) apply(now int64, n int, windowSeconds int64) (fired bool) {
	if d.value > 0 {
		elapsed := now - d.updateTime
		if elapsed < 0 {
			elapsed = 0
		}
		if d.value > elapsed {
			d.value -= elapsed
		} else {
			d.value = 0
		}
	}

	d.value += windowSeconds
	d.updateTime = now

	threshold := int64(n-1) * windowSeconds
	return d.value >= threshold
}
