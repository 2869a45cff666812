package analog

import "sync"

// Applied is one Output.Apply call.
type Applied struct {
	Channel Channel
	Value   byte
}

// Recorder is an Output that remembers what was applied. It stands in for
// the PWM hardware in simulation and tests.
type Recorder struct {
	mu    sync.Mutex
	level [NumChannels]byte
	calls []Applied

	// Err, when set, is returned by Apply after recording the call.
	Err error
}

var _ Output = (*Recorder)(nil)

// Apply implements Output.
func (r *Recorder) Apply(ch Channel, v byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch < NumChannels {
		r.level[ch] = v
	}
	r.calls = append(r.calls, Applied{Channel: ch, Value: v})
	return r.Err
}

// Level returns the last value applied to ch.
func (r *Recorder) Level(ch Channel) byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch >= NumChannels {
		return 0
	}
	return r.level[ch]
}

// Calls returns a copy of every Apply call in order.
func (r *Recorder) Calls() []Applied {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Applied(nil), r.calls...)
}
