package behavior

import "time"

// MaxMovementSamples bounds the pointer movement buffer. The buffer is a
// FIFO: when full, the oldest sample is evicted so the most recent 50 are
// always retained.
const MaxMovementSamples = 50

// MovementSample is one pointer position captured while a challenge is
// unsolved.
type MovementSample struct {
	X float64
	Y float64
	T time.Time
}

// KeySample is one keypress in the answer field captured while a challenge
// is unsolved. Key samples are unbounded within a single attempt.
type KeySample struct {
	Key string
	T   time.Time
}

// Recorder passively accumulates movement and key samples for one challenge
// attempt. It is not safe for concurrent use; the owning session serializes
// access.
type Recorder struct {
	movements []MovementSample
	keys      []KeySample
	stopped   bool
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		movements: make([]MovementSample, 0, MaxMovementSamples),
	}
}

// RecordMovement appends a pointer sample, evicting the oldest when the
// buffer is full. No-op once the recorder is stopped.
func (r *Recorder) RecordMovement(s MovementSample) {
	if r.stopped {
		return
	}
	if len(r.movements) >= MaxMovementSamples {
		r.movements = r.movements[1:]
	}
	r.movements = append(r.movements, s)
}

// RecordKey appends a key sample. No-op once the recorder is stopped.
func (r *Recorder) RecordKey(s KeySample) {
	if r.stopped {
		return
	}
	r.keys = append(r.keys, s)
}

// Stop halts recording permanently. Called when the session verifies;
// further samples are dropped rather than appended.
func (r *Recorder) Stop() {
	r.stopped = true
}

// Stopped reports whether recording has been halted.
func (r *Recorder) Stopped() bool {
	return r.stopped
}

// Reset clears all samples and resumes recording. Called on challenge
// regeneration and on post-submission reset.
func (r *Recorder) Reset() {
	r.movements = r.movements[:0]
	r.keys = nil
	r.stopped = false
}

// Movements returns the retained movement samples, oldest first.
func (r *Recorder) Movements() []MovementSample {
	return r.movements
}

// Keys returns the key samples in capture order.
func (r *Recorder) Keys() []KeySample {
	return r.keys
}
