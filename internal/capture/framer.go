package capture

// Framer slices an arbitrary byte stream into fixed-size frames. Residual
// bytes that do not fill a frame carry over to the next push. Not
// thread-safe; callers serialize pushes.
type Framer struct {
	frameBytes int
	buf        []byte
}

// NewFramer creates a framer emitting frames of frameSamples 16-bit samples.
func NewFramer(frameSamples int) *Framer {
	return &Framer{frameBytes: frameSamples * 2}
}

// Push appends chunk to the pending buffer and emits every complete frame.
// Emitted frames are copies; the callback may retain them.
func (f *Framer) Push(chunk []byte, emit func(frame []byte)) {
	f.buf = append(f.buf, chunk...)
	for len(f.buf) >= f.frameBytes {
		frame := make([]byte, f.frameBytes)
		copy(frame, f.buf[:f.frameBytes])
		f.buf = f.buf[f.frameBytes:]
		emit(frame)
	}
}

// Pending returns the number of buffered bytes not yet emitted.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Reset discards any buffered bytes.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
