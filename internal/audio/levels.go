package audio

// LevelBuffer keeps the most recent input levels in arrival order.
// Appending past capacity evicts the oldest value.
type LevelBuffer struct {
	values []float64
	start  int
	n      int
}

func NewLevelBuffer(capacity int) *LevelBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &LevelBuffer{values: make([]float64, capacity)}
}

func (b *LevelBuffer) Push(v float64) {
	if b.n < len(b.values) {
		b.values[(b.start+b.n)%len(b.values)] = v
		b.n++
		return
	}
	b.values[b.start] = v
	b.start = (b.start + 1) % len(b.values)
}

// Values returns a copy, oldest first.
func (b *LevelBuffer) Values() []float64 {
	out := make([]float64, b.n)
	for i := 0; i < b.n; i++ {
		out[i] = b.values[(b.start+i)%len(b.values)]
	}
	return out
}

func (b *LevelBuffer) Len() int { return b.n }

func (b *LevelBuffer) Cap() int { return len(b.values) }

func (b *LevelBuffer) Reset() {
	b.start = 0
	b.n = 0
}
