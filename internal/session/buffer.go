package session

// conversationBuffer is a bounded ring of recent chunks. When full, pushing
// evicts the oldest chunk. Insertion order defines recency.
type conversationBuffer struct {
	chunks   []Chunk
	capacity int
	head     int // index of the oldest chunk
	count    int
}

func newConversationBuffer(capacity int) *conversationBuffer {
	return &conversationBuffer{
		chunks:   make([]Chunk, capacity),
		capacity: capacity,
	}
}

// push appends a chunk, evicting the oldest when the buffer is full.
func (b *conversationBuffer) push(c Chunk) {
	if b.count < b.capacity {
		b.chunks[(b.head+b.count)%b.capacity] = c
		b.count++
		return
	}
	b.chunks[b.head] = c
	b.head = (b.head + 1) % b.capacity
}

func (b *conversationBuffer) len() int {
	return b.count
}

// lastN returns up to n most recent chunks in insertion order.
func (b *conversationBuffer) lastN(n int) []Chunk {
	if n > b.count {
		n = b.count
	}
	out := make([]Chunk, n)
	start := b.head + b.count - n
	for i := 0; i < n; i++ {
		out[i] = b.chunks[(start+i)%b.capacity]
	}
	return out
}

// all returns every buffered chunk in insertion order.
func (b *conversationBuffer) all() []Chunk {
	return b.lastN(b.count)
}
