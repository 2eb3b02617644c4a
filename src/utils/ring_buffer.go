package utils

import (
	"paper-trader/src/models"
)

// -----------------------------------------------------------------------------
// CandleRing is a fixed-size circular buffer of candles.
// True ring buffer - no resizing allowed! Appending to a full ring evicts the oldest candle.
// -----------------------------------------------------------------------------

type CandleRing struct {
	data     []models.MCandle
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewCandleRing creates a new buffer with fixed capacity
func NewCandleRing(capacity int) *CandleRing {
	if capacity <= 0 {
		capacity = DefaultHistoryLength
	}

	return &CandleRing{
		data:     make([]models.MCandle, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds a candle, evicting the oldest one when full.
func (rb *CandleRing) Append(c models.MCandle) {
	rb.data[rb.index] = c
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// ReplaceLast overwrites the newest candle. On an empty ring it appends.
func (rb *CandleRing) ReplaceLast(c models.MCandle) {
	if rb.size == 0 {
		rb.Append(c)
		return
	}
	last := (rb.index - 1 + rb.capacity) % rb.capacity
	rb.data[last] = c
}

// -----------------------------------------------------------------------------

// Last returns the newest candle.
func (rb *CandleRing) Last() (models.MCandle, bool) {
	if rb.size == 0 {
		return models.MCandle{}, false
	}
	return rb.data[(rb.index-1+rb.capacity)%rb.capacity], true
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest candles, oldest first.
func (rb *CandleRing) GetLatest(n int) []models.MCandle {
	if rb.size == 0 || n <= 0 {
		return []models.MCandle{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MCandle, count)

	// Latest data is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity

	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *CandleRing) GetAll() []models.MCandle {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *CandleRing) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *CandleRing) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *CandleRing) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *CandleRing) Clear() {
	rb.index = 0
	rb.size = 0
}
