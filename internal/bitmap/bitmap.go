// Package bitmap implements the fixed-size free-space bitmap over container
// blocks: first-fit, lowest-address contiguous run allocation.
package bitmap

import "math/bits"

// FreeSpaceBitmap is a fixed-size bit vector over blocks. bits[i] is set iff
// block i is allocated. It is backed by a word vector rather than a bool
// slice, so Count can sum one popcount per 64-block word.
type FreeSpaceBitmap struct {
	words       []uint64
	totalBlocks int
}

const wordBits = 64

// Initialize (re)sizes the bitmap to num_blocks, clearing every bit.
func (b *FreeSpaceBitmap) Initialize(numBlocks int) {
	if numBlocks < 0 {
		numBlocks = 0
	}
	b.totalBlocks = numBlocks
	b.words = make([]uint64, (numBlocks+wordBits-1)/wordBits)
}

// Size returns the total number of blocks the bitmap tracks.
func (b *FreeSpaceBitmap) Size() int {
	return b.totalBlocks
}

// IsSet reports whether block i is allocated. Out-of-range indices report
// false rather than panicking.
func (b *FreeSpaceBitmap) IsSet(i int) bool {
	if i < 0 || i >= b.totalBlocks {
		return false
	}
	return b.words[i/wordBits]&(1<<uint(i%wordBits)) != 0
}

// Set marks block i allocated. Out-of-range indices are silently ignored —
// the engine relies on this when replaying stale metadata.
func (b *FreeSpaceBitmap) Set(i int) {
	if i < 0 || i >= b.totalBlocks {
		return
	}
	b.words[i/wordBits] |= 1 << uint(i%wordBits)
}

// Free marks block i unallocated. Out-of-range indices are silently ignored.
func (b *FreeSpaceBitmap) Free(i int) {
	if i < 0 || i >= b.totalBlocks {
		return
	}
	b.words[i/wordBits] &^= 1 << uint(i%wordBits)
}

// SetRun marks the k blocks starting at start allocated.
func (b *FreeSpaceBitmap) SetRun(start, k int) {
	for i := 0; i < k; i++ {
		b.Set(start + i)
	}
}

// FreeRun marks the k blocks starting at start unallocated.
func (b *FreeSpaceBitmap) FreeRun(start, k int) {
	for i := 0; i < k; i++ {
		b.Free(start + i)
	}
}

// FindFreeRun scans ascending from block 0 and returns the start of the
// first run of k consecutive free blocks, or -1 if none exists. k must be
// >= 1; k < 1 always reports -1.
func (b *FreeSpaceBitmap) FindFreeRun(k int) int {
	if k < 1 {
		return -1
	}
	consecutive := 0
	for i := 0; i < b.totalBlocks; i++ {
		if !b.IsSet(i) {
			consecutive++
			if consecutive == k {
				return i - k + 1
			}
		} else {
			consecutive = 0
		}
	}
	return -1
}

// Count returns the number of currently allocated blocks.
func (b *FreeSpaceBitmap) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Bytes packs the bitmap into a little-endian byte slice of the given
// length (padded with zero bits beyond totalBlocks), for writing to the
// container's bitmap region.
func (b *FreeSpaceBitmap) Bytes(length int) []byte {
	out := make([]byte, length)
	for i := 0; i < b.totalBlocks; i++ {
		if b.IsSet(i) {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// LoadBytes initializes the bitmap to numBlocks and sets bits from a packed
// little-endian byte slice, the inverse of Bytes.
func (b *FreeSpaceBitmap) LoadBytes(numBlocks int, data []byte) {
	b.Initialize(numBlocks)
	for i := 0; i < numBlocks; i++ {
		if data[i/8]&(1<<uint(i%8)) != 0 {
			b.Set(i)
		}
	}
}
