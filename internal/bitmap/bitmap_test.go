package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindFreeRunFirstFit(t *testing.T) {
	var b FreeSpaceBitmap
	b.Initialize(16)
	b.SetRun(0, 4) // reserve metadata blocks
	assert.Equal(t, 4, b.FindFreeRun(1))
	b.SetRun(4, 2)
	assert.Equal(t, 6, b.FindFreeRun(1))
	assert.Equal(t, -1, b.FindFreeRun(20))
}

func TestFindFreeRunRequiresContiguous(t *testing.T) {
	var b FreeSpaceBitmap
	b.Initialize(10)
	b.Set(2)
	b.Set(5)
	// free runs: [0,1] len2, [3,4] len2, [6..9] len4
	assert.Equal(t, 6, b.FindFreeRun(4))
	assert.Equal(t, -1, b.FindFreeRun(5))
}

func TestSetFreeRunRoundTrip(t *testing.T) {
	var b FreeSpaceBitmap
	b.Initialize(8)
	b.SetRun(2, 3)
	assert.True(t, b.IsSet(2))
	assert.True(t, b.IsSet(3))
	assert.True(t, b.IsSet(4))
	assert.False(t, b.IsSet(5))
	b.FreeRun(2, 3)
	assert.False(t, b.IsSet(2))
	assert.False(t, b.IsSet(4))
}

func TestOutOfRangeIsIgnored(t *testing.T) {
	var b FreeSpaceBitmap
	b.Initialize(4)
	b.Set(100)   // must not panic
	b.Free(100)  // must not panic
	assert.False(t, b.IsSet(100))
	assert.False(t, b.IsSet(-1))
}

func TestBytesRoundTrip(t *testing.T) {
	var b FreeSpaceBitmap
	b.Initialize(20)
	b.SetRun(0, 5)
	b.Set(17)

	packed := b.Bytes(4) // ceil(20/8) = 3, pad to 4

	var loaded FreeSpaceBitmap
	loaded.LoadBytes(20, packed)
	for i := 0; i < 20; i++ {
		assert.Equal(t, b.IsSet(i), loaded.IsSet(i), "bit %d", i)
	}
}

func TestFindFreeRunRejectsNonPositiveLength(t *testing.T) {
	var b FreeSpaceBitmap
	b.Initialize(4)
	assert.Equal(t, -1, b.FindFreeRun(0))
	assert.Equal(t, -1, b.FindFreeRun(-3))
}
