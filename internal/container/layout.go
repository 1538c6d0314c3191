package container

import "encoding/binary"

// Config is the immutable-after-load configuration fixing the container's
// address space and table capacities.
type Config struct {
	TotalSize         uint64
	HeaderSize        uint64
	BlockSize         uint64
	MaxFiles          int
	MaxFilenameLength int
	MaxUsers          int
	AdminUsername     string
	AdminPassword     string
	RequireAuth       bool
	Port              int
	MaxConnections    int
	QueueTimeout      int
}

// Layout is the set of byte offsets and block counts derived from a Config.
type Layout struct {
	HeaderSize           uint64
	UserTableOffset      uint64
	EntryTableOffset     uint64
	BitmapOffset         uint64
	BitmapSizeBytes      uint64
	BitmapSizeAligned    uint64
	DataBlocksOffset     uint64
	DataBlocksStartBlock int
	TotalBlocks          int
}

var headerSize = uint64(binary.Size(Header{}))

// ComputeLayout derives every container offset from cfg alone. It must be
// used identically by Format, Save, and Load so all three agree on where
// every region lives.
func ComputeLayout(cfg Config) Layout {
	totalBlocks := int(cfg.TotalSize / cfg.BlockSize)

	userTableOffset := headerSize
	entryTableOffset := userTableOffset + uint64(cfg.MaxUsers)*uint64(binary.Size(UserRecord{}))
	bitmapOffset := entryTableOffset + uint64(cfg.MaxFiles)*uint64(binary.Size(EntryRecord{}))

	bitmapSizeBytes := uint64((totalBlocks + 7) / 8)
	bitmapSizeAligned := ceilDiv(bitmapSizeBytes, cfg.BlockSize) * cfg.BlockSize

	dataBlocksOffset := bitmapOffset + bitmapSizeAligned
	dataBlocksStartBlock := int(ceilDiv(dataBlocksOffset, cfg.BlockSize))

	return Layout{
		HeaderSize:           headerSize,
		UserTableOffset:      userTableOffset,
		EntryTableOffset:     entryTableOffset,
		BitmapOffset:         bitmapOffset,
		BitmapSizeBytes:      bitmapSizeBytes,
		BitmapSizeAligned:    bitmapSizeAligned,
		DataBlocksOffset:     dataBlocksOffset,
		DataBlocksStartBlock: dataBlocksStartBlock,
		TotalBlocks:          totalBlocks,
	}
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
