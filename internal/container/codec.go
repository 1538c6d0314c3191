package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

// LoadResult is everything Load reconstructs from a container file: the
// validated header, the derived layout, every active user, every non-empty
// entry (in on-disk order, which Save guarantees is parent-before-child),
// and the raw bitmap bytes (ready for bitmap.FreeSpaceBitmap.LoadBytes).
type LoadResult struct {
	Header  Header
	Layout  Layout
	Users   []DecodedUser
	Entries []DecodedEntry
	Bitmap  []byte
}

// Format creates a new container file of exactly cfg.TotalSize bytes: the
// header, a user table with only the admin user active, an entry table with
// only the root directory, and a bitmap with the metadata reservation set.
func Format(path string, cfg Config) (Layout, error) {
	layout := ComputeLayout(cfg)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return Layout{}, fmt.Errorf("create container: %w", err)
	}
	defer f.Close()

	if err := f.Truncate(int64(cfg.TotalSize)); err != nil {
		return Layout{}, fmt.Errorf("size container: %w", err)
	}

	header := Header{
		TotalSize:       cfg.TotalSize,
		HeaderSize:      layout.HeaderSize,
		BlockSize:       cfg.BlockSize,
		MaxUsers:        uint32(cfg.MaxUsers),
		UserTableOffset: layout.UserTableOffset,
	}
	copy(header.Magic[:], Magic)

	if err := writeAt(f, 0, header); err != nil {
		return Layout{}, err
	}

	now := time.Now()
	admin := newUserRecord(DecodedUser{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPassword,
		Role:         RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
	})
	userSlots := make([]UserRecord, cfg.MaxUsers)
	if cfg.MaxUsers > 0 {
		userSlots[0] = admin
	}
	if err := writeSlots(f, layout.UserTableOffset, userSlots); err != nil {
		return Layout{}, err
	}

	root := newEntryRecord(EncodeEntry{
		Path:        "/",
		Type:        TypeDirectory,
		Permissions: 0755,
		Owner:       cfg.AdminUsername,
		CreatedAt:   now,
		ModifiedAt:  now,
	})
	entrySlots := make([]EntryRecord, cfg.MaxFiles)
	if cfg.MaxFiles > 0 {
		entrySlots[0] = root
	}
	if err := writeSlots(f, layout.EntryTableOffset, entrySlots); err != nil {
		return Layout{}, err
	}

	reserved := make([]byte, layout.BitmapSizeAligned)
	for i := 0; i < layout.DataBlocksStartBlock; i++ {
		reserved[i/8] |= 1 << uint(i%8)
	}
	if _, err := f.WriteAt(reserved, int64(layout.BitmapOffset)); err != nil {
		return Layout{}, fmt.Errorf("write bitmap: %w", err)
	}

	return layout, nil
}

// Load reads and validates a container file, returning every active user
// and non-empty entry plus the raw bitmap bytes. It does not build the
// in-memory tree — that is tree.BuildFromEntries' job, given Entries here.
func Load(path string, cfg Config) (LoadResult, error) {
	layout := ComputeLayout(cfg)

	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("open container: %w", err)
	}
	defer f.Close()

	var header Header
	if err := readAt(f, 0, &header); err != nil {
		return LoadResult{}, fmt.Errorf("read header: %w", err)
	}
	if !bytes.Equal(bytes.TrimRight(header.Magic[:], "\x00"), []byte(Magic)) {
		return LoadResult{}, fmt.Errorf("bad magic: container is not an OMNIFS01 file")
	}

	userSlots := make([]UserRecord, cfg.MaxUsers)
	if err := readSlots(f, layout.UserTableOffset, userSlots); err != nil {
		return LoadResult{}, fmt.Errorf("read user table: %w", err)
	}
	var users []DecodedUser
	for _, slot := range userSlots {
		u, ok := slot.decode()
		if ok && u.IsActive {
			users = append(users, u)
		}
	}

	entrySlots := make([]EntryRecord, cfg.MaxFiles)
	if err := readSlots(f, layout.EntryTableOffset, entrySlots); err != nil {
		return LoadResult{}, fmt.Errorf("read entry table: %w", err)
	}
	var entries []DecodedEntry
	for _, slot := range entrySlots {
		e, ok := slot.decode()
		if ok {
			entries = append(entries, e)
		}
	}

	bitmapBytes := make([]byte, layout.BitmapSizeAligned)
	if _, err := f.ReadAt(bitmapBytes, int64(layout.BitmapOffset)); err != nil {
		return LoadResult{}, fmt.Errorf("read bitmap: %w", err)
	}

	return LoadResult{Header: header, Layout: layout, Users: users, Entries: entries, Bitmap: bitmapBytes}, nil
}

// Save rewrites the user table, entry table, and bitmap regions in full
// (never the data blocks, never the header, never the container's length).
// The bitmap is recomputed from scratch as the union of every entry's
// Blocks — it is never read back from the prior on-disk state.
func Save(path string, cfg Config, layout Layout, users []DecodedUser, entries []EncodeEntry) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open container: %w", err)
	}
	defer f.Close()

	userSlots := make([]UserRecord, cfg.MaxUsers)
	for i, u := range users {
		if i >= cfg.MaxUsers {
			break
		}
		userSlots[i] = newUserRecord(u)
	}
	if err := writeSlots(f, layout.UserTableOffset, userSlots); err != nil {
		return err
	}

	entrySlots := make([]EntryRecord, cfg.MaxFiles)
	for i, e := range entries {
		if i >= cfg.MaxFiles {
			break
		}
		entrySlots[i] = newEntryRecord(e)
	}
	if err := writeSlots(f, layout.EntryTableOffset, entrySlots); err != nil {
		return err
	}

	bitmapData := make([]byte, layout.BitmapSizeAligned)
	for i := 0; i < layout.DataBlocksStartBlock; i++ {
		bitmapData[i/8] |= 1 << uint(i%8)
	}
	for _, e := range entries {
		for _, block := range e.Blocks {
			if block >= 0 && block < layout.TotalBlocks {
				bitmapData[block/8] |= 1 << uint(block%8)
			}
		}
	}
	if _, err := f.WriteAt(bitmapData, int64(layout.BitmapOffset)); err != nil {
		return fmt.Errorf("write bitmap: %w", err)
	}

	return nil
}

// ReadBlocks reads up to size bytes starting at the first of blocks,
// spanning consecutive blocks of cfg.BlockSize each.
func ReadBlocks(path string, cfg Config, blocks []int, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}
	defer f.Close()

	buf := make([]byte, size)
	var written uint64
	for _, block := range blocks {
		if written >= size {
			break
		}
		toRead := size - written
		if toRead > cfg.BlockSize {
			toRead = cfg.BlockSize
		}
		offset := int64(block) * int64(cfg.BlockSize)
		if _, err := f.ReadAt(buf[written:written+toRead], offset); err != nil {
			return nil, fmt.Errorf("read block %d: %w", block, err)
		}
		written += toRead
	}
	return buf, nil
}

// WriteBlocks writes data across consecutive blocks of cfg.BlockSize each,
// starting at the first of blocks.
func WriteBlocks(path string, cfg Config, blocks []int, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open container: %w", err)
	}
	defer f.Close()

	var written int
	for _, block := range blocks {
		if written >= len(data) {
			break
		}
		toWrite := len(data) - written
		if toWrite > int(cfg.BlockSize) {
			toWrite = int(cfg.BlockSize)
		}
		offset := int64(block) * int64(cfg.BlockSize)
		if _, err := f.WriteAt(data[written:written+toWrite], offset); err != nil {
			return fmt.Errorf("write block %d: %w", block, err)
		}
		written += toWrite
	}
	return nil
}

func writeAt(f *os.File, offset int64, v any) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if _, err := f.WriteAt(buf.Bytes(), offset); err != nil {
		return fmt.Errorf("write at %d: %w", offset, err)
	}
	return nil
}

func readAt(f *os.File, offset int64, v any) error {
	size := binary.Size(v)
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, v)
}

func writeSlots[T any](f *os.File, offset uint64, slots []T) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, slots); err != nil {
		return fmt.Errorf("encode slots: %w", err)
	}
	if _, err := f.WriteAt(buf.Bytes(), int64(offset)); err != nil {
		return fmt.Errorf("write slots at %d: %w", offset, err)
	}
	return nil
}

func readSlots[T any](f *os.File, offset uint64, slots []T) error {
	size := binary.Size(slots)
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, int64(offset)); err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, slots)
}
