// Package container implements the OMNI on-disk container codec: the fixed
// header/user-table/entry-table/bitmap/data-blocks layout, and the
// Format/Load/Save lifecycle around it.
package container

import "time"

// Magic is the fixed 8-byte container signature written at offset 0.
const Magic = "OMNIFS01"

const (
	nameFieldSize     = 256
	ownerFieldSize    = 32
	usernameFieldSize = 64
	passwordFieldSize = 64
)

// EntryType tags a FileEntry/EntryRecord as a file or a directory.
type EntryType uint8

const (
	TypeFile EntryType = iota
	TypeDirectory
)

func (t EntryType) String() string {
	if t == TypeDirectory {
		return "directory"
	}
	return "file"
}

// Role distinguishes administrative from normal users.
type Role uint8

const (
	RoleAdmin Role = iota
	RoleNormal
)

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "normal"
}

// ParseRole parses the wire role strings "admin"/"normal", defaulting
// unrecognized values to RoleNormal.
func ParseRole(s string) Role {
	if s == "admin" {
		return RoleAdmin
	}
	return RoleNormal
}

// Header is the fixed-width record stored at offset 0 of the container.
type Header struct {
	Magic           [8]byte
	TotalSize       uint64
	HeaderSize      uint64
	BlockSize       uint64
	MaxUsers        uint32
	_               uint32 // padding to keep UserTableOffset 8-byte aligned on disk
	UserTableOffset uint64
}

// UserRecord is the fixed-width on-disk representation of one user-table
// slot. An all-zero Username marks the slot inactive/unused.
type UserRecord struct {
	Username     [usernameFieldSize]byte
	PasswordHash [passwordFieldSize]byte
	Role         uint8
	IsActive     uint8
	_            [6]byte // padding
	CreatedAt    int64   // unix seconds
}

// EntryRecord is the fixed-width on-disk representation of one entry-table
// slot. Name holds the full absolute path on disk (basename in memory). An
// all-zero Name marks the slot unused.
type EntryRecord struct {
	Name        [nameFieldSize]byte
	Type        uint8
	_           [7]byte // padding
	Size        uint64
	Permissions uint32
	Owner       [ownerFieldSize]byte
	Inode       uint32
	ParentInode uint32
	CreatedAt   int64
	ModifiedAt  int64
}

func putFixedString(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func fixedString(src []byte) string {
	n := 0
	for n < len(src) && src[n] != 0 {
		n++
	}
	return string(src[:n])
}

// DecodedUser is the in-memory, string-ified view of a UserRecord produced
// by Load.
type DecodedUser struct {
	Username     string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
}

func newUserRecord(u DecodedUser) UserRecord {
	var r UserRecord
	putFixedString(r.Username[:], u.Username)
	putFixedString(r.PasswordHash[:], u.PasswordHash)
	r.Role = uint8(u.Role)
	if u.IsActive {
		r.IsActive = 1
	}
	r.CreatedAt = u.CreatedAt.Unix()
	return r
}

func (r UserRecord) decode() (DecodedUser, bool) {
	name := fixedString(r.Username[:])
	if name == "" {
		return DecodedUser{}, false
	}
	return DecodedUser{
		Username:     name,
		PasswordHash: fixedString(r.PasswordHash[:]),
		Role:         Role(r.Role),
		IsActive:     r.IsActive != 0,
		CreatedAt:    time.Unix(r.CreatedAt, 0).UTC(),
	}, true
}

// EncodeEntry is the value Save/Format write for one filesystem node. Blocks
// carries the node's full data-block list (possibly stale w.r.t. Size after
// a truncate, which zeroes Size but keeps the allocation) so Save can
// recompute the bitmap from it.
type EncodeEntry struct {
	Path        string
	Type        EntryType
	Size        uint64
	Permissions uint32
	Owner       string
	Inode       uint32
	ParentInode uint32
	CreatedAt   time.Time
	ModifiedAt  time.Time
	Blocks      []int
}

func newEntryRecord(e EncodeEntry) EntryRecord {
	var r EntryRecord
	putFixedString(r.Name[:], e.Path)
	r.Type = uint8(e.Type)
	r.Size = e.Size
	r.Permissions = e.Permissions
	putFixedString(r.Owner[:], e.Owner)
	r.Inode = e.Inode
	r.ParentInode = e.ParentInode
	r.CreatedAt = e.CreatedAt.Unix()
	r.ModifiedAt = e.ModifiedAt.Unix()
	return r
}

// DecodedEntry is the in-memory, string-ified view of an EntryRecord
// produced by Load. Path is the full absolute path exactly as stored.
type DecodedEntry struct {
	Path        string
	Type        EntryType
	Size        uint64
	Permissions uint32
	Owner       string
	Inode       uint32
	ParentInode uint32
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

func (r EntryRecord) decode() (DecodedEntry, bool) {
	path := fixedString(r.Name[:])
	if path == "" {
		return DecodedEntry{}, false
	}
	return DecodedEntry{
		Path:        path,
		Type:        EntryType(r.Type),
		Size:        r.Size,
		Permissions: r.Permissions,
		Owner:       fixedString(r.Owner[:]),
		Inode:       r.Inode,
		ParentInode: r.ParentInode,
		CreatedAt:   time.Unix(r.CreatedAt, 0).UTC(),
		ModifiedAt:  time.Unix(r.ModifiedAt, 0).UTC(),
	}, true
}
