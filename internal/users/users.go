// Package users implements the global username-ordered user index backing
// user creation, deletion, listing, and login.
package users

import (
	"time"

	"github.com/omnifs/omnifs/internal/container"
	"github.com/omnifs/omnifs/internal/tree"
)

// Info is the in-memory view of one user-table entry.
type Info struct {
	Username     string
	PasswordHash string
	Role         container.Role
	IsActive     bool
	CreatedAt    time.Time
}

// Name implements tree.Named so *Info can be stored in an Index.
func (i *Info) Name() string {
	return i.Username
}

// Index is the global, ordered-by-username user table.
type Index struct {
	byName tree.OrderedByName[*Info]
}

// NewFromDecoded builds an Index from the users Load decoded out of the
// container's user table.
func NewFromDecoded(decoded []container.DecodedUser) *Index {
	idx := &Index{}
	for _, u := range decoded {
		idx.byName.Insert(&Info{
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Role:         u.Role,
			IsActive:     u.IsActive,
			CreatedAt:    u.CreatedAt,
		})
	}
	return idx
}

// Len reports the number of users currently indexed.
func (idx *Index) Len() int {
	return idx.byName.Len()
}

// Find looks up a user by name.
func (idx *Index) Find(name string) (*Info, bool) {
	return idx.byName.Find(name)
}

// Insert adds a new user. Returns false if the username is already present.
func (idx *Index) Insert(info *Info) bool {
	before := idx.byName.Len()
	idx.byName.Insert(info)
	return idx.byName.Len() != before
}

// Remove deletes a user by name.
func (idx *Index) Remove(name string) {
	idx.byName.Remove(name)
}

// List returns every user in ascending username order.
func (idx *Index) List() []*Info {
	return idx.byName.ListInOrder()
}

// ToDecoded renders the index back into the flat slice container.Save wants.
func (idx *Index) ToDecoded() []container.DecodedUser {
	list := idx.List()
	out := make([]container.DecodedUser, 0, len(list))
	for _, u := range list {
		out = append(out, container.DecodedUser{
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Role:         u.Role,
			IsActive:     u.IsActive,
			CreatedAt:    u.CreatedAt,
		})
	}
	return out
}
