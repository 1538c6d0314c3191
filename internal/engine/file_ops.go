package engine

import (
	"time"

	"github.com/omnifs/omnifs/internal/container"
	"github.com/omnifs/omnifs/internal/tree"
	omnierrors "github.com/omnifs/omnifs/pkg/errors"
)

func blocksNeeded(size, blockSize uint64) int {
	if size == 0 {
		return 1
	}
	return int((size + blockSize - 1) / blockSize)
}

// FileCreate allocates a contiguous block run, writes data across it, and
// links a new file node under the parent directory. A zero-byte file still
// reserves one block.
func (e *Engine) FileCreate(path string, data []byte, size uint64) *omnierrors.OmniError {
	e.mu.Lock()
	defer e.mu.Unlock()

	parentPath, baseName := tree.ParsePath(path)
	parent := e.tree.FindByPath(parentPath)
	if parent == nil || !parent.IsDirectory() {
		return omnierrors.New(omnierrors.NotFound, "parent directory does not exist").WithComponent("engine").WithOperation("file_create")
	}
	if _, ok := parent.FindChild(baseName); ok {
		return omnierrors.New(omnierrors.FileExists, "a node with that name already exists").WithComponent("engine").WithOperation("file_create")
	}

	needed := blocksNeeded(size, e.cfg.BlockSize)
	start := e.bitmap.FindFreeRun(needed)
	if start < 0 {
		return omnierrors.New(omnierrors.NoSpace, "no contiguous free run of the required length").WithComponent("engine").WithOperation("file_create")
	}

	blocks := make([]int, needed)
	for i := range blocks {
		blocks[i] = start + i
	}

	if len(data) > 0 {
		if err := container.WriteBlocks(e.path, e.cfg, blocks, data); err != nil {
			return omnierrors.New(omnierrors.IOError, err.Error()).WithComponent("engine").WithOperation("file_create")
		}
	}

	e.bitmap.SetRun(start, needed)

	now := time.Now()
	node := &tree.Node{
		Meta: tree.Meta{
			Name:        baseName,
			Type:        container.TypeFile,
			Size:        size,
			Permissions: 0644,
			Owner:       parent.Meta.Owner,
			Inode:       uint32(start),
			CreatedAt:   now,
			ModifiedAt:  now,
		},
		DataBlocks: blocks,
	}
	parent.AddChild(node)

	return e.save()
}

// FileDelete frees every block belonging to the file and unlinks it.
func (e *Engine) FileDelete(path string) *omnierrors.OmniError {
	e.mu.Lock()
	defer e.mu.Unlock()

	node := e.tree.FindByPath(path)
	if node == nil {
		return omnierrors.New(omnierrors.NotFound, "file not found").WithComponent("engine").WithOperation("file_delete")
	}
	if node.IsDirectory() {
		return omnierrors.New(omnierrors.InvalidOperation, "target is a directory").WithComponent("engine").WithOperation("file_delete")
	}

	for _, block := range node.DataBlocks {
		e.bitmap.Free(block)
	}
	node.Parent().RemoveChild(node.Meta.Name)

	return e.save()
}

// FileRead returns the concatenation of the file's blocks, truncated to its
// recorded size.
func (e *Engine) FileRead(path string) ([]byte, *omnierrors.OmniError) {
	e.mu.Lock()
	node := e.tree.FindByPath(path)
	if node == nil || node.IsDirectory() {
		e.mu.Unlock()
		return nil, omnierrors.New(omnierrors.NotFound, "file not found").WithComponent("engine").WithOperation("file_read")
	}
	blocks := append([]int(nil), node.DataBlocks...)
	size := node.Meta.Size
	e.mu.Unlock()

	data, err := container.ReadBlocks(e.path, e.cfg, blocks, size)
	if err != nil {
		return nil, omnierrors.New(omnierrors.IOError, err.Error()).WithComponent("engine").WithOperation("file_read")
	}
	return data, nil
}

// FileEdit overwrites a file's content in place. index must be 0 (no
// scatter/gather writes are implemented); size must not exceed the file's
// already-allocated capacity, since edits never grow allocation.
func (e *Engine) FileEdit(path string, data []byte, size uint64, index int) *omnierrors.OmniError {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index != 0 {
		return omnierrors.New(omnierrors.NotImplemented, "only index 0 is supported").WithComponent("engine").WithOperation("file_edit")
	}

	node := e.tree.FindByPath(path)
	if node == nil || node.IsDirectory() {
		return omnierrors.New(omnierrors.NotFound, "file not found").WithComponent("engine").WithOperation("file_edit")
	}

	capacity := uint64(len(node.DataBlocks)) * e.cfg.BlockSize
	if size > capacity {
		return omnierrors.New(omnierrors.NoSpace, "size exceeds the file's already-allocated capacity").WithComponent("engine").WithOperation("file_edit")
	}

	if len(data) > 0 {
		if err := container.WriteBlocks(e.path, e.cfg, node.DataBlocks, data); err != nil {
			return omnierrors.New(omnierrors.IOError, err.Error()).WithComponent("engine").WithOperation("file_edit")
		}
	}

	node.Meta.Size = size
	node.Meta.ModifiedAt = time.Now()

	return e.save()
}

// FileTruncate zeroes a file's recorded size but keeps its block
// allocation: a subsequent edit up to the old allocation still succeeds.
func (e *Engine) FileTruncate(path string) *omnierrors.OmniError {
	e.mu.Lock()
	defer e.mu.Unlock()

	node := e.tree.FindByPath(path)
	if node == nil || node.IsDirectory() {
		return omnierrors.New(omnierrors.NotFound, "file not found").WithComponent("engine").WithOperation("file_truncate")
	}

	node.Meta.Size = 0
	node.Meta.ModifiedAt = time.Now()

	return e.save()
}

// FileRename renames a file or directory's basename in place. It validates
// that the destination's parent exists but never relinks the node across
// directories — a rename to a path under a different parent still leaves
// the node under its original parent with the new basename.
func (e *Engine) FileRename(oldPath, newPath string) *omnierrors.OmniError {
	e.mu.Lock()
	defer e.mu.Unlock()

	node := e.tree.FindByPath(oldPath)
	if node == nil {
		return omnierrors.New(omnierrors.NotFound, "source not found").WithComponent("engine").WithOperation("file_rename")
	}

	destParentPath, destBaseName := tree.ParsePath(newPath)
	destParent := e.tree.FindByPath(destParentPath)
	if destParent == nil || !destParent.IsDirectory() {
		return omnierrors.New(omnierrors.NotFound, "destination parent does not exist").WithComponent("engine").WithOperation("file_rename")
	}

	parent := node.Parent()
	if parent == nil {
		return omnierrors.New(omnierrors.InvalidOperation, "cannot rename the root directory").WithComponent("engine").WithOperation("file_rename")
	}
	if _, ok := parent.FindChild(destBaseName); ok && destBaseName != node.Meta.Name {
		return omnierrors.New(omnierrors.FileExists, "a node with that name already exists").WithComponent("engine").WithOperation("file_rename")
	}

	parent.RemoveChild(node.Meta.Name)
	node.Meta.Name = destBaseName
	node.Meta.ModifiedAt = time.Now()
	parent.AddChild(node)

	return e.save()
}

// GetMetadataResult adds blocks_used to the plain entry rendering.
type GetMetadataResult struct {
	EntryInfo
	BlocksUsed int `json:"blocks_used"`
}

// GetMetadata returns an entry's metadata plus its current block count.
func (e *Engine) GetMetadata(path string) (GetMetadataResult, *omnierrors.OmniError) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node := e.tree.FindByPath(path)
	if node == nil {
		return GetMetadataResult{}, omnierrors.New(omnierrors.NotFound, "path not found").WithComponent("engine").WithOperation("get_metadata")
	}

	return GetMetadataResult{
		EntryInfo:  entryInfo(fullPath(node), node),
		BlocksUsed: len(node.DataBlocks),
	}, nil
}

// SetPermissions stores mode verbatim on the target entry.
func (e *Engine) SetPermissions(path string, mode uint32) *omnierrors.OmniError {
	e.mu.Lock()
	defer e.mu.Unlock()

	node := e.tree.FindByPath(path)
	if node == nil {
		return omnierrors.New(omnierrors.NotFound, "path not found").WithComponent("engine").WithOperation("set_permissions")
	}

	node.Meta.Permissions = mode
	node.Meta.ModifiedAt = time.Now()

	return e.save()
}
