package engine

import (
	"time"

	"github.com/omnifs/omnifs/internal/container"
	"github.com/omnifs/omnifs/internal/tree"
	omnierrors "github.com/omnifs/omnifs/pkg/errors"
)

// DirCreate creates an empty directory at path. The parent must exist and
// be a directory; the basename must be unused.
func (e *Engine) DirCreate(path string) *omnierrors.OmniError {
	e.mu.Lock()
	defer e.mu.Unlock()

	parentPath, baseName := tree.ParsePath(path)
	parent := e.tree.FindByPath(parentPath)
	if parent == nil || !parent.IsDirectory() {
		return omnierrors.New(omnierrors.NotFound, "parent directory does not exist").WithComponent("engine").WithOperation("dir_create")
	}
	if _, ok := parent.FindChild(baseName); ok {
		return omnierrors.New(omnierrors.FileExists, "a node with that name already exists").WithComponent("engine").WithOperation("dir_create")
	}

	now := time.Now()
	node := &tree.Node{Meta: tree.Meta{
		Name:        baseName,
		Type:        container.TypeDirectory,
		Permissions: 0755,
		Owner:       parent.Meta.Owner,
		CreatedAt:   now,
		ModifiedAt:  now,
	}}
	parent.AddChild(node)

	return e.save()
}

// DirDelete removes an empty directory. Refuses "/" and files; fails if the
// directory still has children.
func (e *Engine) DirDelete(path string) *omnierrors.OmniError {
	e.mu.Lock()
	defer e.mu.Unlock()

	if path == "/" {
		return omnierrors.New(omnierrors.InvalidOperation, "cannot delete the root directory").WithComponent("engine").WithOperation("dir_delete")
	}

	node := e.tree.FindByPath(path)
	if node == nil {
		return omnierrors.New(omnierrors.NotFound, "directory not found").WithComponent("engine").WithOperation("dir_delete")
	}
	if !node.IsDirectory() {
		return omnierrors.New(omnierrors.InvalidOperation, "target is not a directory").WithComponent("engine").WithOperation("dir_delete")
	}
	if node.Children.Len() > 0 {
		return omnierrors.New(omnierrors.DirectoryNotEmpty, "directory has children").WithComponent("engine").WithOperation("dir_delete")
	}

	node.Parent().RemoveChild(node.Meta.Name)
	return e.save()
}

// DirList returns the ascending-by-name list of a directory's children.
func (e *Engine) DirList(path string) ([]EntryInfo, *omnierrors.OmniError) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node := e.tree.FindByPath(path)
	if node == nil {
		return nil, omnierrors.New(omnierrors.NotFound, "directory not found").WithComponent("engine").WithOperation("dir_list")
	}
	if !node.IsDirectory() {
		return nil, omnierrors.New(omnierrors.InvalidOperation, "target is not a directory").WithComponent("engine").WithOperation("dir_list")
	}

	children := node.ListChildren()
	out := make([]EntryInfo, 0, len(children))
	for _, c := range children {
		out = append(out, entryInfo(fullPath(c), c))
	}
	return out, nil
}

// DirExists reports success if path exists and is a directory, NotFound
// otherwise.
func (e *Engine) DirExists(path string) *omnierrors.OmniError {
	e.mu.Lock()
	defer e.mu.Unlock()

	node := e.tree.FindByPath(path)
	if node == nil || !node.IsDirectory() {
		return omnierrors.New(omnierrors.NotFound, "directory not found").WithComponent("engine").WithOperation("dir_exists")
	}
	return nil
}

// FileExists reports success if path exists and is a file, NotFound
// otherwise.
func (e *Engine) FileExists(path string) *omnierrors.OmniError {
	e.mu.Lock()
	defer e.mu.Unlock()

	node := e.tree.FindByPath(path)
	if node == nil || node.IsDirectory() {
		return omnierrors.New(omnierrors.NotFound, "file not found").WithComponent("engine").WithOperation("file_exists")
	}
	return nil
}
