package server

import (
	"github.com/omnifs/omnifs/internal/container"
	"github.com/omnifs/omnifs/internal/engine"
	omnierrors "github.com/omnifs/omnifs/pkg/errors"
)

// dispatch runs one already-authenticated wire operation against e and
// returns the value to place under the response's "data" key (nil if the
// operation carries none) plus the operation's outcome. It never touches
// the network or the queue — handleRequest owns framing, auth, and the
// ambient-stack bookkeeping around this call.
func dispatch(e *engine.Engine, op, sessionID string, params map[string]any) (any, *omnierrors.OmniError) {
	switch op {
	case "user_login":
		return dispatchUserLogin(e, params)
	case "user_logout":
		if err := e.UserLogout(sessionID); err != nil {
			return nil, err
		}
		return nil, nil
	case "user_create":
		role := container.ParseRole(paramString(params, "role"))
		if err := e.UserCreate(paramString(params, "username"), paramString(params, "password"), role); err != nil {
			return nil, err
		}
		return nil, nil
	case "user_delete":
		if err := e.UserDelete(paramString(params, "username")); err != nil {
			return nil, err
		}
		return nil, nil
	case "user_list":
		return e.UserList(), nil
	case "dir_create":
		if err := e.DirCreate(paramString(params, "path")); err != nil {
			return nil, err
		}
		return nil, nil
	case "dir_delete":
		if err := e.DirDelete(paramString(params, "path")); err != nil {
			return nil, err
		}
		return nil, nil
	case "dir_exists":
		if err := e.DirExists(paramString(params, "path")); err != nil {
			return nil, err
		}
		return nil, nil
	case "dir_list":
		entries, err := e.DirList(paramString(params, "path"))
		if err != nil {
			return nil, err
		}
		return dirListing(entries), nil
	case "file_create":
		data := []byte(paramString(params, "data"))
		size := paramSize(params, "size")
		if size == 0 && len(data) > 0 {
			size = uint64(len(data))
		}
		if err := e.FileCreate(paramString(params, "path"), data, size); err != nil {
			return nil, err
		}
		return nil, nil
	case "file_delete":
		if err := e.FileDelete(paramString(params, "path")); err != nil {
			return nil, err
		}
		return nil, nil
	case "file_exists":
		if err := e.FileExists(paramString(params, "path")); err != nil {
			return nil, err
		}
		return nil, nil
	case "file_read":
		data, err := e.FileRead(paramString(params, "path"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"content": string(data)}, nil
	case "file_edit":
		data := []byte(paramString(params, "data"))
		size := paramSize(params, "size")
		if size == 0 && len(data) > 0 {
			size = uint64(len(data))
		}
		if err := e.FileEdit(paramString(params, "path"), data, size, paramInt(params, "index")); err != nil {
			return nil, err
		}
		return nil, nil
	case "file_truncate":
		if err := e.FileTruncate(paramString(params, "path")); err != nil {
			return nil, err
		}
		return nil, nil
	case "file_rename":
		if err := e.FileRename(paramString(params, "old_path"), paramString(params, "new_path")); err != nil {
			return nil, err
		}
		return nil, nil
	case "get_metadata":
		meta, err := e.GetMetadata(paramString(params, "path"))
		if err != nil {
			return nil, err
		}
		return metadataResponse(meta), nil
	case "set_permissions":
		if err := e.SetPermissions(paramString(params, "path"), uint32(paramInt(params, "permissions"))); err != nil {
			return nil, err
		}
		return nil, nil
	case "get_stats":
		return statsResponse(e), nil
	case "get_error_message":
		return omnierrors.Code(paramInt(params, "error_code")).Message(), nil
	default:
		return nil, omnierrors.New(omnierrors.InvalidOperation, "unknown operation "+op).WithComponent("server").WithOperation(op)
	}
}

func dispatchUserLogin(e *engine.Engine, params map[string]any) (any, *omnierrors.OmniError) {
	info, err := e.UserLogin(paramString(params, "username"), paramString(params, "password"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"session_id": info.ID,
		"role":       info.User.Role.String(),
	}, nil
}

func dirListing(entries []engine.EntryInfo) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		out = append(out, map[string]any{
			"name": baseName(entry.Path),
			"type": entry.Type,
			"size": entry.Size,
		})
	}
	return out
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func metadataResponse(meta engine.GetMetadataResult) map[string]any {
	return map[string]any{
		"path": meta.Path,
		"entry": map[string]any{
			"name":        baseName(meta.Path),
			"size":        meta.Size,
			"permissions": meta.Permissions,
		},
		"blocks_used": meta.BlocksUsed,
	}
}

func statsResponse(e *engine.Engine) map[string]any {
	stats := e.GetStats()
	return map[string]any{
		"total_size":        stats.TotalSpace,
		"used_space":        stats.UsedSpace,
		"free_space":        stats.FreeSpace,
		"total_files":       stats.Files,
		"total_directories": stats.Directories,
		"total_users":       len(e.UserList()),
		"active_sessions":   e.Sessions.Len(),
	}
}
