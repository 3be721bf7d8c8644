package bootstrap

import (
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

// WritableMode is applied recursively to the writable directories
const WritableMode fs.FileMode = 0o775

// PermissionSetter normalizes ownership and mode of a directory tree
type PermissionSetter interface {
	Chmod(dir string, mode fs.FileMode) error
	Chown(dir, owner string) error
}

// osPermissions walks the tree with os.Chmod and os.Lchown
type osPermissions struct{}

func (osPermissions) Chmod(dir string, mode fs.FileMode) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		return os.Chmod(path, mode)
	})
}

func (osPermissions) Chown(dir, owner string) error {
	u, err := user.Lookup(owner)
	if err != nil {
		return err
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return err
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return err
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return os.Lchown(path, uid, gid)
	})
}
