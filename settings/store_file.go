//go:build !rp2040 && !rp2350

package settings

import (
	"os"

	"buttonboard-go/errcode"
)

// FileStore persists the blob to a file, for the host simulator. Saves go
// through a temp file and rename so a crash mid-write leaves the previous
// blob intact.
type FileStore struct {
	Path string
}

func (f *FileStore) Load() ([]byte, error) {
	raw, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &errcode.E{C: errcode.StoreIO, Op: "settings.load", Msg: f.Path, Err: err}
	}
	return raw, nil
}

func (f *FileStore) Save(raw []byte) error {
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return &errcode.E{C: errcode.StoreIO, Op: "settings.save", Msg: tmp, Err: err}
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return &errcode.E{C: errcode.StoreIO, Op: "settings.save", Msg: f.Path, Err: err}
	}
	return nil
}
