package txndb

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/archsim/cachesim/pkg/simerr"
)

// binFile wraps a binary file the reader seeks and streams from, adding
// the reopen-at-cursor behavior used when the producer appends to the
// file while it is being read.
type binFile struct {
	path string
	f    *os.File
}

func openBinFile(path string) (*binFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, simerr.Wrap(simerr.IoError, component, "failed to open "+path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, simerr.Wrap(simerr.IoError, component, "failed to stat "+path, err)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, simerr.Newf(simerr.IoError, component, "%s is empty", path)
	}
	return &binFile{path: path, f: f}, nil
}

func (b *binFile) read(buf any) error {
	if err := binary.Read(b.f, binary.LittleEndian, buf); err != nil {
		return simerr.Wrap(simerr.IoError, component, "short read from "+b.path, err)
	}
	return nil
}

func (b *binFile) readBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.f, buf); err != nil {
		return nil, simerr.Wrap(simerr.IoError, component, "short read from "+b.path, err)
	}
	return buf, nil
}

func (b *binFile) seek(offset int64, whence int) (int64, error) {
	pos, err := b.f.Seek(offset, whence)
	if err != nil {
		return 0, simerr.Wrap(simerr.IoError, component, "seek failed on "+b.path, err)
	}
	return pos, nil
}

func (b *binFile) tell() (int64, error) {
	return b.seek(0, io.SeekCurrent)
}

func (b *binFile) size() (int64, error) {
	info, err := b.f.Stat()
	if err != nil {
		return 0, simerr.Wrap(simerr.IoError, component, "stat failed on "+b.path, err)
	}
	return info.Size(), nil
}

// reopen closes and reopens the underlying file, restoring the cursor
// position it had before closing. If reopening fails the file is left
// closed and the error surfaces to the caller, matching the "consistent
// state on failure" requirement.
func (b *binFile) reopen() error {
	cur, err := b.tell()
	if err != nil {
		return err
	}
	if err := b.f.Close(); err != nil {
		return simerr.Wrap(simerr.IoError, component, "failed to close "+b.path+" for reopen", err)
	}
	f, err := os.Open(b.path)
	if err != nil {
		return simerr.Wrap(simerr.IoError, component, "failed to reopen "+b.path, err)
	}
	b.f = f
	if _, err := b.seek(cur, io.SeekStart); err != nil {
		return err
	}
	return nil
}

func (b *binFile) close() error {
	return b.f.Close()
}
