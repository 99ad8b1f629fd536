// Package attachments keeps attachment plaintext on local disk and their
// metadata in the persistent-object layer.
package attachments

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/filex"
	"github.com/google/uuid"
)

// DirName is the attachment folder under the client data directory.
const DirName = "attachments"

// Store is a content-addressed byte store keyed by internal attachment id.
// Writes to distinct ids are independent; concurrent writes to the same id
// are last-writer-wins.
type Store struct {
	dir string
}

// NewStore creates (if needed) the attachment folder under dataDir.
func NewStore(dataDir string) (*Store, error) {
	dir, err := filex.EnsureDir(dataDir, DirName)
	if err != nil {
		return nil, &common.StorageError{Op: "init", Err: err}
	}
	return &Store{dir: dir}, nil
}

// NewID returns a fresh internal attachment id.
func NewID() string {
	return uuid.NewString()
}

// PointerID returns the internal id of the attachment referenced by a
// received or replayed message. The same message and remote id always map to
// the same id, so processing a message again overwrites its attachment.
func PointerID(messageID string, remoteID uint64) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(messageID+"/"+strconv.FormatUint(remoteID, 10))).String()
}

// Dir returns the attachment folder.
func (s *Store) Dir() string { return s.dir }

func validID(id string) error {
	if id == "" || id == "." || id == ".." ||
		strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) ||
		strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: attachment id %q", common.ErrInvalidArgument, id)
	}
	return nil
}

// Path returns the file backing id.
func (s *Store) Path(id string) (string, error) {
	if err := validID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id), nil
}

// Write stores data under id, replacing any previous content, and returns
// the file path.
func (s *Store) Write(id string, data []byte) (string, error) {
	p, err := s.Path(id)
	if err != nil {
		return "", err
	}
	if err := filex.WriteFileAtomic(p, data, 0o600); err != nil {
		return "", &common.StorageError{Op: "write", ID: id, Err: err}
	}
	return p, nil
}

// Read returns the bytes stored under id or a *common.NotFoundError.
func (s *Store) Read(id string) ([]byte, error) {
	p, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.NewNotFoundError("attachment " + id)
	}
	if err != nil {
		return nil, &common.StorageError{Op: "read", ID: id, Err: err}
	}
	return b, nil
}

// Exists reports whether bytes are stored under id.
func (s *Store) Exists(id string) bool {
	p, err := s.Path(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Delete removes the bytes stored under id. Deleting a missing id is not an
// error.
func (s *Store) Delete(id string) error {
	p, err := s.Path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &common.StorageError{Op: "delete", ID: id, Err: err}
	}
	return nil
}

// Count returns the number of stored attachments.
func (s *Store) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, &common.StorageError{Op: "count", Err: err}
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			n++
		}
	}
	return n, nil
}

// DeleteAll removes every stored attachment and recreates an empty folder.
func (s *Store) DeleteAll() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return &common.StorageError{Op: "purge", Err: err}
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return &common.StorageError{Op: "purge", Err: err}
	}
	return nil
}
