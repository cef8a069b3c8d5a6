// Package filestore stores uploaded files - either in a local directory or in an S3 compatible object storage
package filestore

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/context"
)

// ErrIllegalName is returned for file names that would leave the storage
var ErrIllegalName = errors.New("illegal file name")

// Store saves uploaded files and serves them over HTTP
type Store interface {
	// Save stores the contents of r under the given name, replacing an existing file
	Save(ctx context.Context, name, contentType string, r io.Reader, size int64) error
	// Handler returns the HTTP handler serving the stored files by name
	Handler() http.Handler
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return ErrIllegalName
	}
	return nil
}

// LocalStore stores files inside a directory
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store writing into dir, creating it if necessary
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrapf(err, "NewLocalStore: cannot create directory %s", dir)
	}
	return &LocalStore{dir: dir}, nil
}

// Save stores the file inside the directory. The file is written to a temporary name first and renamed when complete.
func (s *LocalStore) Save(_ context.Context, name, _ string, r io.Reader, _ int64) error {
	if err := checkName(name); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return errors.Wrap(err, "Save: cannot create temporary file")
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return errors.Wrap(err, "Save: cannot write file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "Save: cannot write file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), filepath.Join(s.dir, name)), "Save: cannot move file into place")
}

// Handler serves the directory's files
func (s *LocalStore) Handler() http.Handler {
	return http.FileServer(http.Dir(s.dir))
}
