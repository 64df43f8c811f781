package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mit-pdos/go-store/alloc"
	"github.com/mit-pdos/go-store/config"
	"github.com/mit-pdos/go-store/inode"
)

// optString is a string flag that records whether it was given at all, so
// that -data "" can be told apart from no -data.
type optString struct {
	val string
	set bool
}

func (o *optString) String() string {
	return o.val
}

func (o *optString) Set(s string) error {
	o.val = s
	o.set = true
	return nil
}

// source is where the bytes of a write come from: a file, a literal, or
// standard input.
type source struct {
	File string
	Data optString
	Name string
}

func (s *source) name() string {
	if s.Name != "" {
		return s.Name
	}
	if s.File != "" {
		return filepath.Base(s.File)
	}
	return ""
}

// CheckName rejects a name that does not fit the inode the data would be
// recorded in.
func (s *source) CheckName() error {
	n := s.name()
	if n == "" {
		return nil
	}
	var ip inode.Inode
	if err := ip.SetName(n); err != nil {
		return &config.Error{Field: "name", Err: err}
	}
	return nil
}

func (s *source) Validate() error {
	if s.File != "" && s.Data.set {
		return errors.New("-file and -data cannot be combined")
	}
	return nil
}

// Pending returns the number of bytes the source would write. Standard
// input is drained to count it, and only consulted when neither -file nor
// -data is given and it is not a terminal. An empty or missing source is
// alloc.ErrNoData.
func (s *source) Pending(env *Env) (uint64, error) {
	switch {
	case s.File != "":
		fi, err := os.Stat(s.File)
		if os.IsNotExist(err) {
			logrus.WithField("file", s.File).Warn("data file does not exist")
			return 0, errors.Wrapf(alloc.ErrNoData, "file %q does not exist", s.File)
		}
		if err != nil {
			return 0, errors.Wrapf(err, "stat %q", s.File)
		}
		if !fi.Mode().IsRegular() {
			return 0, errors.Errorf("%q is not a regular file", s.File)
		}
		if fi.Size() == 0 {
			return 0, errors.Wrapf(alloc.ErrNoData, "file %q is empty", s.File)
		}
		return uint64(fi.Size()), nil

	case s.Data.set:
		if s.Data.val == "" {
			return 0, errors.Wrap(alloc.ErrNoData, "empty -data")
		}
		return uint64(len(s.Data.val)), nil

	case env.Stdin != nil && !env.StdinIsTerminal:
		n, err := io.Copy(io.Discard, env.Stdin)
		if err != nil {
			return 0, errors.Wrap(err, "read standard input")
		}
		if n == 0 {
			return 0, errors.Wrap(alloc.ErrNoData, "standard input is empty")
		}
		return uint64(n), nil
	}
	return 0, errors.Wrap(alloc.ErrNoData, "no -file, -data or standard input given")
}
