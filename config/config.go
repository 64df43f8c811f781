// Package config resolves the settings of one store invocation from
// command-line flags merged over an optional TOML file.
//
// A Config is built once, validated, and then only copied: nothing in the
// core mutates it.
package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mit-pdos/go-store/common"
	"github.com/mit-pdos/go-store/layout"
	"github.com/mit-pdos/go-store/util"
)

// DefaultDiskPath is used when neither a flag nor the config file names the
// image.
const DefaultDiskPath = "store.disk"

var (
	ErrZeroDiskSize   = errors.New("disk size cannot be zero")
	ErrEmptyPath      = errors.New("disk path is empty")
	ErrPathTooLong    = errors.New("disk path too long")
	ErrBadSize        = errors.New("malformed size")
	ErrBadBlockSize   = errors.New("unsupported block size")
	ErrBadCompression = errors.New("compression must be on or off")
)

// Error is a configuration error: the invocation is unusable and no image
// was touched.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fieldErr(field string, err error) error {
	return &Error{Field: field, Err: err}
}

// Profile is the expected usage of an image. It picks the inode ratio.
type Profile int

const (
	ProfileBalanced Profile = iota
	ProfileLargeFile
	ProfileSmallFiles
)

// ParseProfile maps a profile name to a Profile. Names are matched without
// regard to case; anything unrecognized is ProfileBalanced.
func ParseProfile(s string) Profile {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "largefile":
		return ProfileLargeFile
	case "smallfiles":
		return ProfileSmallFiles
	}
	return ProfileBalanced
}

func (p Profile) String() string {
	switch p {
	case ProfileLargeFile:
		return "largefile"
	case ProfileSmallFiles:
		return "smallfiles"
	}
	return "balanced"
}

func (p Profile) Ratio() layout.InodeRatio {
	switch p {
	case ProfileLargeFile:
		return layout.Large
	case ProfileSmallFiles:
		return layout.Small
	}
	return layout.Balanced
}

// Config is the resolved configuration of one invocation.
type Config struct {
	DiskPath    string
	DiskSize    uint64
	BlockSize   uint32
	Profile     Profile
	Compression bool

	CompressionMode common.Compression
	ChecksumMode    common.Checksum
}

func Default() Config {
	return Config{
		DiskPath:        DefaultDiskPath,
		BlockSize:       common.DEFAULTBLKSZ,
		Profile:         ProfileBalanced,
		CompressionMode: common.CompressionNone,
		ChecksumMode:    common.ChecksumNone,
	}
}

func (c Config) Ratio() layout.InodeRatio {
	return c.Profile.Ratio()
}

// WithDiskSize returns a copy of c describing an image of n bytes. Callers
// use it to adopt the size recorded by a verified image.
func (c Config) WithDiskSize(n uint64) Config {
	c.DiskSize = n
	return c
}

// Validate checks the settings every command depends on.
func (c Config) Validate() error {
	if c.DiskPath == "" {
		return fieldErr("disk", ErrEmptyPath)
	}
	if uint64(len(c.DiskPath)) > common.MAXPATH {
		return fieldErr("disk", errors.Wrapf(ErrPathTooLong,
			"%d bytes, max %d", len(c.DiskPath), common.MAXPATH))
	}
	return ValidateBlockSize(c.BlockSize)
}

// ValidateForInit additionally requires the settings needed to build an
// image.
func (c Config) ValidateForInit() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DiskSize == 0 {
		return fieldErr("disk-size", ErrZeroDiskSize)
	}
	return nil
}

func ValidateBlockSize(bs uint32) error {
	if bs < common.MINBLKSZ || bs > common.MAXBLKSZ || !util.IsPowerOfTwo(uint64(bs)) {
		return fieldErr("block-size", errors.Wrapf(ErrBadBlockSize,
			"%d is not a power of two in [%d, %d]", bs, common.MINBLKSZ, common.MAXBLKSZ))
	}
	return nil
}

// ParseSize parses a byte count such as "4096", "4KB", "4m" or "1GiB".
// Multiples are binary.
func ParseSize(s string) (uint64, error) {
	n, err := units.RAMInBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(ErrBadSize, "%q", s)
	}
	if n < 0 {
		return 0, errors.Wrapf(ErrBadSize, "%q is negative", s)
	}
	return uint64(n), nil
}

func parseBlockSize(s string) (uint32, error) {
	n, err := ParseSize(s)
	if err != nil {
		return 0, fieldErr("block-size", err)
	}
	if n > math.MaxUint32 {
		return 0, fieldErr("block-size", errors.Wrapf(ErrBadBlockSize, "%d", n))
	}
	return uint32(n), nil
}

// ParseCompression accepts on/off and the usual boolean spellings.
func ParseCompression(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return true, nil
	case "off", "":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fieldErr("compression", errors.Wrapf(ErrBadCompression, "%q", s))
	}
	return b, nil
}

// ResolvePath makes c.DiskPath absolute, relative to the working
// directory.
func (c Config) ResolvePath() (Config, error) {
	if c.DiskPath == "" {
		return c, fieldErr("disk", ErrEmptyPath)
	}
	abs, err := filepath.Abs(c.DiskPath)
	if err != nil {
		return c, errors.Wrapf(err, "resolve disk path %q", c.DiskPath)
	}
	c.DiskPath = abs
	return c, nil
}

// Log writes the configuration to the debug log.
func (c Config) Log() {
	logrus.WithFields(logrus.Fields{
		"disk":        c.DiskPath,
		"disk_size":   c.DiskSize,
		"block_size":  c.BlockSize,
		"profile":     c.Profile.String(),
		"ratio":       uint64(c.Ratio()),
		"compression": c.Compression,
	}).Debug("config")
}
