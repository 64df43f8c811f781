package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// File is the on-disk TOML configuration:
//
//	[disk]
//	name = "store.disk"
//	size = "4MB"
//
//	[storage]
//	profile = "balanced"
//	compression = "off"
//
//	[layout]
//	block_size = "4KB"
type File struct {
	Disk struct {
		Name string `toml:"name"`
		Size string `toml:"size"`
	} `toml:"disk"`
	Storage struct {
		Profile     string `toml:"profile"`
		Compression string `toml:"compression"`
	} `toml:"storage"`
	Layout struct {
		BlockSize string `toml:"block_size"`
	} `toml:"layout"`

	md toml.MetaData
}

// LoadFile decodes the TOML file at path.
func LoadFile(path string) (*File, error) {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode config file %q", path)
	}
	for _, k := range md.Undecoded() {
		logrus.WithField("key", k.String()).Warnf("ignoring unknown key in %s", path)
	}
	f.md = md
	return &f, nil
}

func (f *File) set(key ...string) bool {
	return f.md.IsDefined(key...)
}

// apply copies the keys present in f onto c.
func (f *File) apply(c *Config) error {
	if f.set("disk", "name") {
		c.DiskPath = f.Disk.Name
	}
	if f.set("disk", "size") {
		n, err := ParseSize(f.Disk.Size)
		if err != nil {
			return fieldErr("disk.size", err)
		}
		c.DiskSize = n
	}
	if f.set("storage", "profile") {
		c.Profile = ParseProfile(f.Storage.Profile)
	}
	if f.set("storage", "compression") {
		on, err := ParseCompression(f.Storage.Compression)
		if err != nil {
			return err
		}
		c.Compression = on
	}
	if f.set("layout", "block_size") {
		bs, err := parseBlockSize(f.Layout.BlockSize)
		if err != nil {
			return err
		}
		c.BlockSize = bs
	}
	return nil
}
