package config

import (
	"flag"
)

// RegisterDiskFlags registers the flags that locate an image.
func RegisterDiskFlags(flagSet *flag.FlagSet) {
	flagSet.String("config", "", "TOML configuration file; flags given explicitly override its values.")
	flagSet.String("disk", DefaultDiskPath, "path of the disk image, relative to the working directory unless absolute.")
}

// RegisterLayoutFlags registers the flags that shape a new image.
func RegisterLayoutFlags(flagSet *flag.FlagSet) {
	flagSet.String("disk-size", "", "size of the disk image, in bytes or with a KB/MB/GB suffix. Required unless set in the config file.")
	flagSet.String("block-size", "4KB", "block size of the disk image.")
	flagSet.String("profile", ProfileBalanced.String(), "expected usage: largefile, smallfiles, or balanced. Picks the share of the image reserved for inodes.")
	flagSet.String("compression", "off", "enable compression for the whole disk: on, off.")
}

// NewFromFlags builds a Config from defaults, then the config file named by
// --config (if any), then every flag that was set explicitly. The disk path
// of the result is absolute.
func NewFromFlags(flagSet *flag.FlagSet) (Config, error) {
	c := Default()
	if f := flagSet.Lookup("config"); f != nil && f.Value.String() != "" {
		file, err := LoadFile(f.Value.String())
		if err != nil {
			return Config{}, err
		}
		if err := file.apply(&c); err != nil {
			return Config{}, err
		}
	}

	var err error
	flagSet.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		err = setFlag(&c, f.Name, f.Value.String())
	})
	if err != nil {
		return Config{}, err
	}
	return c.ResolvePath()
}

func setFlag(c *Config, name, value string) error {
	switch name {
	case "disk":
		c.DiskPath = value
	case "disk-size":
		n, err := ParseSize(value)
		if err != nil {
			return fieldErr(name, err)
		}
		c.DiskSize = n
	case "block-size":
		bs, err := parseBlockSize(value)
		if err != nil {
			return err
		}
		c.BlockSize = bs
	case "profile":
		c.Profile = ParseProfile(value)
	case "compression":
		on, err := ParseCompression(value)
		if err != nil {
			return err
		}
		c.Compression = on
	}
	return nil
}
