package cli

import (
	"fmt"
	"io"

	units "github.com/docker/go-units"

	"github.com/mit-pdos/go-store/config"
	"github.com/mit-pdos/go-store/super"
)

func human(n uint64) string {
	return units.BytesSize(float64(n))
}

func printConfig(w io.Writer, c config.Config) {
	fmt.Fprintf(w, "Disk path:   %s\n", c.DiskPath)
	fmt.Fprintf(w, "Disk size:   %s (%d bytes)\n", human(c.DiskSize), c.DiskSize)
	fmt.Fprintf(w, "Block size:  %d\n", c.BlockSize)
	fmt.Fprintf(w, "Profile:     %s (inode ratio %d/1000)\n", c.Profile, uint64(c.Ratio()))
	fmt.Fprintf(w, "Compression: %t\n", c.Compression)
}

func printSuper(w io.Writer, sb *super.Superblock) {
	fmt.Fprintf(w, "Superblock:\n")
	fmt.Fprintf(w, "  magic:           %#08x\n", sb.Magic)
	fmt.Fprintf(w, "  version:         %d\n", sb.Version)
	fmt.Fprintf(w, "  flags:           %s\n", sb.Flags)
	fmt.Fprintf(w, "  disk_size:       %d\n", sb.DiskSize)
	fmt.Fprintf(w, "  block:           %d\n", sb.Block)
	fmt.Fprintf(w, "  inode_start:     %d\n", sb.InodeStart)
	fmt.Fprintf(w, "  inode_end:       %d\n", sb.InodeEnd)
	fmt.Fprintf(w, "  data_start:      %d\n", sb.DataStart)
	fmt.Fprintf(w, "  data_space_left: %d\n", sb.DataSpaceLeft)
	fmt.Fprintf(w, "  compression:     %d\n", sb.Compression)
	fmt.Fprintf(w, "  checksum:        %d\n", sb.Checksum)
	fmt.Fprintf(w, "  reserved:        %d\n", sb.Reserved)
	fmt.Fprintf(w, "  sb_cksum:        %d\n", sb.SbCksum)
}

func printLayout(w io.Writer, sb *super.Superblock) {
	off := sb.InodeTableOffset()
	fmt.Fprintf(w, "Layout:\n")
	fmt.Fprintf(w, "  inodes:      %d\n", sb.NInodes())
	fmt.Fprintf(w, "  inode table: bytes [%d, %d) %s in %d blocks\n", off, off+sb.InodeTableBytes(),
		human(sb.InodeTableBytes()), sb.Plan().TableBlocks(sb.Block))
	fmt.Fprintf(w, "  data region: from byte %d\n", sb.DataOffset())
	fmt.Fprintf(w, "  free:        %s of %s\n", human(sb.DataSpaceLeft), human(sb.DiskSize))
}
