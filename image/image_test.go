package image

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-store/common"
	"github.com/mit-pdos/go-store/config"
	"github.com/mit-pdos/go-store/disk"
	"github.com/mit-pdos/go-store/inode"
	"github.com/mit-pdos/go-store/layout"
)

const fourMiB = 4 << 20

func mkParams(t *testing.T) Params {
	return Params{
		Path:      filepath.Join(t.TempDir(), "store.disk"),
		DiskSize:  fourMiB,
		BlockSize: 4096,
		Ratio:     layout.Balanced,
	}
}

func dirNames(t *testing.T, dir string) []string {
	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range ents {
		names = append(names, e.Name())
	}
	return names
}

func TestCreateVerify(t *testing.T) {
	p := mkParams(t)
	sb, err := Create(p)
	require.NoError(t, err)

	assert.Equal(t, uint64(374), sb.NInodes())
	assert.Equal(t, uint32(1), sb.InodeStart)
	assert.Equal(t, uint32(374), sb.InodeEnd)
	assert.Equal(t, uint32(375), sb.DataStart)
	assert.Equal(t, uint64(4152352), sb.DataSpaceLeft)
	assert.False(t, sb.HasFlag(common.FlagCompression))

	fi, err := os.Stat(p.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(fourMiB), fi.Size())
	assert.Equal(t, os.FileMode(common.FILEMODE), fi.Mode().Perm())

	v, err := Verify(p.Path)
	require.NoError(t, err)
	assert.Equal(t, p.Path, v.Path)
	if diff := cmp.Diff(sb, v.Super); diff != "" {
		t.Errorf("verified superblock mismatch (-created +verified):\n%s", diff)
	}

	assert.Equal(t, []string{"store.disk"}, dirNames(t, filepath.Dir(p.Path)),
		"no temporary files left behind")
}

func TestCreateInodeTable(t *testing.T) {
	p := mkParams(t)
	p.Compression = true
	sb, err := Create(p)
	require.NoError(t, err)
	assert.True(t, sb.HasFlag(common.FlagCompression))

	d, err := disk.OpenFile(p.Path)
	require.NoError(t, err)
	defer d.Close()
	for _, i := range []common.Inum{0, 1, 200, common.Inum(sb.NInodes() - 1)} {
		ip, err := inode.ReadSlot(d, &sb, i)
		require.NoError(t, err)
		assert.Equal(t, common.FlagCompression, ip.Flags, "slot %d", i)
		assert.Equal(t, "", ip.Name)
	}
	// first byte after the table is untouched
	b := make([]byte, 1)
	require.NoError(t, d.ReadAt(b, sb.InodeTableOffset()+sb.InodeTableBytes()))
	assert.Equal(t, byte(0), b[0])
}

func TestCreateIgnoresUmask(t *testing.T) {
	old := unix.Umask(0077)
	defer unix.Umask(old)
	p := mkParams(t)
	_, err := Create(p)
	require.NoError(t, err)
	_, err = Verify(p.Path)
	assert.NoError(t, err)
}

func TestCreateTwice(t *testing.T) {
	p := mkParams(t)
	_, err := Create(p)
	require.NoError(t, err)
	before, err := os.ReadFile(p.Path)
	require.NoError(t, err)

	q := p
	q.DiskSize = 1 << 20
	_, err = Create(q)
	assert.True(t, errors.Is(err, ErrAlreadyExists), "%v", err)
	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, p.Path, be.Path)

	after, err := os.ReadFile(p.Path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"store.disk"}, dirNames(t, filepath.Dir(p.Path)))
}

func TestCreateRejects(t *testing.T) {
	p := mkParams(t)
	p.DiskSize = 0
	_, err := Create(p)
	assert.True(t, errors.Is(err, config.ErrZeroDiskSize))

	p.DiskSize = common.SBSZ
	_, err = Create(p)
	assert.True(t, errors.Is(err, layout.ErrInvalidCapacity))

	p.DiskSize = 1000 // less than one block
	_, err = Create(p)
	assert.True(t, errors.Is(err, layout.ErrInvalidCapacity))

	assert.Empty(t, dirNames(t, filepath.Dir(p.Path)), "rejected builds touch nothing")
}

func TestCreateMissingDir(t *testing.T) {
	p := mkParams(t)
	p.Path = filepath.Join(t.TempDir(), "nope", "store.disk")
	_, err := Create(p)
	assert.True(t, errors.Is(err, ErrAllocation), "%v", err)
}

func TestSmallImage(t *testing.T) {
	p := Params{Path: filepath.Join(t.TempDir(), "small"), DiskSize: 64 << 10, BlockSize: 512, Ratio: layout.Small}
	sb, err := Create(p)
	require.NoError(t, err)
	plan, err := layout.MkPlan(p.DiskSize, p.BlockSize, p.Ratio, common.SBSZ, common.INODESZ)
	require.NoError(t, err)
	assert.Equal(t, plan.NInodes, sb.NInodes())
	assert.Equal(t, plan.DataRegionBytes, sb.DataSpaceLeft)

	v, err := Verify(p.Path)
	require.NoError(t, err)
	assert.Equal(t, p.DiskSize, v.Super.DiskSize)
	assert.Equal(t, plan, v.Super.Plan())
}

type faultyFile struct {
	*disk.FileDisk
	writes int
	failAt int
}

func (f *faultyFile) WriteAt(b []byte, off uint64) error {
	f.writes++
	if f.writes == f.failAt {
		return errors.Wrap(disk.ErrShortWrite, "injected")
	}
	return f.FileDisk.WriteAt(b, off)
}

func withFaultyCreate(t *testing.T, failAt int) {
	orig := createFile
	createFile = func(path string, perm uint32) (imageFile, error) {
		d, err := disk.CreateFile(path, perm)
		if err != nil {
			return nil, err
		}
		return &faultyFile{FileDisk: d, failAt: failAt}, nil
	}
	t.Cleanup(func() { createFile = orig })
}

func TestCreateWriteFailure(t *testing.T) {
	for _, failAt := range []int{1, 2} {
		withFaultyCreate(t, failAt)
		p := mkParams(t)
		_, err := Create(p)
		assert.True(t, errors.Is(err, ErrWrite), "fail at write %d: %v", failAt, err)
		assert.True(t, errors.Is(err, disk.ErrShortWrite))
		assert.Empty(t, dirNames(t, filepath.Dir(p.Path)), "no partial image after failure")
		_, err = Verify(p.Path)
		assert.True(t, errors.Is(err, ErrNotFound))
	}
}

func TestFormatBatched(t *testing.T) {
	p := Params{DiskSize: 8 << 20, BlockSize: 4096, Ratio: layout.Small, Compression: true}
	sb, err := p.Superblock()
	require.NoError(t, err)
	require.True(t, sb.NInodes() > inodesPerWrite, "exercise more than one batch")

	batched := disk.NewMemDisk(p.DiskSize, common.FILEMODE)
	require.NoError(t, format(batched, &sb))

	single := disk.NewMemDisk(p.DiskSize, common.FILEMODE)
	require.NoError(t, sb.Write(single))
	rec := inode.MkTemplate(&sb).Encode()
	for i := uint64(0); i < sb.NInodes(); i++ {
		require.NoError(t, single.WriteAt(rec, sb.InodeTableOffset()+i*common.INODESZ))
	}
	assert.Equal(t, single.Bytes(), batched.Bytes())
}

func TestVerifyRejects(t *testing.T) {
	mk := func(t *testing.T) string {
		p := mkParams(t)
		_, err := Create(p)
		require.NoError(t, err)
		return p.Path
	}

	t.Run("NotFound", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing")
		_, err := Verify(path)
		assert.True(t, errors.Is(err, ErrNotFound))
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err), "verify never creates")
	})
	t.Run("Unreadable", func(t *testing.T) {
		path := mk(t)
		_, err := Verify(filepath.Join(path, "child"))
		assert.True(t, errors.Is(err, ErrUnreadable), "%v", err)
	})
	t.Run("ZeroLength", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty")
		require.NoError(t, os.WriteFile(path, nil, 0644))
		require.NoError(t, os.Chmod(path, 0644))
		_, err := Verify(path)
		assert.True(t, errors.Is(err, ErrTruncatedSuperblock), "%v", err)
	})
	t.Run("Mode", func(t *testing.T) {
		path := mk(t)
		require.NoError(t, os.Chmod(path, 0600))
		_, err := Verify(path)
		assert.True(t, errors.Is(err, ErrModeMismatch), "%v", err)
	})
	t.Run("BadMagic", func(t *testing.T) {
		path := mk(t)
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		require.NoError(t, err)
		_, err = f.WriteAt([]byte("JUNK"), 0)
		require.NoError(t, err)
		require.NoError(t, f.Close())
		_, err = Verify(path)
		assert.True(t, errors.Is(err, ErrBadMagic), "%v", err)
	})
	t.Run("SizeMismatch", func(t *testing.T) {
		path := mk(t)
		require.NoError(t, os.Truncate(path, 1<<20))
		_, err := Verify(path)
		assert.True(t, errors.Is(err, ErrSizeMismatch), "%v", err)
		var ve *VerifyError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, path, ve.Path)
	})
}

func TestVerifyMemDisk(t *testing.T) {
	sb, err := Params{DiskSize: 1 << 20}.Superblock()
	require.NoError(t, err)
	d := disk.NewMemDisk(1<<20, common.FILEMODE)
	require.NoError(t, format(d, &sb))
	v, err := verify("mem", d)
	require.NoError(t, err)
	assert.Equal(t, sb, v.Super)

	short := disk.NewMemDisk(10, common.FILEMODE)
	_, err = verify("short", short)
	assert.True(t, errors.Is(err, ErrTruncatedSuperblock))

	_, err = verify("zero", disk.NewMemDisk(common.SBSZ, common.FILEMODE))
	assert.True(t, errors.Is(err, ErrBadMagic))
}

func TestExists(t *testing.T) {
	p := mkParams(t)
	err := Exists(p.Path)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(Exists(filepath.Join(p.Path, "nodir", "img")), ErrNotFound))

	_, err = Create(p)
	require.NoError(t, err)
	assert.NoError(t, Exists(p.Path))
	assert.True(t, errors.Is(Exists(filepath.Join(p.Path, "child")), ErrUnreadable),
		"a file in the middle of the path is not a missing image")
	assert.Equal(t, []string{"store.disk"}, dirNames(t, filepath.Dir(p.Path)))
}

func TestPrecheck(t *testing.T) {
	p := mkParams(t)
	sb, err := p.Precheck()
	require.NoError(t, err)
	assert.Equal(t, uint64(374), sb.NInodes())
	assert.Empty(t, dirNames(t, filepath.Dir(p.Path)), "precheck creates nothing")

	q := p
	q.Path = filepath.Join(filepath.Dir(p.Path), "nodir", "img")
	_, err = q.Precheck()
	assert.True(t, errors.Is(err, ErrAllocation))

	_, err = Create(p)
	require.NoError(t, err)
	q.Path = filepath.Join(p.Path, "img")
	_, err = q.Precheck()
	assert.True(t, errors.Is(err, ErrAllocation), "parent is a file")
	_, err = p.Precheck()
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestLockMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodir", "img")
	_, err := Lock(context.Background(), path)
	assert.True(t, errors.Is(err, ErrNotFound), "%v", err)
	_, err = RLock(context.Background(), path)
	assert.True(t, errors.Is(err, ErrNotFound), "%v", err)
}

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.disk")

	unlock, err := Lock(context.Background(), path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "locking does not create the image")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = RLock(ctx, path)
	assert.Error(t, err, "shared lock waits for the exclusive holder")

	require.NoError(t, unlock())

	u1, err := RLock(context.Background(), path)
	require.NoError(t, err)
	u2, err := RLock(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, u1())
	require.NoError(t, u2())
}
