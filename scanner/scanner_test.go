package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phototriage/hashing"
	"phototriage/resultstore"
	"phototriage/types"
)

// fakeHasher returns fixed hashes by file name.
type fakeHasher struct {
	hashes map[string]uint64
	fail   map[string]bool
	hook   func(name string)
}

func (f *fakeHasher) Compute(path string) (hashing.ImageHash, error) {
	name := filepath.Base(path)
	if f.hook != nil {
		f.hook(name)
	}
	if f.fail[name] {
		return hashing.ImageHash{}, fmt.Errorf("%w: %s: bad header", hashing.ErrDecode, path)
	}
	v, ok := f.hashes[name]
	if !ok {
		return hashing.ImageHash{}, fmt.Errorf("%w: %s: no such file", hashing.ErrDecode, path)
	}
	return hashing.FromUint64(v), nil
}

func seedFolder(t *testing.T, fs afero.Fs, names ...string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll("in", 0o755))
	for _, n := range names {
		require.NoError(t, afero.WriteFile(fs, filepath.Join("in", n), []byte("x"), 0o644))
	}
}

func baseOptions(fs afero.Fs, h hashing.Computer) Options {
	return Options{
		Fs:           fs,
		InputFolder:  "in",
		OutputFolder: "out",
		Threshold:    10,
		Workers:      4,
		Hasher:       h,
	}
}

func loadStore(t *testing.T, fs afero.Fs) *resultstore.Store {
	t.Helper()
	s := resultstore.Load(fs, filepath.Join("out", DuplicateDataFile))
	require.NoError(t, s.LoadErr())
	return s
}

func TestRunIdenticalAndNear(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "c.png", "a.png", "b.png")
	h := &fakeHasher{hashes: map[string]uint64{
		"a.png": 0xff00,
		"b.png": 0xff00,
		"c.png": 0xff0f,
	}}

	summary, err := Run(context.Background(), baseOptions(fs, h))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Unique)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 1, summary.Nears)
	assert.Equal(t, 0, summary.Failures)
	assert.False(t, summary.Cancelled)

	data, err := afero.ReadFile(fs, "out/duplicate_data.json")
	require.NoError(t, err)
	assert.Equal(t, `{
    "b.png": {
        "identical_duplicate_of": "a.png",
        "distance": 0
    },
    "c.png": {
        "near_duplicate_of": "a.png",
        "hamming_distance": 4
    }
}
`, string(data))
}

func TestRunThresholdBoundary(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "a.jpg", "b.jpg")
	h := &fakeHasher{hashes: map[string]uint64{"a.jpg": 0, "b.jpg": 0x7ff}}

	opts := baseOptions(fs, h)
	summary, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Unique)
	assert.Equal(t, 0, loadStore(t, fs).Len())

	opts.Threshold = 11
	summary, err = Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Nears)
	assert.Equal(t, []string{"b.jpg"}, loadStore(t, fs).Keys())
}

func TestRunEmptyFolderWritesEmptyStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs)

	summary, err := Run(context.Background(), baseOptions(fs, &fakeHasher{}))
	require.NoError(t, err)
	assert.Equal(t, Summary{Elapsed: summary.Elapsed}, summary)

	data, err := afero.ReadFile(fs, "out/duplicate_data.json")
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestRunMissingInputFolderWritesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Run(context.Background(), baseOptions(fs, &fakeHasher{}))
	require.Error(t, err)

	exists, _ := afero.Exists(fs, "out/duplicate_data.json")
	assert.False(t, exists)
}

func TestRunRejectsNegativeThreshold(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "a.jpg")
	opts := baseOptions(fs, &fakeHasher{hashes: map[string]uint64{"a.jpg": 1}})
	opts.Threshold = -1
	_, err := Run(context.Background(), opts)
	assert.Error(t, err)
}

func TestRunCorruptFileAmongValid(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "a.jpg", "broken.jpg", "c.jpg")
	h := &fakeHasher{
		hashes: map[string]uint64{"a.jpg": 0x1, "c.jpg": 0x1},
		fail:   map[string]bool{"broken.jpg": true},
	}

	summary, err := Run(context.Background(), baseOptions(fs, h))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Failures)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, []string{"c.jpg"}, loadStore(t, fs).Keys())
}

func TestRunSkipsNonImagesAndSubfolders(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "a.JPG", "b.Jpeg", "notes.txt", "raw.cr2")
	require.NoError(t, fs.MkdirAll("in/nested.jpg", 0o755))
	h := &fakeHasher{hashes: map[string]uint64{"a.JPG": 7, "b.Jpeg": 7}}

	summary, err := Run(context.Background(), baseOptions(fs, h))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, []string{"b.Jpeg"}, loadStore(t, fs).Keys())
}

func TestRunIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "a.png", "b.png", "c.png", "d.png")
	h := &fakeHasher{hashes: map[string]uint64{"a.png": 0, "b.png": 0, "c.png": 0x3, "d.png": 0xffff_ffff}}

	_, err := Run(context.Background(), baseOptions(fs, h))
	require.NoError(t, err)
	first, err := afero.ReadFile(fs, "out/duplicate_data.json")
	require.NoError(t, err)

	_, err = Run(context.Background(), baseOptions(fs, h))
	require.NoError(t, err)
	second, err := afero.ReadFile(fs, "out/duplicate_data.json")
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestRunMergesWithExistingStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "a.png", "b.png", "broken.png")
	existing := `{
    "a.png": {"identical_duplicate_of": "gone.png", "distance": 0},
    "broken.png": {"near_duplicate_of": "a.png", "hamming_distance": 2},
    "other-folder.png": {"identical_duplicate_of": "x.png", "distance": 0}
}`
	require.NoError(t, afero.WriteFile(fs, "out/duplicate_data.json", []byte(existing), 0o644))

	h := &fakeHasher{
		hashes: map[string]uint64{"a.png": 0xf0, "b.png": 0xf1},
		fail:   map[string]bool{"broken.png": true},
	}
	_, err := Run(context.Background(), baseOptions(fs, h))
	require.NoError(t, err)

	s := loadStore(t, fs)
	// a.png is canonical now so its stale record is gone; the failed file and
	// the unrelated key are untouched.
	assert.Equal(t, []string{"b.png", "broken.png", "other-folder.png"}, s.Keys())
}

func TestRunOrderIsByFilenameNotCompletion(t *testing.T) {
	fs := afero.NewMemMapFs()
	names := []string{"01.png", "02.png", "03.png", "04.png", "05.png", "06.png"}
	seedFolder(t, fs, names...)
	h := &fakeHasher{
		hashes: map[string]uint64{
			"01.png": 0, "02.png": 0x1, "03.png": 0x3, "04.png": 0x7, "05.png": 0xf, "06.png": 0x1f,
		},
		// later names finish first
		hook: func(name string) {
			delay := map[string]time.Duration{"01.png": 30, "02.png": 20, "03.png": 10}[name]
			time.Sleep(delay * time.Millisecond)
		},
	}
	opts := baseOptions(fs, h)
	opts.Workers = 6
	opts.Threshold = 5

	summary, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unique)
	assert.Equal(t, 5, summary.Nears)

	s := loadStore(t, fs)
	for _, n := range names[1:] {
		var rec struct {
			Of string `json:"near_duplicate_of"`
		}
		found, err := s.Decode(n, &rec)
		require.NoError(t, err)
		require.True(t, found, n)
		assert.Equal(t, "01.png", rec.Of, n)
	}
}

func TestRunCancelledBeforeStartStillFlushes(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "a.png", "b.png")
	require.NoError(t, afero.WriteFile(fs, "out/duplicate_data.json", []byte(`{"keep.png": {"distance": 0}}`), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := &fakeHasher{hashes: map[string]uint64{"a.png": 1, "b.png": 1}}
	summary, err := Run(ctx, baseOptions(fs, h))
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Cancelled)
	assert.Equal(t, 0, summary.Processed)

	s := loadStore(t, fs)
	assert.Equal(t, []string{"keep.png"}, s.Keys())
	data, err := afero.ReadFile(fs, "out/duplicate_data.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), "    \"keep.png\"", "store rewritten by flush")
}

func TestRunCancelledMidwayKeepsClassifiedResults(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "a.png", "b.png", "c.png", "d.png")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := &fakeHasher{
		hashes: map[string]uint64{"a.png": 1, "b.png": 1, "c.png": 1, "d.png": 1},
		hook: func(name string) {
			if name == "c.png" {
				cancel()
			}
		},
	}
	opts := baseOptions(fs, h)
	opts.Workers = 1

	summary, err := Run(ctx, opts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Cancelled)
	assert.Less(t, summary.Processed, 4)

	s := loadStore(t, fs)
	assert.NotContains(t, s.Keys(), "d.png")
	if summary.Processed >= 2 {
		assert.Contains(t, s.Keys(), "b.png")
	}
}

type fakeCatalog struct {
	run    types.RunInfo
	images []types.ImageInfo
	err    error
}

func (c *fakeCatalog) RecordRun(run types.RunInfo, images []types.ImageInfo) (int64, error) {
	c.run = run
	c.images = images
	return 1, c.err
}

func TestRunRecordsCatalog(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "a.png", "b.png", "bad.png")
	h := &fakeHasher{hashes: map[string]uint64{"a.png": 0xab, "b.png": 0xab}, fail: map[string]bool{"bad.png": true}}
	cat := &fakeCatalog{}
	opts := baseOptions(fs, h)
	opts.Catalog = cat
	opts.Algorithm = "average"

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, "average", cat.run.Algorithm)
	assert.Equal(t, 3, cat.run.Processed)
	assert.Equal(t, 1, cat.run.Failures)
	require.Len(t, cat.images, 2)
	assert.Equal(t, "a.png", cat.images[0].Name)
	assert.Equal(t, "unique", cat.images[0].Verdict)
	assert.Equal(t, hashing.FromUint64(0xab).String(), cat.images[0].Hash)
	assert.Equal(t, 64, cat.images[0].HashBits)
	assert.Equal(t, "identical", cat.images[1].Verdict)
	assert.Equal(t, "a.png", cat.images[1].DuplicateOf)
	assert.Equal(t, int64(1), cat.images[1].Size)
}

func TestRunCatalogFailureIsNotFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "a.png")
	opts := baseOptions(fs, &fakeHasher{hashes: map[string]uint64{"a.png": 1}})
	opts.Catalog = &fakeCatalog{err: errors.New("disk full")}

	_, err := Run(context.Background(), opts)
	assert.NoError(t, err)
}

func TestRunStoreWriteFailureIsFatal(t *testing.T) {
	base := afero.NewMemMapFs()
	seedFolder(t, base, "a.png")
	opts := baseOptions(afero.NewReadOnlyFs(base), &fakeHasher{hashes: map[string]uint64{"a.png": 1}})

	_, err := Run(context.Background(), opts)
	assert.ErrorIs(t, err, resultstore.ErrWrite)
}

type fakeDetector struct {
	mu    sync.Mutex
	calls int
}

func (d *fakeDetector) Name() string         { return "fake" }
func (d *fakeDetector) OutputFile() string   { return "fake_data.json" }
func (d *fakeDetector) Extensions() []string { return DuplicateExtensions }

func (d *fakeDetector) Detect(path string) (any, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	name := filepath.Base(path)
	if name == "bad.png" {
		return nil, errors.New("cannot decode")
	}
	return map[string]any{"size": len(name)}, nil
}

func TestRunDetectorMergesRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "a.png", "bad.png", "long-name.jpg", "skip.gif")
	require.NoError(t, afero.WriteFile(fs, "out/fake_data.json",
		[]byte(`{"bad.png": {"size": 99}, "elsewhere.png": {"size": 1}}`), 0o644))

	d := &fakeDetector{}
	summary, err := RunDetector(context.Background(), d, DetectorOptions{
		Fs: fs, InputFolder: "in", OutputFolder: "out", Workers: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, d.calls)
	assert.Equal(t, "fake", summary.Detector)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Recorded)
	assert.Equal(t, 1, summary.Failures)

	s := resultstore.Load(fs, "out/fake_data.json")
	require.NoError(t, s.LoadErr())
	assert.Equal(t, []string{"a.png", "bad.png", "elsewhere.png", "long-name.jpg"}, s.Keys())

	var rec struct{ Size int }
	_, err = s.Decode("bad.png", &rec)
	require.NoError(t, err)
	assert.Equal(t, 99, rec.Size, "failed file keeps its earlier record")
	_, err = s.Decode("long-name.jpg", &rec)
	require.NoError(t, err)
	assert.Equal(t, 13, rec.Size)
}

func TestProcessOrderedDeliversInOrder(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}
	var got []int
	cancelled := processOrdered(context.Background(), items, 8,
		func(v int) int {
			time.Sleep(time.Duration((50-v)%7) * time.Millisecond)
			return v * 2
		},
		func(i int, r int) {
			assert.Equal(t, items[i]*2, r)
			got = append(got, i)
		})
	assert.False(t, cancelled)
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestListImagesSorted(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedFolder(t, fs, "b.png", "A.PNG", "a.jpeg", "c.bmp")

	names, err := ListImages(fs, "in", DuplicateExtensions)
	require.NoError(t, err)
	assert.Equal(t, []string{"A.PNG", "a.jpeg", "b.png"}, names)

	names, err = ListImages(fs, "in", CorruptionExtensions)
	require.NoError(t, err)
	assert.Equal(t, []string{"A.PNG", "a.jpeg", "b.png", "c.bmp"}, names)

	_, err = ListImages(fs, "in/b.png", DuplicateExtensions)
	assert.Error(t, err)
}
