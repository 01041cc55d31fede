package resultstore

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blurRecord struct {
	BlurScore float64 `json:"blur_score"`
	IsBlurry  bool    `json:"is_blurry"`
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := Load(fs, "output/blur_data.json")
	assert.NoError(t, s.LoadErr())
	assert.Equal(t, 0, s.Len())
}

func TestLoadRecoversFromCorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated", `{"a.jpg": {"blur_score": 1`},
		{"not an object", `[1, 2, 3]`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "out/data.json", []byte(tt.content), 0o644))

			s := Load(fs, "out/data.json")
			assert.ErrorIs(t, s.LoadErr(), ErrLoad)
			assert.Equal(t, 0, s.Len())

			require.NoError(t, s.Upsert("a.jpg", blurRecord{BlurScore: 3}))
			require.NoError(t, s.Flush())
			assert.NoError(t, Load(fs, "out/data.json").LoadErr())
		})
	}
}

func TestUpsertNeverTouchesOtherKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	existing := `{
    "old.jpg": {"blur_score": 12.5, "is_blurry": true},
    "keep.png": {"custom": [1, 2]}
}`
	require.NoError(t, afero.WriteFile(fs, "out/blur_data.json", []byte(existing), 0o644))

	s := Load(fs, "out/blur_data.json")
	require.NoError(t, s.LoadErr())
	keepBefore, ok := s.Get("keep.png")
	require.True(t, ok)

	require.NoError(t, s.Upsert("new.jpg", blurRecord{BlurScore: 150, IsBlurry: false}))
	require.NoError(t, s.Upsert("old.jpg", blurRecord{BlurScore: 200, IsBlurry: false}))
	require.NoError(t, s.Flush())

	reloaded := Load(fs, "out/blur_data.json")
	require.NoError(t, reloaded.LoadErr())
	assert.Equal(t, []string{"keep.png", "new.jpg", "old.jpg"}, reloaded.Keys())

	keepAfter, _ := reloaded.Get("keep.png")
	assert.JSONEq(t, string(keepBefore), string(keepAfter))

	var old blurRecord
	found, err := reloaded.Decode("old.jpg", &old)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, blurRecord{BlurScore: 200}, old)
}

func TestRemove(t *testing.T) {
	s := Load(afero.NewMemMapFs(), "out/x.json")
	require.NoError(t, s.Upsert("a.jpg", 1))
	require.NoError(t, s.Upsert("b.jpg", 2))

	assert.True(t, s.Remove("a.jpg"))
	assert.False(t, s.Remove("a.jpg"))
	assert.Equal(t, []string{"b.jpg"}, s.Keys())
}

func TestFlushIsStableAndLeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := Load(fs, "out/duplicate_data.json")
	require.NoError(t, s.Upsert("c.jpg", map[string]any{"near_duplicate_of": "a.jpg", "hamming_distance": 4}))
	require.NoError(t, s.Upsert("b.jpg", map[string]any{"identical_duplicate_of": "a.jpg", "distance": 0}))
	require.NoError(t, s.Flush())

	first, err := afero.ReadFile(fs, "out/duplicate_data.json")
	require.NoError(t, err)
	assert.Equal(t, `{
    "b.jpg": {
        "distance": 0,
        "identical_duplicate_of": "a.jpg"
    },
    "c.jpg": {
        "hamming_distance": 4,
        "near_duplicate_of": "a.jpg"
    }
}
`, string(first))

	require.NoError(t, Load(fs, "out/duplicate_data.json").Flush())
	second, err := afero.ReadFile(fs, "out/duplicate_data.json")
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	entries, err := afero.ReadDir(fs, "out")
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover %s", e.Name())
	}
}

func TestFlushEmptyStoreWritesEmptyObject(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, Load(fs, "out/data.json").Flush())
	data, err := afero.ReadFile(fs, "out/data.json")
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestFlushFailureIsWriteError(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	s := Load(fs, "out/data.json")
	require.NoError(t, s.Upsert("a.jpg", 1))

	err := s.Flush()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrite)
	assert.False(t, errors.Is(err, ErrLoad))
}

// Two runs against the same file are not merged with each other: the later
// flush replaces the whole document. Callers must serialize runs per file.
func TestConcurrentRunsLastWriterWins(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "out/data.json", []byte(`{"base.jpg": 0}`), os.FileMode(0o644)))

	runA := Load(fs, "out/data.json")
	runB := Load(fs, "out/data.json")
	require.NoError(t, runA.Upsert("a.jpg", 1))
	require.NoError(t, runB.Upsert("b.jpg", 2))

	require.NoError(t, runA.Flush())
	require.NoError(t, runB.Flush())

	final := Load(fs, "out/data.json")
	assert.Equal(t, []string{"b.jpg", "base.jpg"}, final.Keys())
}
