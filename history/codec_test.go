package history

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "", Encode(nil))
	assert.Equal(t, "a.png", Encode(keys("a.png")))
	assert.Equal(t, `a/b.png\c.png\d e.png`, Encode(keys("a/b.png", "c.png", "d e.png")))
}

func TestDecode_DropsEmptySegments(t *testing.T) {
	assert.Empty(t, Decode(""))
	assert.Empty(t, Decode(`\\\`))
	assert.Equal(t, keys("a.png", "b.png"), Decode(`\a.png\\b.png\`))
}

func TestCodec_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	prefs := NewMemoryPrefs()
	codec := NewCodec(prefs, "")

	for n := 0; n <= DefaultHistoryLength; n++ {
		seq := make([]PathKey, 0, n)
		seen := map[PathKey]bool{}
		for len(seq) < n {
			k := Normalize(fmt.Sprintf(`Assets\dir%d\file %d.png`, rng.Intn(8), rng.Intn(1000)))
			if seen[k] {
				continue
			}
			seen[k] = true
			seq = append(seq, k)
		}

		require.NoError(t, codec.Save(seq))
		assert.Equal(t, seq, append([]PathKey{}, codec.Load()...), "length %d", n)
	}
}

func TestCodec_DefaultKey(t *testing.T) {
	prefs := NewMemoryPrefs()
	codec := NewCodec(prefs, "")
	assert.Equal(t, DefaultPrefKey, codec.Key())

	require.NoError(t, codec.Save(keys("a.png")))
	v, err := prefs.GetString("Import History")
	require.NoError(t, err)
	assert.Equal(t, "a.png", v)
}

func TestCodec_CustomKey(t *testing.T) {
	prefs := NewMemoryPrefs()
	codec := NewCodec(prefs, "Project A History")
	require.NoError(t, codec.Save(keys("a.png")))

	v, _ := prefs.GetString(DefaultPrefKey)
	assert.Empty(t, v)
	assert.Equal(t, keys("a.png"), codec.Load())
}

func TestCodec_LoadMissing(t *testing.T) {
	assert.Empty(t, NewCodec(NewMemoryPrefs(), "").Load())
}

func TestCodec_LoadFailure(t *testing.T) {
	prefs := newFlakyPrefs()
	prefs.failGet = true
	assert.Empty(t, NewCodec(prefs, "").Load())
}

func TestCodec_SaveFailure(t *testing.T) {
	prefs := newFlakyPrefs()
	prefs.failSet = true
	err := NewCodec(prefs, "").Save(keys("a.png"))
	require.ErrorIs(t, err, errPrefsDown)
	assert.Contains(t, err.Error(), DefaultPrefKey)
}
