package binary

import (
	"sort"
	"testing"

	osm "github.com/omniscale/go-osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagsAsAndFromArray(t *testing.T) {
	tags := osm.Tags{"name": "foo", "highway": "footway", "foot": "yes", "colour": "red"}
	array := tagsAsArray(tags)
	require.Len(t, array, 5)

	sort.Strings(array)
	assert.Equal(t, []string{
		"\x01foo",
		"colour",
		"red",
		string(rune(tagsToCodePoint["highway"]["footway"])),
		string(rune(tagsToCodePoint["foot"]["yes"])),
	}, array)

	result, err := tagsFromArray(array)
	require.NoError(t, err)
	assert.Equal(t, tags, result)
}

func TestCodePoints(t *testing.T) {
	// codepoints are part of the cache format
	assert.Equal(t, codepoint('\uE000'), tagsToCodePoint["highway"]["footway"])
	assert.Equal(t, codepoint('\uE001'), tagsToCodePoint["highway"]["path"])
	assert.Equal(t, codepoint('\uE018'), tagsToCodePoint["foot"]["yes"])
	assert.Equal(t, codepoint(1), commonKeys["name"])
}

func TestEscapedKeys(t *testing.T) {
	tags := osm.Tags{
		"\x0ahighway":        "residential",
		"\uE000oneway":       "yes",
		"\ufffdescaped":      "x",
		"":                   "empty key",
		"name\uE000":         "suffix",
		string([]byte{0xff}): "invalid utf8",
	}
	array := tagsAsArray(tags)
	result, err := tagsFromArray(array)
	require.NoError(t, err)
	assert.Equal(t, tags, result)
}

func TestTagsFromArrayErrors(t *testing.T) {
	_, err := tagsFromArray([]string{"highway"})
	assert.Error(t, err)
	_, err = tagsFromArray([]string{"\x1ffoo"})
	assert.Error(t, err)
	_, err = tagsFromArray([]string{"\uF000"})
	assert.Error(t, err)

	tags, err := tagsFromArray(nil)
	assert.NoError(t, err)
	assert.Nil(t, tags)
}
