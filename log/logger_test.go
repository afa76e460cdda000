package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &logFilter{writer: buf, levels: levels, minLevel: LWarn}
	f.init()

	for _, line := range []string{
		"[debug] hidden\n",
		"[progress] hidden\n",
		"[info] hidden\n",
		"[warn] shown\n",
		"[error] shown\n",
		"no level shown\n",
	} {
		f.Write([]byte(line))
	}

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 3, strings.Count(out, "shown"))

	buf.Reset()
	f.SetMinLevel(LDebug)
	f.Write([]byte("[debug] now visible\n"))
	assert.Contains(t, buf.String(), "now visible")
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("warn")
	assert.True(t, ok)
	assert.Equal(t, LWarn, l)

	_, ok = ParseLevel("verbose")
	assert.False(t, ok)
}
