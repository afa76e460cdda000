package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/omniscale/osmfilter/element"
)

func TestStatsReporter(t *testing.T) {
	s := StatsReporter(time.Hour)
	s.AddScanned(element.Node, 1000)
	s.AddScanned(element.Way, 10)
	s.AddRetained(element.Way, 3)
	s.AddCoords(7)
	s.AddCoords(2)

	c := s.Stop()
	assert.Equal(t, [3]int64{1000, 10, 0}, c.Scanned)
	assert.Equal(t, [3]int64{0, 3, 0}, c.Retained)
	assert.Equal(t, int64(9), c.Coords)
	assert.Equal(t, "Nodes: 0/1,000 Ways: 3/10 Relations: 0/0 Coords: 9", c.String())
}

func TestReset(t *testing.T) {
	s := StatsReporter(time.Hour)
	s.AddScanned(element.Relation, 5)
	s.Reset()
	s.AddScanned(element.Relation, 1)
	c := s.Stop()
	assert.Equal(t, int64(1), c.Scanned[element.Relation])
}
