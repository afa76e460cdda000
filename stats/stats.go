// Package stats reports the progress of the read and build steps.
package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/omniscale/osmfilter/element"
	"github.com/omniscale/osmfilter/log"
)

// Counts contains the number of scanned and retained entities per kind
// and the number of referenced coordinates.
type Counts struct {
	Scanned  [3]int64
	Retained [3]int64
	Coords   int64
}

type counter struct {
	Counts
	lastReport  time.Time
	lastScanned int64
}

type kindCount struct {
	kind element.Kind
	n    int
}

type Statistics struct {
	scanned  chan kindCount
	retained chan kindCount
	coords   chan int
	messages chan string
	reset    chan bool
	stop     chan chan Counts
}

func (s *Statistics) AddScanned(kind element.Kind, n int)  { s.scanned <- kindCount{kind, n} }
func (s *Statistics) AddRetained(kind element.Kind, n int) { s.retained <- kindCount{kind, n} }
func (s *Statistics) AddCoords(n int)                      { s.coords <- n }
func (s *Statistics) Reset()                               { s.reset <- true }
func (s *Statistics) Message(msg string)                   { s.messages <- msg }

// Stop stops the reporter, logs the final counts and returns them.
func (s *Statistics) Stop() Counts {
	result := make(chan Counts)
	s.stop <- result
	return <-result
}

// StatsReporter starts a reporter that logs the current counts every
// interval.
func StatsReporter(interval time.Duration) *Statistics {
	c := counter{lastReport: time.Now()}
	s := Statistics{
		scanned:  make(chan kindCount),
		retained: make(chan kindCount),
		coords:   make(chan int),
		messages: make(chan string),
		reset:    make(chan bool),
		stop:     make(chan chan Counts),
	}

	go func() {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case kc := <-s.scanned:
				c.Scanned[kc.kind] += int64(kc.n)
			case kc := <-s.retained:
				c.Retained[kc.kind] += int64(kc.n)
			case n := <-s.coords:
				c.Coords += int64(n)
			case <-s.reset:
				c = counter{lastReport: time.Now()}
			case msg := <-s.messages:
				c.Print()
				log.Printf("[info] %s", msg)
			case result := <-s.stop:
				c.Print()
				result <- c.Counts
				return
			case <-tick.C:
				c.Print()
			}
		}
	}()
	return &s
}

func (c *counter) scannedTotal() int64 {
	return c.Scanned[element.Node] + c.Scanned[element.Way] + c.Scanned[element.Relation]
}

func (c *counter) Print() {
	dur := time.Since(c.lastReport)
	total := c.scannedTotal()
	var perSec int64
	if dur > 0 {
		perSec = int64(float64(total-c.lastScanned) / dur.Seconds())
	}
	log.Printf("[progress] %s", c.String()+fmt.Sprintf(" (%s/s)", humanize.Comma(perSec)))
	c.lastScanned = total
	c.lastReport = time.Now()
}

var labels = [3]string{"Nodes", "Ways", "Relations"}

func (c *Counts) String() string {
	parts := make([]string, 0, 4)
	for _, kind := range element.Kinds {
		parts = append(parts, fmt.Sprintf("%s: %s/%s", labels[kind],
			humanize.Comma(c.Retained[kind]), humanize.Comma(c.Scanned[kind])))
	}
	parts = append(parts, fmt.Sprintf("Coords: %s", humanize.Comma(c.Coords)))
	return strings.Join(parts, " ")
}
