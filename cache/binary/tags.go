package binary

// Tags are serialized to an array of interleaved key and value strings.
// Common tags like highway=footway are serialized to a single unicode
// char, common keys with variable values to a single ASCII ctrl char
// followed by the value.
//
// Common tags are encoded as a single unicode char from the Unicode
// Private Use Area (U+E000 to U+F8FF). They take three bytes in UTF-8.

import (
	"unicode/utf8"

	osm "github.com/omniscale/go-osm"
	"github.com/pkg/errors"
)

type codepoint rune

type tag struct {
	Key   string
	Value string
}

var tagsToCodePoint = map[string]map[string]codepoint{}
var codePointToTag = map[codepoint]tag{}

var commonKeys = map[string]codepoint{}
var codePointToCommonKey = map[uint8]string{}
var nextKeyCodePoint = codepoint(1)

const maxKeyCodePoint = codepoint(31)

const minCodePoint = codepoint('\uE000')
const maxCodePoint = codepoint('\uF8FF')

var nextCodePoint = minCodePoint

// escapeRune prefixes keys that start with a code point
const escapeRune = '\ufffd'

func addTagCodePoint(key, value string) {
	if nextCodePoint > maxCodePoint {
		panic("all codepoints used")
	}
	valMap, ok := tagsToCodePoint[key]
	if !ok {
		valMap = make(map[string]codepoint)
		tagsToCodePoint[key] = valMap
	}
	if _, ok := valMap[value]; ok {
		panic("duplicate entry for tag codepoints: " + key + "=" + value)
	}
	valMap[value] = nextCodePoint
	codePointToTag[nextCodePoint] = tag{key, value}
	nextCodePoint += 1
}

func addCommonKey(key string) {
	if nextKeyCodePoint > maxKeyCodePoint {
		panic("all key codepoints used")
	}
	commonKeys[key] = nextKeyCodePoint
	codePointToCommonKey[uint8(nextKeyCodePoint)] = key
	nextKeyCodePoint += 1
}

// tagsFromArray returns nil for empty arrays.
func tagsFromArray(arr []string) (osm.Tags, error) {
	if len(arr) == 0 {
		return nil, nil
	}
	result := make(osm.Tags)
	for i := 0; i < len(arr); i++ {
		if r, size := utf8.DecodeRuneInString(arr[i]); size >= 3 {
			if r == escapeRune {
				if len(arr) <= i+1 {
					return nil, errors.New("escaped tag key without value")
				}
				result[arr[i][size:]] = arr[i+1]
				i++
				continue
			} else if codepoint(r) >= minCodePoint && codepoint(r) <= maxCodePoint {
				tag, ok := codePointToTag[codepoint(r)]
				if !ok {
					return nil, errors.Errorf("unknown tag codepoint %x", r)
				}
				result[tag.Key] = tag.Value
				continue
			}
		} else if len(arr[i]) > 0 && arr[i][0] < 32 {
			key, ok := codePointToCommonKey[arr[i][0]]
			if !ok {
				return nil, errors.Errorf("unknown key codepoint %x", arr[i][0])
			}
			result[key] = arr[i][1:]
			continue
		}
		if len(arr) <= i+1 {
			return nil, errors.Errorf("tag key %q without value", arr[i])
		}
		result[arr[i]] = arr[i+1]
		i++
	}
	return result, nil
}

func tagsAsArray(tags osm.Tags) []string {
	if len(tags) == 0 {
		return nil
	}
	result := make([]string, 0, 2*len(tags))
	for key, val := range tags {
		result = appendTag(result, key, val)
	}
	return result
}

func appendTag(arr []string, key, val string) []string {
	if valMap, ok := tagsToCodePoint[key]; ok {
		if codePoint, ok := valMap[val]; ok {
			return append(arr, string(rune(codePoint)))
		}
	}
	if codePoint, ok := commonKeys[key]; ok {
		return append(arr, string(rune(codePoint))+val)
	}
	// escape keys that would be decoded as codepoints
	if len(key) > 0 && key[0] < 32 {
		key = string(escapeRune) + key
	} else if r, size := utf8.DecodeRuneInString(key); size >= 3 &&
		((codepoint(r) >= minCodePoint && codepoint(r) <= maxCodePoint) || r == escapeRune) {
		key = string(escapeRune) + key
	}
	return append(arr, key, val)
}

func init() {
	// Codepoints are part of the cache format. Only append new entries
	// and increase cache.Version for every change.

	addCommonKey("name")
	addCommonKey("ref")
	addCommonKey("surface")
	addCommonKey("maxspeed")
	addCommonKey("operator")
	addCommonKey("source")
	addCommonKey("width")
	addCommonKey("layer")
	addCommonKey("note")
	addCommonKey("addr:street")
	addCommonKey("addr:housenumber")
	addCommonKey("addr:postcode")
	addCommonKey("addr:city")

	for _, v := range []string{
		"footway", "path", "cycleway", "track", "service", "residential",
		"unclassified", "tertiary", "secondary", "primary", "trunk", "motorway",
		"steps", "pedestrian", "living_street", "bridleway", "crossing",
		"bus_stop", "traffic_signals", "street_lamp", "turning_circle",
		"motorway_link", "primary_link", "trunk_link",
	} {
		addTagCodePoint("highway", v)
	}
	for _, k := range []string{"foot", "bicycle", "horse", "access", "motor_vehicle"} {
		for _, v := range []string{"yes", "no", "designated", "permissive", "private"} {
			addTagCodePoint(k, v)
		}
	}
	addTagCodePoint("footway", "sidewalk")
	addTagCodePoint("footway", "crossing")
	addTagCodePoint("cycleway", "lane")
	addTagCodePoint("segregated", "yes")
	addTagCodePoint("segregated", "no")
	addTagCodePoint("lit", "yes")
	addTagCodePoint("lit", "no")
	addTagCodePoint("oneway", "yes")
	addTagCodePoint("oneway", "no")
	addTagCodePoint("bridge", "yes")
	addTagCodePoint("tunnel", "yes")
	addTagCodePoint("surface", "asphalt")
	addTagCodePoint("surface", "paved")
	addTagCodePoint("surface", "unpaved")
	addTagCodePoint("surface", "gravel")
	addTagCodePoint("surface", "ground")
	addTagCodePoint("tracktype", "grade1")
	addTagCodePoint("tracktype", "grade2")
	addTagCodePoint("tracktype", "grade3")
	addTagCodePoint("building", "yes")
	addTagCodePoint("railway", "rail")
	addTagCodePoint("waterway", "stream")
	addTagCodePoint("natural", "tree")
	addTagCodePoint("natural", "water")
	addTagCodePoint("amenity", "bench")
	addTagCodePoint("amenity", "parking")
	addTagCodePoint("barrier", "gate")
	addTagCodePoint("power", "pole")
	addTagCodePoint("power", "tower")

	addTagCodePoint("type", "multipolygon")
	addTagCodePoint("type", "route")
	addTagCodePoint("type", "restriction")
	addTagCodePoint("type", "boundary")
	addTagCodePoint("route", "hiking")
	addTagCodePoint("route", "bicycle")
	addTagCodePoint("route", "foot")
	addTagCodePoint("route", "bus")
	addTagCodePoint("network", "lwn")
	addTagCodePoint("network", "rwn")
	addTagCodePoint("network", "lcn")
	addTagCodePoint("network", "rcn")
}
