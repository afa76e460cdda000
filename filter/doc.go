/*
Package filter implements the tag based filters of osmfilter.

A Prefilter is applied while reading the PBF file (during -read). It decides
which entities are kept in the dataset at all.

A RuleFilter is applied to the prefiltered dataset. The blackfilter rejects
all entities with a matching tag, the whitefilter accepts entities that
match at least one of its rules. A Rule is a pair of Matchers that both need
to match a tag of the entity. Both filters only look at the tags of the
entity itself, never at the tags of members or referenced nodes.
*/
package filter
