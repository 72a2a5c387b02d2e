// Package strings parses list-valued configuration such as KAFKA_BROKERS.
package strings

import (
	"slices"
	"strings"
)

// SplitList splits a comma-separated value into trimmed, non-empty,
// distinct elements in first-seen order.
//
//	SplitList("kafka-1:9092, kafka-2:9092,,kafka-1:9092")
//	// []string{"kafka-1:9092", "kafka-2:9092"}
func SplitList(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" || slices.Contains(out, part) {
			continue
		}
		out = append(out, part)
	}
	return out
}
