// Package idalloc derives human-readable item ids of the form <prefix><n>
// from the ids already in use.
package idalloc

import (
	"regexp"
	"strconv"
)

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// Suffix returns the trailing integer of id, or 0 when there is none or it
// does not fit in an int.
func Suffix(id string) int {
	match := trailingDigits.FindStringSubmatch(id)
	if match == nil {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return n
}

// MaxSuffix scans every id regardless of prefix.
func MaxSuffix(ids []string) int {
	max := 0
	for _, id := range ids {
		if n := Suffix(id); n > max {
			max = n
		}
	}
	return max
}

func Format(prefix string, n int) string {
	return prefix + strconv.Itoa(n)
}

// Next returns prefix followed by one more than the largest suffix in ids.
func Next(ids []string, prefix string) string {
	return Format(prefix, MaxSuffix(ids)+1)
}

// Block reserves count contiguous ids starting right after the largest
// suffix in ids.
func Block(ids []string, prefix string, count int) []string {
	if count <= 0 {
		return nil
	}
	start := MaxSuffix(ids) + 1
	block := make([]string, count)
	for i := range block {
		block[i] = Format(prefix, start+i)
	}
	return block
}
