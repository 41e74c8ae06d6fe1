// internal/controlnum/allocator.go
package controlnum

import (
	"fmt"
	"sort"
	"time"
)

// Pool holds control numbers freed by member deletion, kept sorted ascending.
// Allocation always consumes the lexicographically smallest entry first, so a
// number freed on an earlier day is handed out before a fresh one is minted.
type Pool []string

// Add returns a freed control number to the pool and re-sorts it.
func (p *Pool) Add(cn string) {
	*p = append(*p, cn)
	sort.Strings(*p)
}

// PopSmallest removes and returns the smallest pooled control number.
func (p *Pool) PopSmallest() (string, bool) {
	if len(*p) == 0 {
		return "", false
	}
	cn := (*p)[0]
	*p = (*p)[1:]
	return cn, true
}

// Clear empties the pool. Used by delete-all and full CSV re-import.
func (p *Pool) Clear() {
	*p = nil
}

// Format renders a control number as CN-MM-DD-NNN for the given date and
// sequence number. The sequence is zero-padded to three digits and widens
// naturally to four or more once a single day crosses 999 allocations.
func Format(t time.Time, seq int) string {
	return fmt.Sprintf("CN-%02d-%02d-%03d", int(t.Month()), t.Day(), seq)
}

// Allocate returns the next control number. Pooled numbers are reused first;
// otherwise candidates for the current date are probed upward from 001 until
// one does not collide with a live member's control number.
func Allocate(now time.Time, pool *Pool, inUse func(string) bool) string {
	if cn, ok := pool.PopSmallest(); ok {
		return cn
	}

	for seq := 1; ; seq++ {
		cn := Format(now, seq)
		if !inUse(cn) {
			return cn
		}
	}
}
