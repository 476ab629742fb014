package discovery

import (
	"strings"

	"golang.org/x/text/cases"
)

// DedupKey builds the case-folded (name, address) identity used to detect
// a place already proposed in an earlier run. Folding rather than lowering
// keeps the key stable for non-ASCII trade names. A fresh Caser per call;
// Casers are not safe for concurrent use.
func DedupKey(name, address string) string {
	fold := cases.Fold()
	n := fold.String(strings.Join(strings.Fields(name), " "))
	a := fold.String(strings.Join(strings.Fields(address), " "))
	return n + "|" + a
}
