package ir

import (
	"strconv"
	"strings"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

// Reserved is the prefix of all generated names.
// User identifiers can't start with it.
const Reserved = "__"

// Namer generates names unique within a compilation unit.
type Namer struct {
	Next int
}

// New returns a fresh name of the given kind, like __t12 or __L3.
func (n *Namer) New(kind string) string {
	n.Next++

	name := Reserved + kind + strconv.Itoa(n.Next)

	if tlog.If("names") {
		tlog.Printw("new name", "name", name, "from", loc.Caller(1))
	}

	return name
}

func IsGenerated(name string) bool {
	return strings.HasPrefix(name, Reserved)
}
