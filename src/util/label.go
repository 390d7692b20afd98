// label.go provides generation of assembly labels for jumps. A Labels value
// is owned by exactly one function compilation, which keeps label ids unique
// within the function and makes repeated compilations of the same tree emit
// byte-identical streams. The emitted names are NASM local labels (leading
// dot), scoped to the enclosing function label, so two functions in one
// output file never collide.

package util

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Labels generates jump labels with a monotonic id per label kind.
type Labels struct {
	indices [LabelKinds]int
}

// ---------------------
// ----- Constants -----
// ---------------------

// Label kinds.
const (
	LabelLoopHead = iota
	LabelLoopEnd
	LabelJump
	LabelKinds
)

// labelPrefixes stores the string literal prefixes for labels of kinds.
var labelPrefixes = [LabelKinds]string{
	".Lloop_",
	".Lloop_end_",
	".Ljump_",
}

// ---------------------
// ----- functions -----
// ---------------------

// New returns a new label of kind typ. The first label of a kind is numbered 1.
func (l *Labels) New(typ int) string {
	if typ < 0 || typ >= LabelKinds {
		return "; LABEL ERROR"
	}
	l.indices[typ]++
	return fmt.Sprintf("%s%d", labelPrefixes[typ], l.indices[typ])
}

// Count returns how many labels of kind typ have been generated.
func (l *Labels) Count(typ int) int {
	if typ < 0 || typ >= LabelKinds {
		return 0
	}
	return l.indices[typ]
}
