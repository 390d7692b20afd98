package frontend

type reservedItem struct {
	val string
	typ itemType
}

// rw contains the set of all reserved keywords of the sub-language.
// The first dimension equals the length of the word.
// The second dimension is the slice of all words of that length.
// Indexing by length and searching should be faster than using a hash table.
var rw = [...][]reservedItem{
	// One-grams
	{},
	// Two-grams
	{
		{val: "in", typ: IN},
	},
	// Three-grams
	{
		{val: "def", typ: DEF},
		{val: "for", typ: FOR},
	},
	// Four-grams
	{},
	// Five-grams
	{
		{val: "range", typ: RANGE},
	},
	// Six-grams
	{
		{val: "return", typ: RETURN},
	},
}

// isKeyword returns true if the string s is a reserved keyword.
// On the return of true the itemType of the keyword is returned.
// On the return of false the itemType is either IDENTIFIER or itemError.
func isKeyword(s string) (bool, itemType) {
	if len(s) == 0 {
		return false, itemError
	}
	if len(s) > len(rw) {
		return false, IDENTIFIER
	}
	for _, e1 := range rw[len(s)-1] {
		if e1.val == s {
			return true, e1.typ
		}
	}
	return false, IDENTIFIER
}
