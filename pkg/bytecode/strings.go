package bytecode

// MaxStringTableEntries caps the intern table. Indices are 16-bit, so the
// table can never address more entries than this.
const MaxStringTableEntries = 65535

// StringTable is the ordered, deduplicated pool of strings referenced by
// instructions and string values. Entry position is the string's stable
// index; a parallel map accelerates interning. The table only ever grows.
type StringTable struct {
	entries []string
	index   map[string]uint16
}

// NewStringTable creates an empty table.
func NewStringTable() *StringTable {
	return &StringTable{
		entries: make([]string, 0, 32),
		index:   make(map[string]uint16),
	}
}

// TableFromEntries builds a table over an existing entry list, rebuilding
// the lookup map. Duplicate entries keep their first index, matching the
// interning rule.
func TableFromEntries(entries []string) *StringTable {
	t := &StringTable{
		entries: entries,
		index:   make(map[string]uint16, len(entries)),
	}
	for i, s := range entries {
		if _, ok := t.index[s]; !ok {
			t.index[s] = uint16(i)
		}
	}
	return t
}

// Intern returns the index of s, adding it if absent. Interning is
// idempotent: the same string always maps to the same index. The second
// return is false when the table is full, in which case index 0 is
// returned as the neutral fallback.
func (t *StringTable) Intern(s string) (uint16, bool) {
	if idx, ok := t.index[s]; ok {
		return idx, true
	}
	if len(t.entries) >= MaxStringTableEntries {
		return 0, false
	}
	idx := uint16(len(t.entries))
	t.entries = append(t.entries, s)
	t.index[s] = idx
	return idx, true
}

// Lookup returns the entry at index i.
func (t *StringTable) Lookup(i uint16) (string, bool) {
	if int(i) >= len(t.entries) {
		return "", false
	}
	return t.entries[i], true
}

// Len returns the number of entries.
func (t *StringTable) Len() int {
	return len(t.entries)
}

// Entries returns the backing entry list. Callers must not mutate it.
func (t *StringTable) Entries() []string {
	return t.entries
}
