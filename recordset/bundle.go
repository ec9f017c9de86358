package recordset

// ReferenceBundle indexes the referenced_objects side channel of one page:
// kind name -> lookup key -> raw field map. The lookup key is the referenced
// record's id, or its name when it has no id.
type ReferenceBundle struct {
	entries map[string]map[string]map[string]any
}

// NewReferenceBundle indexes referenced objects by kind.
func NewReferenceBundle(referenced map[string][]map[string]any) ReferenceBundle {
	b := ReferenceBundle{entries: make(map[string]map[string]map[string]any, len(referenced))}
	for kind, objs := range referenced {
		for _, obj := range objs {
			var key string
			if id, ok := obj["id"]; ok && id != nil {
				key = keyString(id)
			} else if name, ok := obj["name"]; ok && name != nil {
				key = keyString(name)
			} else {
				continue
			}
			idx := b.entries[kind]
			if idx == nil {
				idx = make(map[string]map[string]any)
				b.entries[kind] = idx
			}
			idx[key] = obj
		}
	}
	return b
}

// Has reports whether the bundle carries any objects of kind.
func (b ReferenceBundle) Has(kind string) bool {
	_, ok := b.entries[kind]
	return ok
}

// Lookup finds a referenced object by id or name.
func (b ReferenceBundle) Lookup(kind, key string) (map[string]any, bool) {
	obj, ok := b.entries[kind][key]
	return obj, ok
}

// Len returns the number of indexed objects.
func (b ReferenceBundle) Len() int {
	n := 0
	for _, idx := range b.entries {
		n += len(idx)
	}
	return n
}
