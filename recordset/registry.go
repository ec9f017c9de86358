package recordset

import (
	"fmt"
	"maps"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultBatch is the page size used when neither the kind nor the caller sets one.
const DefaultBatch = 25

// Ref names a field holding a foreign key and the kind it points at. Kind is
// also the key looked up in a page's referenced_objects.
type Ref struct {
	Field string
	Kind  string
}

// LoadSpec describes how a single record of a kind is fetched by id.
//
// With Operation OpList (the default) the id is sent as select {wire: id} and
// the first row of the plural array is used. Any other operation sends the id
// as the top-level IDParam and reads the record from Response[Envelope], or
// the whole response when Envelope is empty. WithoutID is for calls such as
// account.self that identify the record through the session.
type LoadSpec struct {
	Operation Operation
	IDParam   string
	Envelope  string
	WithoutID bool
	Params    map[string]any
}

// Kind describes one record kind: how it is named on the wire, how it is
// paged and loaded, and which of its fields reference other kinds.
type Kind struct {
	// Name is the registry key.
	Name string
	// Wire is the kind used in method names; defaults to Name.
	Wire string
	// Plural is the key of the row array in list responses.
	Plural string
	// Batch is the default page size.
	Batch int
	// InlineRefs are hydrated from referenced_objects when a page carries them.
	InlineRefs []Ref
	// IDFallback names a field whose value becomes the id of seeded rows
	// that arrive without one.
	IDFallback string
	Load       LoadSpec
	// Order is the field precedence used by Compare.
	Order []string

	compare Comparator
}

// Validate checks the descriptor.
func (k Kind) Validate() error {
	return validation.ValidateStruct(&k,
		validation.Field(&k.Name, validation.Required),
		validation.Field(&k.Batch, validation.Min(0)),
		validation.Field(&k.InlineRefs, validation.Each(validation.By(func(v any) error {
			ref, _ := v.(Ref)
			if ref.Field == "" || ref.Kind == "" {
				return fmt.Errorf("ref needs both field and kind")
			}
			return nil
		}))),
	)
}

// Compare orders two records of this kind by its field precedence.
func (k *Kind) Compare(a, b *Record) Ordering {
	return k.compare(a, b)
}

func (k Kind) normalized() *Kind {
	if k.Wire == "" {
		k.Wire = k.Name
	}
	if k.Plural == "" {
		k.Plural = pluralize(k.Wire)
	}
	if k.Batch == 0 {
		k.Batch = DefaultBatch
	}
	if k.Load.Operation == "" {
		k.Load.Operation = OpList
	}
	if k.Load.Operation != OpList && k.Load.IDParam == "" {
		k.Load.IDParam = "id"
	}
	if len(k.Order) == 0 {
		k.Order = []string{"id"}
	}
	k.InlineRefs = slices.Clone(k.InlineRefs)
	k.Load.Params = maps.Clone(k.Load.Params)
	k.compare = FieldOrder(k.Order...)
	return &k
}

// Registry is an immutable table of kinds keyed by name.
type Registry struct {
	kinds map[string]*Kind
}

// NewRegistry validates and registers kinds. Duplicate names are an error.
func NewRegistry(kinds ...Kind) (*Registry, error) {
	r := &Registry{kinds: make(map[string]*Kind, len(kinds))}
	for _, k := range kinds {
		if err := k.Validate(); err != nil {
			return nil, fmt.Errorf("kind %q: %w", k.Name, err)
		}
		if _, dup := r.kinds[k.Name]; dup {
			return nil, fmt.Errorf("kind %q registered twice", k.Name)
		}
		r.kinds[k.Name] = k.normalized()
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(kinds ...Kind) *Registry {
	r, err := NewRegistry(kinds...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (*Kind, error) {
	k, ok := r.kinds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.kinds[name]
	return ok
}

// Names returns the registered kind names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.kinds))
}

var extendedParams = map[string]any{"extended": true}

// DefaultKinds returns the descriptors of the shiftboard record kinds.
func DefaultKinds() []Kind {
	return []Kind{
		{
			Name: "account",
			Load: LoadSpec{
				Operation: OpGet,
				Params:    map[string]any{"extended": true, "org_settings": true, "user_applications": true},
			},
			Order: []string{"last_name", "first_name"},
		},
		{
			Name: "myAccount",
			Wire: "account",
			Load: LoadSpec{
				Operation: OpSelf,
				WithoutID: true,
				Params:    map[string]any{"extended": true, "org_settings": true, "user_applications": true},
			},
			Order: []string{"last_name", "first_name"},
		},
		{Name: "workgroup", Load: LoadSpec{Params: extendedParams}, Order: []string{"name", "id"}},
		{Name: "location", Load: LoadSpec{Params: extendedParams}, Order: []string{"name", "id"}},
		{Name: "role", Load: LoadSpec{Params: extendedParams}, Order: []string{"name", "id"}},
		{
			Name: "shift",
			InlineRefs: []Ref{
				{Field: "workgroup", Kind: "workgroup"},
				{Field: "covering_workgroup", Kind: "workgroup"},
				{Field: "covering_member", Kind: "account"},
				{Field: "location", Kind: "location"},
				{Field: "role", Kind: "role"},
				{Field: "timezone", Kind: "timezone"},
			},
			Load:  LoadSpec{Operation: OpGet, Envelope: "shift"},
			Order: []string{"start_date", "end_date", "subject", "id", "workgroup"},
		},
		{
			Name: "timeclock",
			InlineRefs: []Ref{
				{Field: "timezone", Kind: "timezone"},
				{Field: "account", Kind: "account"},
				{Field: "workgroup", Kind: "workgroup"},
			},
			IDFallback: "account",
			Load:       LoadSpec{Operation: OpStatus, IDParam: "account"},
			Order:      []string{"id", "clocked_in", "clocked_out", "account", "workgroup", "shift"},
		},
		{
			Name:   "trade",
			Wire:   "tradeboard",
			Plural: "tradeboard",
			InlineRefs: []Ref{
				{Field: "workgroup", Kind: "workgroup"},
				{Field: "account", Kind: "account"},
			},
			Load: LoadSpec{Operation: OpGet, Envelope: "shift"},
		},
		{Name: "profileType", Load: LoadSpec{Params: extendedParams}},
		{Name: "profileData", Plural: "profile_data", Load: LoadSpec{Params: extendedParams}},
		{Name: "profileConfiguration", Plural: "profile_configuration", Load: LoadSpec{Params: extendedParams}},
		{Name: "availability", Plural: "availability", Load: LoadSpec{Params: extendedParams}},
		{Name: "client", Load: LoadSpec{Params: extendedParams}},
	}
}

// DefaultRegistry returns a registry holding DefaultKinds.
func DefaultRegistry() *Registry {
	return MustRegistry(DefaultKinds()...)
}
