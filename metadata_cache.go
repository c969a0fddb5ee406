package authz

import (
	"reflect"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// PropertyDescriptor describes one queryable property of a registered type:
// the property name and its Go type string. Used to build dynamic filters
// and sort clauses without re-deriving type metadata per call.
type PropertyDescriptor struct {
	Name     string
	DataType string
}

// Introspector derives the descriptor sequence for a type key. The default
// implementation reflects over a registered sample value.
type Introspector func(typeKey string) ([]PropertyDescriptor, error)

// MetadataCache caches per-type property descriptors with a compute-once-per
// key discipline. It is safe for unbounded concurrent callers: racing first
// lookups agree on a single fully-built sequence, and the introspection step
// runs effectively once per key. Entries live for the process lifetime; an
// introspection failure leaves the key uncached so a later call retries.
//
// Construct one per process and inject it; tests substitute an empty
// instance.
type MetadataCache struct {
	introspect Introspector
	entries    sync.Map // typeKey -> *metadataEntry
	types      sync.Map // typeKey -> reflect.Type
}

type metadataEntry struct {
	once  sync.Once
	props []PropertyDescriptor
	err   error
}

// MetadataCacheOption customizes cache construction.
type MetadataCacheOption func(*MetadataCache)

// WithIntrospector overrides the reflection-based default, e.g. with a code
// generated registry or a counting stub in tests.
func WithIntrospector(introspect Introspector) MetadataCacheOption {
	return func(c *MetadataCache) {
		if introspect != nil {
			c.introspect = introspect
		}
	}
}

// NewMetadataCache returns an empty cache.
func NewMetadataCache(opts ...MetadataCacheOption) *MetadataCache {
	c := &MetadataCache{}
	c.introspect = c.reflectIntrospector

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Register adds a sample value to the type registry and returns its type
// key. Call once per type at process start; descriptors themselves are still
// computed lazily on first lookup.
func (c *MetadataCache) Register(sample any) string {
	t := reflect.TypeOf(sample)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}

	key := TypeKey(sample)
	c.types.Store(key, t)
	return key
}

// TypeKey derives the stable type identifier for a value: the type's
// package-qualified name.
func TypeKey(sample any) string {
	t := reflect.TypeOf(sample)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}

	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Properties returns the descriptor sequence for the type key, computing it
// on first use. All concurrent callers for the same key observe the same
// fully-populated slice.
func (c *MetadataCache) Properties(typeKey string) ([]PropertyDescriptor, error) {
	e, _ := c.entries.LoadOrStore(typeKey, &metadataEntry{})
	entry := e.(*metadataEntry)

	entry.once.Do(func() {
		entry.props, entry.err = c.introspect(typeKey)
	})

	if entry.err != nil {
		// drop the failed entry so a later call can retry cleanly
		c.entries.CompareAndDelete(typeKey, e)
		return nil, entry.err
	}

	return entry.props, nil
}

// PropertiesOf is a convenience wrapper that registers the sample's type if
// needed and returns its descriptors.
func (c *MetadataCache) PropertiesOf(sample any) ([]PropertyDescriptor, error) {
	return c.Properties(c.Register(sample))
}

func (c *MetadataCache) reflectIntrospector(typeKey string) ([]PropertyDescriptor, error) {
	raw, ok := c.types.Load(typeKey)
	if !ok {
		return nil, goerrors.New("type key is not registered", goerrors.CategoryBadInput).
			WithTextCode(TextCodeUnregisteredType).
			WithMetadata(map[string]any{"type_key": typeKey})
	}

	t := raw.(reflect.Type)
	if t.Kind() != reflect.Struct {
		return nil, goerrors.New("type key does not describe a struct", goerrors.CategoryBadInput).
			WithTextCode(TextCodeUnregisteredType).
			WithMetadata(map[string]any{"type_key": typeKey, "kind": t.Kind().String()})
	}

	props := make([]PropertyDescriptor, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		props = append(props, PropertyDescriptor{
			Name:     field.Name,
			DataType: field.Type.String(),
		})
	}

	return props, nil
}
