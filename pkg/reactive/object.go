package reactive

import (
	"reflect"
	"sync"
)

// Object is the reactive wrapper for a struct: the typed stand-in for
// "reactive(obj)" the design notes call for in a language without
// transparent proxies. Field reads track the active effect; field
// writes trigger it. Nested pointer-to-struct fields are lazily
// wrapped on read unless the Object is shallow (a struct-valued field
// is returned as a plain copy); readonly Objects reject Set.
type Object[T any] struct {
	raw      *T
	rv       reflect.Value // addressable Elem() of raw
	store    *Store
	shallow  bool
	readonly bool

	nestedMu sync.Mutex
	nested   map[string]any // field name -> lazily-built nested wrapper
}

// Reactive wraps obj for deep, mutable field-level tracking.
func Reactive[T any](obj *T) *Object[T] {
	return getOrWrap[T](obj, VariantMutableDeep, false, false)
}

// Readonly wraps obj so Set panics; reads still track normally.
func Readonly[T any](obj *T) *Object[T] {
	return getOrWrap[T](obj, VariantReadonlyDeep, false, true)
}

// ShallowReactive wraps obj but never auto-wraps nested struct fields.
func ShallowReactive[T any](obj *T) *Object[T] {
	return getOrWrap[T](obj, VariantMutableShallow, true, false)
}

// ShallowReadonly combines both restrictions.
func ShallowReadonly[T any](obj *T) *Object[T] {
	return getOrWrap[T](obj, VariantReadonlyShallow, true, true)
}

func getOrWrap[T any](obj *T, variant Variant, shallow, readonly bool) *Object[T] {
	if obj == nil {
		return nil
	}
	w := globalRegistry.lookupOrStore(any(obj), variant, func() any {
		return &Object[T]{
			raw:      obj,
			rv:       reflect.ValueOf(obj).Elem(),
			store:    NewStore(),
			shallow:  shallow,
			readonly: readonly,
			nested:   make(map[string]any),
		}
	})
	return w.(*Object[T])
}

// Raw returns the wrapped struct pointer: `raw(proxy(x)) === x`.
func (o *Object[T]) Raw() *T { return o.raw }

// Get reads a field by name, tracking the active effect against it
// and lazily wrapping nested struct pointers unless shallow.
func (o *Object[T]) Get(field string) any {
	o.store.Track(field)
	fv := o.rv.FieldByName(field)
	if !fv.IsValid() {
		return nil
	}
	if o.shallow {
		return fv.Interface()
	}
	if fv.Kind() == reflect.Pointer && !fv.IsNil() && fv.Elem().Kind() == reflect.Struct {
		return o.wrapNested(field, fv)
	}
	return fv.Interface()
}

func (o *Object[T]) wrapNested(field string, fv reflect.Value) any {
	o.nestedMu.Lock()
	defer o.nestedMu.Unlock()
	if w, ok := o.nested[field]; ok {
		return w
	}
	// Build a reactive wrapper for the nested struct through the same
	// registry so `Reactive(nested) === Reactive(nested)` still holds
	// even when reached through two different parent fields.
	variant := VariantMutableDeep
	if o.readonly {
		variant = VariantReadonlyDeep
	}
	w := globalRegistry.lookupOrStore(fv.Interface(), variant, func() any {
		return newObjectFromReflect(fv, o.readonly, false)
	})
	o.nested[field] = w
	return w
}

// newObjectFromReflect builds an *Object[struct{}]-shaped wrapper
// without static type information, used only for nested fields whose
// concrete type isn't known at the call site. It implements the same
// Get/Set contract via reflection alone.
type dynamicObject struct {
	rv       reflect.Value
	store    *Store
	readonly bool
	shallow  bool
}

func newObjectFromReflect(fv reflect.Value, readonly, shallow bool) *dynamicObject {
	return &dynamicObject{rv: fv.Elem(), store: NewStore(), readonly: readonly, shallow: shallow}
}

func (o *dynamicObject) Get(field string) any {
	o.store.Track(field)
	fv := o.rv.FieldByName(field)
	if !fv.IsValid() {
		return nil
	}
	return fv.Interface()
}

func (o *dynamicObject) Set(field string, value any) {
	if o.readonly {
		panic("reactive: Set on readonly object")
	}
	fv := o.rv.FieldByName(field)
	if !fv.IsValid() || !fv.CanSet() {
		return
	}
	old := fv.Interface()
	fv.Set(reflect.ValueOf(value))
	if old != value {
		o.store.Trigger(field, OpSet, false, false)
	}
}

// Set writes a field by name and, when the new value differs from the
// old one (reflect.DeepEqual), triggers the field's dep. The write is
// always treated as SET, never ADD: structs have no notion of "key not
// yet present".
func (o *Object[T]) Set(field string, value any) {
	if o.readonly {
		panic("reactive: Set on readonly object")
	}
	fv := o.rv.FieldByName(field)
	if !fv.IsValid() || !fv.CanSet() {
		return
	}
	old := fv.Interface()
	fv.Set(reflect.ValueOf(value))
	if !reflect.DeepEqual(old, value) {
		o.store.Trigger(field, OpSet, false, false)
	}
}

// Has tracks HAS for field membership tests (always true for a fixed
// struct shape, but the read is still tracked so a later type using
// reflection-added fields — none here — would recompute correctly).
func (o *Object[T]) Has(field string) bool {
	o.store.Track(HasKeyPrefix + field)
	return o.rv.FieldByName(field).IsValid()
}

// deepTrack subscribes the active effect to every field, recursing
// into already-wrapped nested objects. Used by Watch's deep option.
func (o *Object[T]) deepTrack() {
	for i := 0; i < o.rv.NumField(); i++ {
		name := o.rv.Type().Field(i).Name
		if !o.rv.Field(i).CanInterface() {
			continue
		}
		v := o.Get(name)
		if nested, ok := v.(interface{ deepTrack() }); ok {
			nested.deepTrack()
		}
	}
}

func (o *dynamicObject) deepTrack() {
	for i := 0; i < o.rv.NumField(); i++ {
		if !o.rv.Field(i).CanInterface() {
			continue
		}
		o.store.Track(o.rv.Type().Field(i).Name)
	}
}

// IsReactive reports whether w is a wrapper this registry produced.
func IsReactive(w any) bool {
	_, ok := globalRegistry.rawOf(w)
	return ok
}

// ToRaw returns the underlying value for any wrapper this package
// produced, or v itself if it isn't a wrapper.
func ToRaw(v any) any {
	if raw, ok := globalRegistry.rawOf(v); ok {
		return raw
	}
	return v
}
