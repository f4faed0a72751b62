package runtime

import (
	"testing"

	"github.com/weftui/weft/pkg/reactive"
	"github.com/weftui/weft/pkg/vdom"
)

func TestBlockTracker_TracksOnlyDynamicChildren(t *testing.T) {
	b := NewBlockTracker()
	b.OpenBlock()
	b.CreateVNode("span", nil, 0, nil)                  // static, not tracked
	dyn := b.CreateVNode("span", nil, vdom.PFText, nil) // dynamic, tracked
	block := b.CreateBlock("div", nil, 0, nil)

	if len(block.DynamicChildren) != 1 || block.DynamicChildren[0] != dyn {
		t.Fatalf("expected exactly the dynamic child tracked, got %+v", block.DynamicChildren)
	}
}

func TestRenderList_Slice(t *testing.T) {
	items := []string{"a", "b", "c"}
	var got []string
	RenderList(items, func(item any, key any, index int) *vdom.VNode {
		got = append(got, item.(string))
		if key.(int) != index {
			t.Errorf("expected slice key to equal index, got key=%v index=%d", key, index)
		}
		return vdom.NewText(item.(string))
	})
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("unexpected iteration order: %v", got)
	}
}

func TestRenderList_Map_DeterministicByKey(t *testing.T) {
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	var keys []string
	RenderList(m, func(item any, key any, index int) *vdom.VNode {
		keys = append(keys, key.(string))
		return nil
	})
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Errorf("expected sorted key order for determinism, got %v", keys)
	}
}

func TestRenderList_Count(t *testing.T) {
	var got []int
	RenderList(3, func(item any, key any, index int) *vdom.VNode {
		got = append(got, item.(int))
		return nil
	})
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("expected 1..3, got %v", got)
	}
}

func TestRenderList_Struct_IteratesExportedFieldsInDeclOrder(t *testing.T) {
	type Todo struct {
		Title string
		Done  bool
		hint  string // unexported, must not appear
	}
	source := Todo{Title: "ship it", Done: false, hint: "secret"}

	var keys []string
	var values []any
	RenderList(source, func(item any, key any, index int) *vdom.VNode {
		keys = append(keys, key.(string))
		values = append(values, item)
		if index != len(keys)-1 {
			t.Errorf("expected index to track position, got index=%d at position %d", index, len(keys)-1)
		}
		return nil
	})

	if len(keys) != 2 {
		t.Fatalf("expected exactly the two exported fields, got %v", keys)
	}
	if keys[0] != "Title" || values[0] != "ship it" {
		t.Errorf("expected first key/value to be Title/\"ship it\", got %v=%v", keys[0], values[0])
	}
	if keys[1] != "Done" || values[1] != false {
		t.Errorf("expected second key/value to be Done/false, got %v=%v", keys[1], values[1])
	}
}

func TestRenderList_StructPointer_Dereferences(t *testing.T) {
	type Point struct{ X, Y int }
	p := &Point{X: 1, Y: 2}

	var keys []string
	RenderList(p, func(item any, key any, index int) *vdom.VNode {
		keys = append(keys, key.(string))
		return nil
	})
	if len(keys) != 2 || keys[0] != "X" || keys[1] != "Y" {
		t.Errorf("expected X, Y in declaration order, got %v", keys)
	}
}

func TestRenderList_ReactiveObject_UnwrapsToRawStruct(t *testing.T) {
	type Settings struct {
		Theme string
		Dark  bool
	}
	obj := reactive.Reactive(&Settings{Theme: "solarized", Dark: true})

	var keys []string
	RenderList(obj, func(item any, key any, index int) *vdom.VNode {
		keys = append(keys, key.(string))
		return nil
	})
	if len(keys) != 2 || keys[0] != "Theme" || keys[1] != "Dark" {
		t.Errorf("expected Theme, Dark from the unwrapped struct, got %v", keys)
	}
}

func TestRenderList_NilPointer_ReturnsNil(t *testing.T) {
	type Point struct{ X, Y int }
	var p *Point
	if got := RenderList(p, func(item any, key any, index int) *vdom.VNode { return nil }); got != nil {
		t.Errorf("expected nil for a nil struct pointer source, got %v", got)
	}
}

func TestToDisplayString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"hi", "hi"},
		{42, "42"},
		{3.0, "3"},
		{3.5, "3.5"},
	}
	for _, c := range cases {
		if got := ToDisplayString(c.in); got != c.want {
			t.Errorf("ToDisplayString(%#v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMergeProps_ConcatenatesClassAndOverwritesOtherKeys(t *testing.T) {
	merged := MergeProps(
		vdom.Props{"class": "a", "id": "old"},
		vdom.Props{"class": "b", "id": "new"},
	)
	if merged["class"] != "a b" {
		t.Errorf("expected concatenated class, got %v", merged["class"])
	}
	if merged["id"] != "new" {
		t.Errorf("expected id overwritten by later source, got %v", merged["id"])
	}
}

func TestChildren_FlattensMixedSingleAndListArgs(t *testing.T) {
	single := vdom.NewText("a")
	list := []*vdom.VNode{vdom.NewText("b"), vdom.NewText("c")}
	got := Children(single, list, nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 flattened nodes, got %d", len(got))
	}
	if got[0].Text != "a" || got[1].Text != "b" || got[2].Text != "c" {
		t.Errorf("unexpected flatten order: %+v", got)
	}
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	desc := &vdom.ComponentDescriptor{Name: "Widget"}
	r.Register(desc)
	got, ok := r.Resolve("Widget")
	if !ok || got != desc {
		t.Fatal("expected Resolve to return the registered descriptor")
	}
	if _, ok := r.Resolve("Missing"); ok {
		t.Error("expected Resolve to report false for an unregistered name")
	}
}
