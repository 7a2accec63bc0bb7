package dom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html/atom"
)

func TestClasses(t *testing.T) {
	el := New("div", "class", "a b")
	el.AddClass("b c", "d").RemoveClass("a")
	if diff := cmp.Diff([]string{"b", "c", "d"}, el.Classes()); diff != "" {
		t.Fatalf("classes mismatch (-want +got):\n%s", diff)
	}
	if !el.HasClass("c d") || el.HasClass("a") {
		t.Fatalf("HasClass mismatch for %v", el.Classes())
	}
	el.ToggleClass(false, "b", "c", "d")
	if _, ok := el.Attr("class"); ok {
		t.Fatalf("empty class list should drop the attribute")
	}
}

func TestParseAndQuery(t *testing.T) {
	root := New("form")
	if err := root.SetHTML(`<label class="control-label">Name &amp; kind</label><div class="controls"><input name="name" value="x"/></div>`); err != nil {
		t.Fatalf("SetHTML: %v", err)
	}
	if got := len(root.Children()); got != 2 {
		t.Fatalf("expected 2 children, got %d", got)
	}
	input := root.First(func(e *Element) bool { return e.Is(atom.Input) })
	if input == nil || input.AttrOr("name", "") != "name" {
		t.Fatalf("input not found")
	}
	if got := root.FindByClass("control-label")[0].Text(); got != "Name & kind" {
		t.Fatalf("text mismatch: %q", got)
	}

	msg := New("div", "class", "msg").AppendText("oops")
	root.Append(msg)
	if len(root.FindByClass("msg")) != 1 {
		t.Fatalf("appended element not found")
	}
	msg.Remove()
	if len(root.FindByClass("msg")) != 0 {
		t.Fatalf("removed element still present")
	}
}

func TestStringRendering(t *testing.T) {
	el := New("span", "id", "s1")
	el.SetText("<b>")
	if got, want := el.String(), `<span id="s1">&lt;b&gt;</span>`; got != want {
		t.Fatalf("render mismatch: got %s want %s", got, want)
	}
	el.Prepend(New("i"))
	if got, want := el.InnerHTML(), `<i></i>&lt;b&gt;`; got != want {
		t.Fatalf("inner html mismatch: got %s want %s", got, want)
	}
}
