package surface

import (
	"errors"
	"testing"
)

func mustCreate(t *testing.T, d *Document, tag string) *Element {
	t.Helper()
	n, err := d.CreateElement(tag)
	if err != nil {
		t.Fatal(err)
	}
	return n.(*Element)
}

func TestDocumentInsertOrderAndMove(t *testing.T) {
	d := NewDocument()
	ul := mustCreate(t, d, "ul")
	a, b, c := mustCreate(t, d, "li"), mustCreate(t, d, "li"), mustCreate(t, d, "li")
	for _, li := range []*Element{a, b} {
		if err := d.Insert(ul, li, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.Insert(ul, c, a); err != nil {
		t.Fatal(err)
	}
	if err := d.Insert(ul, b, c); err != nil {
		t.Fatal(err)
	}
	got := []*Element{ul.Children[0], ul.Children[1], ul.Children[2]}
	if got[0] != b || got[1] != c || got[2] != a {
		t.Errorf("order = %d,%d,%d", got[0].Serial, got[1].Serial, got[2].Serial)
	}
	if len(ul.Children) != 3 {
		t.Errorf("moving duplicated a node: %d children", len(ul.Children))
	}
}

func TestDocumentHTML(t *testing.T) {
	d := NewDocument()
	p := mustCreate(t, d, "p")
	_ = d.SetAttr(p, "class", "x")
	_ = d.SetAttr(p, "hidden", "")
	txt, _ := d.CreateText("a < b")
	_ = d.Insert(p, txt, nil)
	img := mustCreate(t, d, "img")
	_ = d.Insert(p, img, nil)
	_ = d.Insert(d.Body(), p, nil)

	want := `<p class="x" hidden>a &lt; b<img></p>`
	if got := d.HTML(); got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
	if d.Find(ByTag("img")) != img || len(d.FindAll(ByAttr("class", "x"))) != 1 {
		t.Error("Find failed")
	}
}

func TestDocumentListeners(t *testing.T) {
	d := NewDocument()
	btn := mustCreate(t, d, "button")
	calls := 0
	off, err := d.Listen(btn, "click", func(Event) error { calls++; return nil })
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	offErr, _ := d.Listen(btn, "click", func(Event) error { return boom })

	if err := d.Dispatch(btn, Event{Type: "click"}); !errors.Is(err, boom) {
		t.Errorf("Dispatch err = %v", err)
	}
	off()
	off()
	offErr()
	if d.Listeners() != 0 {
		t.Errorf("Listeners() = %d", d.Listeners())
	}
	_ = d.Dispatch(btn, Event{Type: "click"})
	if calls != 1 {
		t.Errorf("calls = %d", calls)
	}
}

func TestDocumentErrors(t *testing.T) {
	d := NewDocument()
	a := mustCreate(t, d, "div")
	b := mustCreate(t, d, "div")
	if err := d.Remove(a, b); err == nil {
		t.Error("removing a non-child should fail")
	}
	if err := d.SetText(a, "x"); err == nil {
		t.Error("SetText on an element should fail")
	}
	if err := d.Insert(a, "not a node", nil); err == nil {
		t.Error("foreign node accepted")
	}
}
