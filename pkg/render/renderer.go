package render

import (
	"bytes"
	stderrors "errors"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/mount"
	"github.com/vango-dev/terse/pkg/ops"
	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/store"
)

// Renderer renders spec nodes to HTML against a store. It only peeks at
// state, so rendering never subscribes to or changes it.
type Renderer struct {
	Store     *store.Store
	Callbacks map[string]ops.Callback
	Logger    *slog.Logger

	// Pretty puts a newline after block-level elements.
	Pretty bool
}

// RenderNode writes the HTML of n to w.
func (r *Renderer) RenderNode(w io.Writer, n spec.Node) error {
	hw := &htmlWriter{w: w}
	if err := r.walker(nil).node(hw, n, scope{}); err != nil {
		return err
	}
	return hw.err
}

// RenderString returns the HTML of n.
func (r *Renderer) RenderString(n spec.Node) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderNode(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) walker(island islandFunc) *walker {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &walker{r: r, logger: logger, island: island}
}

// scope is the iteration context of a node.
type scope struct {
	item   any
	index  int
	inItem bool

	// nested is set inside boundaries and iterations, whose islands are
	// rendered in place rather than split out.
	nested bool
}

// islandFunc renders a top-level island. The streaming shell uses it to
// cut the content into chunks.
type islandFunc func(hw *htmlWriter, is *spec.Island, sc scope) error

type walker struct {
	r      *Renderer
	logger *slog.Logger
	island islandFunc
}

func (w *walker) node(hw *htmlWriter, n spec.Node, sc scope) error {
	switch x := n.(type) {
	case nil:
		return nil
	case *spec.Element:
		err := w.element(hw, x, sc)
		var e *errors.Error
		if stderrors.As(err, &e) && e.Tag == "" {
			e.Tag = x.Tag.String()
		}
		return err
	case *spec.Cond:
		branch, err := w.branch(x, sc)
		if err != nil {
			return err
		}
		return w.nodes(hw, branch, sc)
	case *spec.Each:
		return w.each(hw, x, sc)
	case *spec.Boundary:
		return w.boundary(hw, x, sc)
	case *spec.Island:
		if w.island != nil && !sc.nested {
			return w.island(hw, x, sc)
		}
		return w.islandHTML(hw, x, x.Child, sc)
	}
	return errors.Newf("E109", "cannot render %T", n)
}

func (w *walker) nodes(hw *htmlWriter, ns []spec.Node, sc scope) error {
	for _, n := range ns {
		if err := w.node(hw, n, sc); err != nil {
			return err
		}
	}
	return nil
}

// read resolves r without tracking. Paths that lead nowhere read as nil.
func (w *walker) read(r spec.Ref, sc scope) (any, error) {
	var v any
	switch r.Scope {
	case spec.RefState:
		cur, err := w.r.Store.Peek(r.Key)
		if err != nil {
			return nil, err
		}
		v = cur
	case spec.RefItem, spec.RefIndex:
		if !sc.inItem {
			return nil, errors.Newf("E109", "%s is only valid inside an iteration", r)
		}
		if r.Scope == spec.RefIndex {
			return float64(sc.index), nil
		}
		v = sc.item
	default:
		return nil, errors.Newf("E109", "invalid reference")
	}
	out, _ := spec.Lookup(v, r.Path)
	return out, nil
}

func (w *walker) value(v any, sc scope) (any, error) {
	if r, ok := v.(spec.Ref); ok {
		return w.read(r, sc)
	}
	return v, nil
}

func (w *walker) element(hw *htmlWriter, el *spec.Element, sc scope) error {
	name := el.Tag.Element()
	hw.str("<" + name)
	for _, a := range el.Tag.DefaultAttrs() {
		hw.attr(a.Name, a.Value)
	}

	decls := make(map[string]string)
	for _, key := range spec.StyleKeys() {
		v, ok := el.Props[key]
		if !ok {
			continue
		}
		val, err := w.value(v, sc)
		if err != nil {
			return err
		}
		if d, ok := spec.StyleDecl(key, val); ok {
			decls[key] = d
		}
	}
	if style := spec.ComposeStyle(el.Tag, decls); style != "" {
		hw.attr("style", style)
	}

	var events []string
	var opts any
	hasOpts := false
	for _, key := range sortedKeys(el.Props) {
		kind, _ := spec.KindOf(key)
		switch {
		case kind == spec.PropEvent:
			events = append(events, key)
		case key == "opts":
			v, err := w.value(el.Props[key], sc)
			if err != nil {
				return err
			}
			opts, hasOpts = v, true
		case kind == spec.PropNative:
			v, err := w.value(el.Props[key], sc)
			if err != nil {
				return err
			}
			if name, value, present := spec.AttrFor(key, v); present {
				hw.attr(name, value)
			}
		}
	}
	for _, ev := range events {
		hw.attr("data-on-"+ev, "true")
	}
	hw.str(">")
	if el.Tag.Void() {
		w.newline(hw, name)
		return hw.err
	}

	if hasOpts {
		for _, o := range spec.Options(opts) {
			hw.str("<option")
			hw.attr("value", o.Value)
			hw.str(">")
			hw.text(o.Label)
			hw.str("</option>")
		}
	}

	switch c := el.Content.(type) {
	case spec.Text:
		hw.text(c.Value)
	case spec.Bind:
		v, err := w.read(c.Ref, sc)
		if err != nil {
			return err
		}
		hw.text(spec.FormatValue(v))
	case spec.Children:
		if err := w.nodes(hw, c.Nodes, sc); err != nil {
			return err
		}
	}
	hw.str("</" + name + ">")
	w.newline(hw, name)
	return hw.err
}

func (w *walker) newline(hw *htmlWriter, name string) {
	if w.r.Pretty && !inlineElements[name] {
		hw.str("\n")
	}
}

// branch returns the nodes of the active branch of c.
func (w *walker) branch(c *spec.Cond, sc scope) ([]spec.Node, error) {
	v, err := w.read(c.Ref, sc)
	if err != nil {
		return nil, err
	}
	if !c.HasEq {
		if spec.Truthy(v) {
			return c.Then, nil
		}
		return c.Else, nil
	}
	other, err := w.value(c.Eq, sc)
	if err != nil {
		return nil, err
	}
	if spec.Equal(v, other) {
		return c.Then, nil
	}
	return c.Else, nil
}

func (w *walker) each(hw *htmlWriter, x *spec.Each, sc scope) error {
	v, err := w.read(x.Source, sc)
	if err != nil {
		return err
	}
	list, ok := v.([]any)
	if !ok && v != nil {
		return errors.Newf("E104", "%s is %T, not a list", x.Source, v)
	}
	if _, err := mount.ItemKeys(list, x.Key); err != nil {
		return err
	}
	for i, item := range list {
		if err := w.node(hw, x.Template, scope{item: item, index: i, inItem: true, nested: true}); err != nil {
			return err
		}
	}
	return nil
}

// boundary renders the child into a scratch buffer so a failure leaves no
// partial output, then writes either it or the fallback.
func (w *walker) boundary(hw *htmlWriter, x *spec.Boundary, sc scope) error {
	report, err := mount.ErrorReporter(x.OnError, w.r.Callbacks, w.r.Store, w.logger)
	if err != nil {
		return err
	}
	inner := sc
	inner.nested = true

	var buf bytes.Buffer
	err = w.node(&htmlWriter{w: &buf}, x.Child, inner)
	if err == nil {
		hw.str(buf.String())
		return hw.err
	}
	if errors.HasCode(err, "E202") {
		return err
	}

	info := mount.Info(err)
	w.logger.Debug("boundary caught", "tag", info.Tag, "error", err)
	report(info)

	buf.Reset()
	if err := w.node(&htmlWriter{w: &buf}, x.Fallback, inner); err != nil {
		return errors.New("E202").Wrap(err)
	}
	hw.str(buf.String())
	return hw.err
}

// islandHTML renders is with child as its content.
func (w *walker) islandHTML(hw *htmlWriter, is *spec.Island, child spec.Node, sc scope) error {
	hydrate := is.Hydrate
	if hydrate == "" {
		hydrate = "load"
	}
	hw.str("<div")
	hw.attr("data-island", is.ID)
	hw.attr("data-hydrate", hydrate)
	if is.Media != "" {
		hw.attr("data-media", is.Media)
	}
	hw.str(">")
	if err := w.node(hw, child, sc); err != nil {
		return err
	}
	hw.str("</div>")
	w.newline(hw, "div")
	return hw.err
}

func sortedKeys(p spec.Props) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// placeholder is the markup a deferred island streams before its fill.
func placeholder(id string) string {
	var b strings.Builder
	hw := &htmlWriter{w: &b}
	hw.str("<div")
	hw.attr("data-island", id)
	hw.attr("data-pending", "")
	hw.str("></div>")
	return b.String()
}
