package spec

// Tag is a component tag. The set of tags is closed.
type Tag uint8

const (
	TagInvalid Tag = iota

	// Layout
	TagBox
	TagRow
	TagCol
	TagGrid
	TagCard
	TagForm

	// Text
	TagTxt
	TagH1
	TagH2
	TagH3
	TagP
	TagCode
	TagLbl

	// Button
	TagBtn

	// Inputs
	TagInp
	TagNum
	TagPwd
	TagArea
	TagChk
	TagRadio
	TagSel

	// Table
	TagTbl
	TagThead
	TagTbody
	TagTr
	TagTh
	TagTd

	// List
	TagUl
	TagOl
	TagLi

	// Media and links
	TagImg
	TagA
	TagVid
	TagHr

	tagCount
)

// tagInfo describes how a tag maps to an HTML element.
type tagInfo struct {
	name    string
	element string
	attrs   []Attr
	style   string
	void    bool
	input   bool
}

// Attr is a single HTML attribute.
type Attr struct {
	Name  string
	Value string
}

var tagTable = [tagCount]tagInfo{
	TagBox:  {name: "box", element: "div"},
	TagRow:  {name: "row", element: "div", style: "display:flex;flex-direction:row"},
	TagCol:  {name: "col", element: "div", style: "display:flex;flex-direction:column"},
	TagGrid: {name: "grid", element: "div", style: "display:grid"},
	TagCard: {name: "card", element: "section", style: "border:1px solid #ddd;border-radius:8px;padding:16px"},
	TagForm: {name: "form", element: "form"},

	TagTxt:  {name: "txt", element: "span"},
	TagH1:   {name: "h1", element: "h1"},
	TagH2:   {name: "h2", element: "h2"},
	TagH3:   {name: "h3", element: "h3"},
	TagP:    {name: "p", element: "p"},
	TagCode: {name: "code", element: "code"},
	TagLbl:  {name: "lbl", element: "label"},

	TagBtn: {name: "btn", element: "button", attrs: []Attr{{"type", "button"}}},

	TagInp:   {name: "inp", element: "input", attrs: []Attr{{"type", "text"}}, void: true, input: true},
	TagNum:   {name: "num", element: "input", attrs: []Attr{{"type", "number"}}, void: true, input: true},
	TagPwd:   {name: "pwd", element: "input", attrs: []Attr{{"type", "password"}}, void: true, input: true},
	TagArea:  {name: "area", element: "textarea", input: true},
	TagChk:   {name: "chk", element: "input", attrs: []Attr{{"type", "checkbox"}}, void: true, input: true},
	TagRadio: {name: "radio", element: "input", attrs: []Attr{{"type", "radio"}}, void: true, input: true},
	TagSel:   {name: "sel", element: "select", input: true},

	TagTbl:   {name: "tbl", element: "table"},
	TagThead: {name: "thead", element: "thead"},
	TagTbody: {name: "tbody", element: "tbody"},
	TagTr:    {name: "tr", element: "tr"},
	TagTh:    {name: "th", element: "th"},
	TagTd:    {name: "td", element: "td"},

	TagUl: {name: "ul", element: "ul"},
	TagOl: {name: "ol", element: "ol"},
	TagLi: {name: "li", element: "li"},

	TagImg: {name: "img", element: "img", void: true},
	TagA:   {name: "a", element: "a"},
	TagVid: {name: "vid", element: "video", attrs: []Attr{{"controls", ""}}},
	TagHr:  {name: "hr", element: "hr", void: true},
}

var tagsByName = func() map[string]Tag {
	m := make(map[string]Tag, tagCount)
	for t := TagBox; t < tagCount; t++ {
		m[tagTable[t].name] = t
	}
	return m
}()

// LookupTag returns the tag with the given short name.
func LookupTag(name string) (Tag, bool) {
	t, ok := tagsByName[name]
	return t, ok
}

// Tags returns every valid tag in declaration order.
func Tags() []Tag {
	out := make([]Tag, 0, tagCount-1)
	for t := TagBox; t < tagCount; t++ {
		out = append(out, t)
	}
	return out
}

// Valid reports whether t is a known tag.
func (t Tag) Valid() bool {
	return t > TagInvalid && t < tagCount
}

// String returns the short name of the tag.
func (t Tag) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return tagTable[t].name
}

// Element returns the HTML element name the tag renders as.
func (t Tag) Element() string {
	if !t.Valid() {
		return ""
	}
	return tagTable[t].element
}

// DefaultAttrs returns the attributes every element of this tag carries.
// The returned slice must not be modified.
func (t Tag) DefaultAttrs() []Attr {
	if !t.Valid() {
		return nil
	}
	return tagTable[t].attrs
}

// DefaultStyle returns the inline style every element of this tag starts with.
func (t Tag) DefaultStyle() string {
	if !t.Valid() {
		return ""
	}
	return tagTable[t].style
}

// Void reports whether the element cannot have children.
func (t Tag) Void() bool {
	return t.Valid() && tagTable[t].void
}

// Input reports whether the tag is a form control whose value an input
// event carries.
func (t Tag) Input() bool {
	return t.Valid() && tagTable[t].input
}

// Checkable reports whether the control's value is its checked state.
func (t Tag) Checkable() bool {
	return t == TagChk || t == TagRadio
}
