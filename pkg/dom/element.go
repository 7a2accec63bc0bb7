// Package dom is a small element tree over golang.org/x/net/html nodes. Controls
// render into it and tests query it the way a browser DOM would be queried.
package dom

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element wraps an element node.
type Element struct {
	n *html.Node
}

// New creates a detached element. attrs are key/value pairs.
func New(tag string, attrs ...string) *Element {
	tag = strings.ToLower(strings.TrimSpace(tag))
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	e := &Element{n: n}
	for i := 0; i+1 < len(attrs); i += 2 {
		e.SetAttr(attrs[i], attrs[i+1])
	}
	return e
}

// Wrap returns the element for n, or nil when n is not an element.
func Wrap(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	return &Element{n: n}
}

// Parse parses an HTML fragment in a div context and returns its top-level
// elements. Top-level text is dropped.
func Parse(fragment string) ([]*Element, error) {
	nodes, err := parseNodes(fragment)
	if err != nil {
		return nil, err
	}
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		if e := Wrap(n); e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// MustParseOne parses a fragment holding exactly one element. It panics
// otherwise; meant for static markup.
func MustParseOne(fragment string) *Element {
	els, err := Parse(fragment)
	if err != nil {
		panic(err)
	}
	if len(els) != 1 {
		panic(fmt.Sprintf("dom: expected one element, got %d", len(els)))
	}
	return els[0]
}

func parseNodes(fragment string) ([]*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	return nodes, nil
}

// Node exposes the underlying node.
func (e *Element) Node() *html.Node {
	return e.n
}

// Tag returns the element name.
func (e *Element) Tag() string {
	return e.n.Data
}

// Is reports whether e is the given tag.
func (e *Element) Is(a atom.Atom) bool {
	return e.n.DataAtom == a
}

// Attr returns the value of key.
func (e *Element) Attr(key string) (string, bool) {
	for _, attr := range e.n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// AttrOr returns the value of key or def.
func (e *Element) AttrOr(key, def string) string {
	if v, ok := e.Attr(key); ok {
		return v
	}
	return def
}

// SetAttr sets key, replacing any previous value.
func (e *Element) SetAttr(key, value string) *Element {
	for i := range e.n.Attr {
		if e.n.Attr[i].Namespace == "" && e.n.Attr[i].Key == key {
			e.n.Attr[i].Val = value
			return e
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: key, Val: value})
	return e
}

// RemoveAttr deletes key.
func (e *Element) RemoveAttr(key string) *Element {
	e.n.Attr = slices.DeleteFunc(e.n.Attr, func(attr html.Attribute) bool {
		return attr.Namespace == "" && attr.Key == key
	})
	return e
}

// Classes returns the class list.
func (e *Element) Classes() []string {
	v, _ := e.Attr("class")
	return strings.Fields(v)
}

// HasClass reports whether every class in names is present.
func (e *Element) HasClass(names ...string) bool {
	classes := e.Classes()
	for _, name := range names {
		for _, c := range strings.Fields(name) {
			if !slices.Contains(classes, c) {
				return false
			}
		}
	}
	return len(names) > 0
}

// AddClass appends the classes that are missing. Each argument may hold
// several space separated names.
func (e *Element) AddClass(names ...string) *Element {
	classes := e.Classes()
	for _, name := range names {
		for _, c := range strings.Fields(name) {
			if !slices.Contains(classes, c) {
				classes = append(classes, c)
			}
		}
	}
	return e.setClasses(classes)
}

// RemoveClass removes the named classes.
func (e *Element) RemoveClass(names ...string) *Element {
	var drop []string
	for _, name := range names {
		drop = append(drop, strings.Fields(name)...)
	}
	classes := slices.DeleteFunc(e.Classes(), func(c string) bool {
		return slices.Contains(drop, c)
	})
	return e.setClasses(classes)
}

// ToggleClass adds or removes names.
func (e *Element) ToggleClass(on bool, names ...string) *Element {
	if on {
		return e.AddClass(names...)
	}
	return e.RemoveClass(names...)
}

func (e *Element) setClasses(classes []string) *Element {
	if len(classes) == 0 {
		return e.RemoveAttr("class")
	}
	return e.SetAttr("class", strings.Join(classes, " "))
}

// Parent returns the parent element, if any.
func (e *Element) Parent() *Element {
	return Wrap(e.n.Parent)
}

// Children returns the element children.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if child := Wrap(c); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// Append moves children to the end of e.
func (e *Element) Append(children ...*Element) *Element {
	for _, child := range children {
		if child == nil {
			continue
		}
		child.Remove()
		e.n.AppendChild(child.n)
	}
	return e
}

// Prepend inserts child before the first child of e.
func (e *Element) Prepend(child *Element) *Element {
	if child == nil {
		return e
	}
	child.Remove()
	if e.n.FirstChild == nil {
		e.n.AppendChild(child.n)
	} else {
		e.n.InsertBefore(child.n, e.n.FirstChild)
	}
	return e
}

// AppendText appends a text node.
func (e *Element) AppendText(text string) *Element {
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return e
}

// SetText replaces the content with text.
func (e *Element) SetText(text string) *Element {
	return e.Empty().AppendText(text)
}

// SetHTML replaces the content with the parsed fragment.
func (e *Element) SetHTML(fragment string) error {
	nodes, err := parseNodes(fragment)
	if err != nil {
		return err
	}
	e.Empty()
	for _, n := range nodes {
		e.n.AppendChild(n)
	}
	return nil
}

// Empty removes every child node.
func (e *Element) Empty() *Element {
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	return e
}

// Remove detaches e from its parent.
func (e *Element) Remove() {
	if e.n.Parent != nil {
		e.n.Parent.RemoveChild(e.n)
	}
}

// Find returns the descendants matching fn in document order.
func (e *Element) Find(fn func(*Element) bool) []*Element {
	var out []*Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := Wrap(c); child != nil {
				if fn(child) {
					out = append(out, child)
				}
				walk(c)
			}
		}
	}
	walk(e.n)
	return out
}

// First returns the first descendant matching fn.
func (e *Element) First(fn func(*Element) bool) *Element {
	if found := e.Find(fn); len(found) > 0 {
		return found[0]
	}
	return nil
}

// FindByClass returns descendants carrying every class in names.
func (e *Element) FindByClass(names ...string) []*Element {
	return e.Find(func(el *Element) bool { return el.HasClass(names...) })
}

// FindByTag returns descendants with the given tag.
func (e *Element) FindByTag(tag string) []*Element {
	return e.Find(func(el *Element) bool { return el.Tag() == tag })
}

// FindByAttr returns descendants whose attribute key equals value.
func (e *Element) FindByAttr(key, value string) []*Element {
	return e.Find(func(el *Element) bool {
		v, ok := el.Attr(key)
		return ok && v == value
	})
}

// ByID returns the descendant with the given id.
func (e *Element) ByID(id string) *Element {
	return e.First(func(el *Element) bool { return el.AttrOr("id", "") == id })
}

// Text returns the concatenated text content.
func (e *Element) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return b.String()
}

// String renders the element as HTML.
func (e *Element) String() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.n); err != nil {
		return ""
	}
	return buf.String()
}

// InnerHTML renders the children of e.
func (e *Element) InnerHTML() string {
	var buf bytes.Buffer
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}
