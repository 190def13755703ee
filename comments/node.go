package comments

import "strings"

// Node is a piece of markup. Elements and text are the only kinds;
// there is no way to inject unescaped strings.
type Node interface {
	render(b *strings.Builder)
}

// Attr is one attribute. Bool attributes render as the bare key.
type Attr struct {
	Key   string
	Value string
	Bool  bool
}

// Element is an HTML element with ordered attributes
type Element struct {
	Tag      string
	Attrs    []Attr
	Children []Node
}

// Text is escaped on render
type Text string

// El builds an element
func El(tag string, attrs []Attr, children ...Node) *Element {
	return &Element{Tag: tag, Attrs: attrs, Children: children}
}

// A is shorthand for a list of attributes given as key/value pairs
func A(kv ...string) []Attr {
	attrs := make([]Attr, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, Attr{Key: kv[i], Value: kv[i+1]})
	}
	return attrs
}

// Append adds children, skipping nils so optional parts can be passed inline
func (e *Element) Append(children ...Node) *Element {
	for _, c := range children {
		if isNil(c) {
			continue
		}
		e.Children = append(e.Children, c)
	}
	return e
}

func (e *Element) render(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(e.Tag)
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		if a.Bool {
			continue
		}
		b.WriteString(`="`)
		b.WriteString(EscapeHTML(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	for _, c := range e.Children {
		if isNil(c) {
			continue
		}
		c.render(b)
	}
	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteByte('>')
}

func (t Text) render(b *strings.Builder) {
	b.WriteString(EscapeHTML(string(t)))
}

// Render serializes nodes in order
func Render(nodes ...Node) string {
	var b strings.Builder
	for _, n := range nodes {
		if isNil(n) {
			continue
		}
		n.render(&b)
	}
	return b.String()
}

func isNil(n Node) bool {
	if n == nil {
		return true
	}
	el, ok := n.(*Element)
	return ok && el == nil
}
