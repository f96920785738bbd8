package hosttest

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sill-dev/sill/pkg/dom"
)

const (
	textTag     = "#text"
	documentTag = "#document"
	shadowTag   = "#shadow-root"
)

type node struct {
	id    uint64
	tag   string
	text  string
	attrs map[string]string

	parent   *node
	children []*node

	shadow     *node
	shadowMode dom.ShadowMode
}

type fragment struct {
	id       uint64
	children []*node
	released bool
}

// Tree is an in-memory document engine implementing dom.Host.
type Tree struct {
	nextID    uint64
	nodes     map[uint64]*node
	fragments map[uint64]*fragment
	rects     map[uint64]dom.Rect

	// onAttributeChanged fires after every attribute mutation made through
	// SetAttribute or RemoveAttribute, including mutations issued from
	// inside lifecycle callbacks. Driver points this at the dispatcher.
	onAttributeChanged func(ref dom.NodeRef, name dom.Name, old, new dom.AttributeValue)
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		nodes:     make(map[uint64]*node),
		fragments: make(map[uint64]*fragment),
		rects:     make(map[uint64]dom.Rect),
	}
}

// OnAttributeChanged installs the attribute mutation hook.
func (t *Tree) OnAttributeChanged(fn func(ref dom.NodeRef, name dom.Name, old, new dom.AttributeValue)) {
	t.onAttributeChanged = fn
}

func (t *Tree) newNode(tag string) *node {
	t.nextID++
	n := &node{id: t.nextID, tag: tag, attrs: make(map[string]string)}
	t.nodes[n.id] = n
	return n
}

func (t *Tree) get(ref dom.NodeRef) (*node, error) {
	n, ok := t.nodes[ref.ID()]
	if !ok {
		return nil, dom.ErrNodeGone
	}
	return n, nil
}

// CreateElement creates a bare, unparented element node.
func (t *Tree) CreateElement(tag string) dom.NodeRef {
	n := t.newNode(strings.ToLower(tag))
	return dom.NodeRefFromID(n.id)
}

// NewDocument creates a document root and returns its handle. The document's
// root node carries the same identity, so elements appended under it are
// connected.
func (t *Tree) NewDocument() dom.DocumentRef {
	n := t.newNode(documentTag)
	return dom.DocumentRefFromID(n.id)
}

// DocumentRoot returns the document's root as an append target.
func (t *Tree) DocumentRoot(doc dom.DocumentRef) dom.NodeRef {
	return dom.NodeRefFromID(doc.ID())
}

// Append attaches child under parent, detaching it from any previous parent.
func (t *Tree) Append(parent, child dom.NodeRef) error {
	p, err := t.get(parent)
	if err != nil {
		return err
	}
	c, err := t.get(child)
	if err != nil {
		return err
	}
	detach(c)
	c.parent = p
	p.children = append(p.children, c)
	return nil
}

// Detach removes the node from its parent, leaving it alive but unrooted.
func (t *Tree) Detach(ref dom.NodeRef) error {
	n, err := t.get(ref)
	if err != nil {
		return err
	}
	detach(n)
	return nil
}

func detach(n *node) {
	if n.parent == nil {
		return
	}
	siblings := n.parent.children
	for i, s := range siblings {
		if s == n {
			n.parent.children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// Destroy removes the node and its whole subtree, shadow included. Handles
// into the destroyed subtree go stale: operations on them return ErrNodeGone.
func (t *Tree) Destroy(ref dom.NodeRef) error {
	n, err := t.get(ref)
	if err != nil {
		return err
	}
	detach(n)
	t.drop(n)
	return nil
}

func (t *Tree) drop(n *node) {
	delete(t.nodes, n.id)
	delete(t.rects, n.id)
	for _, c := range n.children {
		t.drop(c)
	}
	if n.shadow != nil {
		t.drop(n.shadow)
	}
}

// Alive reports whether the handle still refers to a live node. This is the
// liveness predicate for Dispatcher.Sweep.
func (t *Tree) Alive(ref dom.NodeRef) bool {
	_, ok := t.nodes[ref.ID()]
	return ok
}

// Connected reports whether the node sits under a document root.
func (t *Tree) Connected(ref dom.NodeRef) bool {
	n, err := t.get(ref)
	if err != nil {
		return false
	}
	for cur := n; cur != nil; cur = cur.parent {
		if cur.tag == documentTag {
			return true
		}
	}
	return false
}

// Tag returns the node's tag name.
func (t *Tree) Tag(ref dom.NodeRef) (string, error) {
	n, err := t.get(ref)
	if err != nil {
		return "", err
	}
	return n.tag, nil
}

// SetRect sets the geometry returned by BoundingClientRect.
func (t *Tree) SetRect(ref dom.NodeRef, r dom.Rect) {
	t.rects[ref.ID()] = r
}

// CreateTemplate implements dom.Host.
func (t *Tree) CreateTemplate(markup string) (dom.FragmentRef, error) {
	children, err := t.parseMarkup(markup)
	if err != nil {
		return dom.FragmentRef{}, err
	}
	return t.newFragment(children), nil
}

func (t *Tree) newFragment(children []*node) dom.FragmentRef {
	t.nextID++
	f := &fragment{id: t.nextID, children: children}
	t.fragments[f.id] = f
	return dom.FragmentRefFromID(f.id)
}

// CloneFragment implements dom.Host: a deep structural copy with fresh node
// identities, sharing nothing with the original.
func (t *Tree) CloneFragment(ref dom.FragmentRef) (dom.FragmentRef, error) {
	f, ok := t.fragments[ref.ID()]
	if !ok || f.released {
		return dom.FragmentRef{}, dom.ErrFragmentGone
	}
	clones := make([]*node, 0, len(f.children))
	for _, c := range f.children {
		clones = append(clones, t.cloneNode(c))
	}
	return t.newFragment(clones), nil
}

func (t *Tree) cloneNode(src *node) *node {
	dst := t.newNode(src.tag)
	dst.text = src.text
	for k, v := range src.attrs {
		dst.attrs[k] = v
	}
	for _, c := range src.children {
		cc := t.cloneNode(c)
		cc.parent = dst
		dst.children = append(dst.children, cc)
	}
	return dst
}

// AttachShadow implements dom.Host. Once per element.
func (t *Tree) AttachShadow(el dom.NodeRef, opts dom.ShadowRootOptions) (dom.NodeRef, error) {
	n, err := t.get(el)
	if err != nil {
		return dom.NodeRef{}, err
	}
	if n.tag == textTag || n.tag == documentTag || n.tag == shadowTag {
		return dom.NodeRef{}, fmt.Errorf("hosttest: %s cannot host a shadow root", n.tag)
	}
	if n.shadow != nil {
		return dom.NodeRef{}, dom.ErrShadowAlreadyAttached
	}
	root := t.newNode(shadowTag)
	root.parent = n
	n.shadow = root
	n.shadowMode = opts.Mode
	return dom.NodeRefFromID(root.id), nil
}

// AppendFragment implements dom.Host: moves the fragment's children under
// parent and releases the fragment.
func (t *Tree) AppendFragment(parent dom.NodeRef, ref dom.FragmentRef) error {
	p, err := t.get(parent)
	if err != nil {
		return err
	}
	f, ok := t.fragments[ref.ID()]
	if !ok || f.released {
		return dom.ErrFragmentGone
	}
	for _, c := range f.children {
		c.parent = p
		p.children = append(p.children, c)
	}
	f.children = nil
	f.released = true
	return nil
}

// Attribute implements dom.Host.
func (t *Tree) Attribute(el dom.NodeRef, name dom.Name) (dom.AttributeValue, error) {
	n, err := t.get(el)
	if err != nil {
		return dom.AttributeValue{}, err
	}
	v, ok := n.attrs[name.String()]
	if !ok {
		return dom.NoValue(), nil
	}
	return dom.SomeValue(v), nil
}

// SetAttribute implements dom.Host. The mutation is reported through the
// attribute-changed hook before this call returns, which is what makes
// attribute writes from inside callbacks reenter the dispatcher.
func (t *Tree) SetAttribute(el dom.NodeRef, name dom.Name, value string) error {
	n, err := t.get(el)
	if err != nil {
		return err
	}
	old := dom.NoValue()
	if prev, ok := n.attrs[name.String()]; ok {
		old = dom.SomeValue(prev)
	}
	n.attrs[name.String()] = value
	if t.onAttributeChanged != nil {
		t.onAttributeChanged(el, name, old, dom.SomeValue(value))
	}
	return nil
}

// RemoveAttribute implements dom.Host. Removing an absent attribute is a
// no-op and fires no notification.
func (t *Tree) RemoveAttribute(el dom.NodeRef, name dom.Name) error {
	n, err := t.get(el)
	if err != nil {
		return err
	}
	prev, ok := n.attrs[name.String()]
	if !ok {
		return nil
	}
	delete(n.attrs, name.String())
	if t.onAttributeChanged != nil {
		t.onAttributeChanged(el, name, dom.SomeValue(prev), dom.NoValue())
	}
	return nil
}

// SetInnerMarkup implements dom.Host.
func (t *Tree) SetInnerMarkup(el dom.NodeRef, markup string) error {
	n, err := t.get(el)
	if err != nil {
		return err
	}
	children, err := t.parseMarkup(markup)
	if err != nil {
		return err
	}
	for _, c := range n.children {
		t.drop(c)
	}
	n.children = nil
	for _, c := range children {
		c.parent = n
		n.children = append(n.children, c)
	}
	return nil
}

// QuerySelector implements dom.Host. Matching covers the root's descendants
// in document order; shadow subtrees are not pierced, so querying inside a
// shadow tree means querying from its root handle.
func (t *Tree) QuerySelector(root dom.NodeRef, sel dom.Selector) (dom.NodeRef, error) {
	n, err := t.get(root)
	if err != nil {
		return dom.NodeRef{}, err
	}
	if sel.IsZero() {
		return dom.NodeRef{}, dom.ErrNoMatch
	}
	steps := sel.Steps()
	found := findFirst(n, n, steps)
	if found == nil {
		return dom.NodeRef{}, dom.ErrNoMatch
	}
	return dom.NodeRefFromID(found.id), nil
}

func findFirst(root, cur *node, steps []dom.MatchStep) *node {
	for _, c := range cur.children {
		if c.tag != textTag && matchesChain(root, c, steps) {
			return c
		}
		if hit := findFirst(root, c, steps); hit != nil {
			return hit
		}
	}
	return nil
}

// matchesChain reports whether n matches the last step and its ancestry up
// to and including root satisfies the earlier steps, innermost first.
func matchesChain(root, n *node, steps []dom.MatchStep) bool {
	last := steps[len(steps)-1]
	if !last.Matches(n.tag, n.attrs) {
		return false
	}
	i := len(steps) - 2
	for cur := n.parent; i >= 0 && cur != nil; cur = cur.parent {
		if cur.tag != textTag && cur.tag != documentTag && cur.tag != shadowTag &&
			steps[i].Matches(cur.tag, cur.attrs) {
			i--
		}
		if cur == root {
			break
		}
	}
	return i < 0
}

// BoundingClientRect implements dom.Host. Geometry defaults to the zero Rect
// unless seeded with SetRect.
func (t *Tree) BoundingClientRect(el dom.NodeRef) (dom.Rect, error) {
	if _, err := t.get(el); err != nil {
		return dom.Rect{}, err
	}
	return t.rects[el.ID()], nil
}

func (t *Tree) parseMarkup(markup string) ([]*node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	parsed, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("hosttest: parse markup: %w", err)
	}
	var out []*node
	for _, hn := range parsed {
		if n := t.convert(hn); n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func (t *Tree) convert(hn *html.Node) *node {
	switch hn.Type {
	case html.ElementNode:
		n := t.newNode(strings.ToLower(hn.Data))
		for _, a := range hn.Attr {
			n.attrs[strings.ToLower(a.Key)] = a.Val
		}
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			if cn := t.convert(c); cn != nil {
				cn.parent = n
				n.children = append(n.children, cn)
			}
		}
		return n
	case html.TextNode:
		n := t.newNode(textTag)
		n.text = hn.Data
		return n
	default:
		return nil
	}
}

// Markup serializes the node's subtree, shadow trees annotated inline.
// Attributes print in sorted order so output is deterministic.
func (t *Tree) Markup(ref dom.NodeRef) (string, error) {
	n, err := t.get(ref)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeNode(&b, n)
	return b.String(), nil
}

// FragmentMarkup serializes a fragment's children.
func (t *Tree) FragmentMarkup(ref dom.FragmentRef) (string, error) {
	f, ok := t.fragments[ref.ID()]
	if !ok || f.released {
		return "", dom.ErrFragmentGone
	}
	var b strings.Builder
	for _, c := range f.children {
		writeNode(&b, c)
	}
	return b.String(), nil
}

func writeNode(b *strings.Builder, n *node) {
	switch n.tag {
	case textTag:
		b.WriteString(n.text)
		return
	case documentTag, shadowTag:
		for _, c := range n.children {
			writeNode(b, c)
		}
		return
	}
	b.WriteByte('<')
	b.WriteString(n.tag)
	keys := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%q", k, n.attrs[k])
	}
	b.WriteByte('>')
	if n.shadow != nil {
		b.WriteString("<template shadowrootmode=")
		b.WriteString(n.shadowMode.String())
		b.WriteByte('>')
		for _, c := range n.shadow.children {
			writeNode(b, c)
		}
		b.WriteString("</template>")
	}
	for _, c := range n.children {
		writeNode(b, c)
	}
	b.WriteString("</")
	b.WriteString(n.tag)
	b.WriteByte('>')
}

var _ dom.Host = (*Tree)(nil)
