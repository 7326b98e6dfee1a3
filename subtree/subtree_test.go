/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package subtree

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krotik/xmlnode/bracket"
	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/node"
	"github.com/krotik/xmlnode/psn"
	"github.com/krotik/xmlnode/storage"
	"github.com/krotik/xmlnode/util"
)

func id(s string) dewey.ID {
	res, err := dewey.Parse(s)
	if err != nil {
		panic(err)
	}
	return res
}

/*
recorder records events as strings.
*/
type recorder struct {
	events []string
	failAt string // Event which fails
	fails  int    // Number of received Fail calls
}

func (r *recorder) add(format string, args ...interface{}) error {
	e := fmt.Sprintf(format, args...)
	r.events = append(r.events, e)

	if e == r.failAt {
		return fmt.Errorf("listener failed at %v", e)
	}

	return nil
}

/*
recordingListener is a Listener which records all events.
*/
type recordingListener struct {
	recorder
}

func (l *recordingListener) Begin() error         { return l.add("begin") }
func (l *recordingListener) End() error           { return l.add("end") }
func (l *recordingListener) BeginFragment() error { return l.add("beginFragment") }
func (l *recordingListener) EndFragment() error   { return l.add("endFragment") }
func (l *recordingListener) StartDocument(n *node.Node) error {
	return l.add("startDocument")
}
func (l *recordingListener) EndDocument(n *node.Node) error {
	return l.add("endDocument")
}
func (l *recordingListener) StartElement(n *node.Node) error {
	return l.add("startElement(%v)", n.Name())
}
func (l *recordingListener) EndElement(n *node.Node) error {
	return l.add("endElement(%v)", n.Name())
}
func (l *recordingListener) Attribute(n *node.Node) error {
	return l.add("attribute(%v=%v)", n.Name(), n.Value)
}
func (l *recordingListener) Text(n *node.Node) error {
	return l.add("text(%v)", n.Value)
}
func (l *recordingListener) Comment(n *node.Node) error {
	return l.add("comment(%v)", n.Value)
}
func (l *recordingListener) ProcessingInstruction(n *node.Node) error {
	return l.add("pi(%v)", n.Value)
}
func (l *recordingListener) Fail() error {
	l.fails++
	return nil
}

/*
recordingHandler is a Handler which records all events.
*/
type recordingHandler struct {
	recorder
}

func (h *recordingHandler) Begin() error         { return h.add("begin") }
func (h *recordingHandler) End() error           { return h.add("end") }
func (h *recordingHandler) BeginFragment() error { return h.add("beginFragment") }
func (h *recordingHandler) EndFragment() error   { return h.add("endFragment") }
func (h *recordingHandler) StartDocument() error { return h.add("startDocument") }
func (h *recordingHandler) EndDocument() error   { return h.add("endDocument") }
func (h *recordingHandler) StartMapping(prefix string, uri string) error {
	return h.add("startMapping(%v=%v)", prefix, uri)
}
func (h *recordingHandler) EndMapping(prefix string) error {
	return h.add("endMapping(%v)", prefix)
}
func (h *recordingHandler) StartElement(name data.QName) error {
	return h.add("startElement(%v)", name)
}
func (h *recordingHandler) EndElement(name data.QName) error {
	return h.add("endElement(%v)", name)
}
func (h *recordingHandler) Attribute(name data.QName, value string) error {
	return h.add("attribute(%v=%v)", name, value)
}
func (h *recordingHandler) Text(value string) error {
	return h.add("text(%v)", value)
}
func (h *recordingHandler) Comment(value string) error {
	return h.add("comment(%v)", value)
}
func (h *recordingHandler) ProcessingInstruction(target string, content string) error {
	return h.add("pi(%v %v)", target, content)
}
func (h *recordingHandler) Fail() error {
	h.fails++
	return nil
}

type store struct {
	sm    *storage.MemoryStorageManager
	index *bracket.PagedIndex
	root  uint64
	ps    *psn.MemoryPathSynopsis
	nav   *node.Navigator
}

func newStore(t *testing.T, capacity int) *store {
	sm := storage.NewMemoryStorageManager("test")
	pi := bracket.NewPagedIndex(sm, capacity)

	root, err := pi.CreateRoot()
	require.NoError(t, err)

	ps := psn.NewMemoryPathSynopsis()

	return &store{sm, pi, root, ps, node.NewNavigator(pi, root, ps, nil)}
}

func (s *store) inserter(l Listener, target Target) *Inserter {
	return NewInserter(nil, s.index, s.root, s.ps, l, target, false)
}

func (s *store) storeDocument(t *testing.T, docID int, xml string, l Listener) *Inserter {
	ins := s.inserter(l, DocumentTarget(docID))
	require.NoError(t, Parse(strings.NewReader(xml), ins,
		ParseOptions{Document: true, SkipWhitespaceText: true}))
	return ins
}

func (s *store) entries(t *testing.T, prefix dewey.ID) []string {
	var res []string

	c, err := s.index.Open(nil, s.root, bracket.GreaterOrEqual, prefix, bracket.Read, bracket.PageInfo{})
	require.NoError(t, err)

	for c != nil && prefix.IsPrefixOf(c.Key()) {
		if c.IsPlaceholder() {
			res = append(res, c.Key().String()+" -")
		} else {
			rec, err := c.Record()
			require.NoError(t, err)
			res = append(res, c.Key().String()+" "+rec.String())
		}

		ok, err := c.Navigate(bracket.Next)
		require.NoError(t, err)

		if !ok {
			c.Close()
			c = nil
		}
	}

	if c != nil {
		c.Close()
	}

	return res
}

func withoutWrappers(events []string) []string {
	var res []string

	for _, e := range events {
		switch e {
		case "begin", "end", "beginFragment", "endFragment":
			continue
		}
		res = append(res, e)
	}

	return res
}

func TestExampleScenario(t *testing.T) {
	s := newStore(t, 0)

	// Create an empty document

	ins := s.inserter(nil, DocumentTarget(1))
	require.NoError(t, ins.Begin())
	require.NoError(t, ins.BeginFragment())
	require.NoError(t, ins.StartDocument())
	require.NoError(t, ins.EndDocument())
	require.NoError(t, ins.EndFragment())
	require.NoError(t, ins.End())
	assert.Equal(t, 1, ins.Count())
	assert.Equal(t, []string{"1:1 document pcr=-1"}, s.entries(t, id("1:1")))

	doc, err := s.nav.Document(nil, 1)
	require.NoError(t, err)

	// Insert the subtree below the document root

	insertEvents := &recordingListener{}

	ins = s.inserter(insertEvents, ChildTarget(doc, doc.ID.FirstChild()))
	require.NoError(t, Parse(strings.NewReader("<a><b/><c>x</c></a>"), ins, ParseOptions{}))

	assert.Equal(t, 4, ins.Count())
	assert.Equal(t, []dewey.ID{id("1:1.3")}, ins.Roots())

	entries := s.entries(t, id("1:1.3"))
	assert.Equal(t, []string{
		"1:1.3 -",
		"1:1.3.3 element pcr=1",
		"1:1.3.5 -",
		`1:1.3.5.3 text pcr=2 "x"`,
	}, entries)

	a := id("1:1.3")
	for _, e := range entries {
		k := id(strings.Fields(e)[0])
		assert.True(t, a.IsPrefixOf(k))
		assert.True(t, doc.ID.IsAncestorOf(k))
	}

	expected := []string{
		"startElement(a)",
		"startElement(b)",
		"endElement(b)",
		"startElement(c)",
		"text(x)",
		"endElement(c)",
		"endElement(a)",
	}

	assert.Equal(t, expected, withoutWrappers(insertEvents.events))

	// Delete the subtree rooted at a

	deleteEvents := &recordingListener{}
	dr := NewDeleteReconstructor(nil, s.nav.Locator(), deleteEvents)

	n, err := s.index.DeleteSubtree(nil, s.root, a, dr)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, dr.Count())

	assert.Equal(t, append(append([]string{"begin", "beginFragment"}, expected...),
		"endFragment", "end"), deleteEvents.events)

	assert.Equal(t, []string{"1:1 document pcr=-1"}, s.entries(t, id("1:1")))
}

const symmetryDoc = `<?xml version="1.0"?>
<!--top-->
<r xmlns:p="urn:p">
  <p:x id="1" p:y="2"><deep><deeper><deepest>t &amp; <![CDATA[u]]></deepest></deeper></deep></p:x>
  <!--c-->
  <e/>
  <?pi data?>
</r>`

func TestInsertDeleteSymmetry(t *testing.T) {
	for _, capacity := range []int{2, 3, 64} {
		s := newStore(t, capacity)

		insertEvents := &recordingListener{}
		ins := s.storeDocument(t, 1, symmetryDoc, insertEvents)
		assert.Equal(t, 13, ins.Count())

		assert.Equal(t, []string{
			"begin",
			"beginFragment",
			"startDocument",
			"comment(top)",
			"startElement(r)",
			"startElement(p:x)",
			"attribute(id=1)",
			"attribute(p:y=2)",
			"startElement(deep)",
			"startElement(deeper)",
			"startElement(deepest)",
			"text(t & u)",
			"endElement(deepest)",
			"endElement(deeper)",
			"endElement(deep)",
			"endElement(p:x)",
			"comment(c)",
			"startElement(e)",
			"endElement(e)",
			"pi(pi data)",
			"endElement(r)",
			"endDocument",
			"endFragment",
			"end",
		}, insertEvents.events)

		deleteEvents := &recordingListener{}

		n, err := s.index.DeleteSubtree(nil, s.root, dewey.DocumentID(1),
			NewDeleteReconstructor(nil, s.nav.Locator(), deleteEvents))
		require.NoError(t, err)
		assert.Equal(t, 13, n)

		assert.Equal(t, insertEvents.events, deleteEvents.events, "capacity %v", capacity)

		count, err := s.index.Count(nil, s.root)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	}
}

func TestReplay(t *testing.T) {
	s := newStore(t, 3)
	s.storeDocument(t, 7, symmetryDoc, nil)

	parsed := &recordingHandler{}
	require.NoError(t, Parse(strings.NewReader(symmetryDoc), parsed,
		ParseOptions{Document: true, SkipWhitespaceText: true}))

	doc, err := s.nav.Document(nil, 7)
	require.NoError(t, err)

	replayed := &recordingHandler{}
	require.NoError(t, Replay(nil, s.nav, doc, replayed))

	assert.Equal(t, parsed.events, replayed.events)
	assert.Contains(t, replayed.events, "startMapping(p=urn:p)")
	assert.Contains(t, replayed.events, "endMapping(p)")

	// Replaying into a second store copies the document

	s2 := newStore(t, 0)
	ins := s2.inserter(nil, DocumentTarget(7))

	require.NoError(t, Replay(nil, s.nav, doc, ins))
	assert.Equal(t, s.entries(t, dewey.DocumentID(7)), s2.entries(t, dewey.DocumentID(7)))

	// Replay failures fail the handler

	replayed = &recordingHandler{}
	replayed.failAt = "startElement(e)"

	err = Replay(nil, s.nav, doc, replayed)
	assert.Error(t, err)
	assert.Equal(t, 1, replayed.fails)
}

func TestLazyMaterialization(t *testing.T) {
	s := newStore(t, 0)

	ins := s.storeDocument(t, 1, "<a><b><c><d/></c></b><e>1</e><f a='1'/></a>", nil)

	assert.Equal(t, []string{
		"1:1 -",
		"1:1.3 -",
		"1:1.3.3 -",
		"1:1.3.3.3 -",
		"1:1.3.3.3.3 element pcr=3",
		"1:1.3.5 -",
		`1:1.3.5.3 text pcr=4 "1"`,
		"1:1.3.7 -",
		`1:1.3.7.1.3 attribute pcr=6 "1"`,
	}, s.entries(t, dewey.DocumentID(1)))
	assert.Equal(t, 9, ins.Count())

	// Implicit ancestors are materialized across several levels

	b, err := s.nav.Get(nil, id("1:1.3.3"), bracket.PageInfo{})
	require.NoError(t, err)
	assert.Equal(t, "/a/b", b.PSN.Path())

	a, err := s.nav.Get(nil, id("1:1.3"), bracket.PageInfo{})
	require.NoError(t, err)
	assert.Equal(t, "/a", a.PSN.Path())

	// Whitespace handling

	s = newStore(t, 0)
	ins = s.inserter(nil, DocumentTarget(1))
	require.NoError(t, Parse(strings.NewReader("<a> <b/> </a>"), ins, ParseOptions{Document: true}))
	assert.Equal(t, 5, ins.Count())
}

func TestAttributeTarget(t *testing.T) {
	s := newStore(t, 0)
	s.storeDocument(t, 1, `<a x="1"><b/></a>`, nil)

	a, err := s.nav.Get(nil, id("1:1.3"), bracket.PageInfo{})
	require.NoError(t, err)

	l := &recordingListener{}
	ins := s.inserter(l, ChildTarget(a, a.ID.Attribute(1)))

	require.NoError(t, ins.Begin())
	require.NoError(t, ins.Attribute(data.NewQName("y"), "2"))
	require.NoError(t, ins.End())

	assert.Equal(t, []string{"begin", "attribute(y=2)", "end"}, l.events)
	assert.Equal(t, []dewey.ID{id("1:1.3.1.5")}, ins.Roots())

	attrs, err := node.Collect(s.nav.Attributes(nil, a))
	require.NoError(t, err)
	assert.Len(t, attrs, 2)

	// Children cannot be inserted at an attribute target

	ins = s.inserter(nil, ChildTarget(a, a.ID.Attribute(2)))
	require.NoError(t, ins.Begin())

	err = ins.StartElement(data.NewQName("c"))
	assert.True(t, errors.Is(err, util.ErrStructural))
}

func TestNamespaceMappings(t *testing.T) {
	s := newStore(t, 0)
	s.storeDocument(t, 1, `<a xmlns="urn:d" xmlns:q="urn:q"><q:b q:c="1"/><b/></a>`, nil)

	a, err := s.nav.Get(nil, id("1:1.3"), bracket.PageInfo{})
	require.NoError(t, err)
	assert.Equal(t, "urn:d", a.Name().URI)
	assert.Equal(t, `xmlns="urn:d" xmlns:q="urn:q"`, a.PSN.NsMapping.String())

	qb, err := s.nav.FirstChild(nil, a)
	require.NoError(t, err)
	assert.Equal(t, "urn:q", qb.Name().URI)
	assert.Nil(t, qb.PSN.NsMapping)

	attr, err := s.nav.FirstAttribute(nil, qb)
	require.NoError(t, err)
	assert.Equal(t, "urn:q", attr.Name().URI)

	b, err := s.nav.NextSibling(nil, qb)
	require.NoError(t, err)
	assert.Equal(t, "urn:d", b.Name().URI)

	// A second mapping set while one is pending is a programming error

	ins := s.inserter(nil, DocumentTarget(2))
	require.NoError(t, ins.Begin())
	require.NoError(t, ins.StartMapping("p", "urn:1"))
	require.NoError(t, ins.StartMapping("r", "urn:2"))

	assert.Panics(t, func() {
		ins.StartMapping("p", "urn:3")
	})

	assert.Panics(t, func() {
		ins.EndMapping("p")
	})
}

func TestInsertFailure(t *testing.T) {
	s := newStore(t, 0)

	// The first page of the tree cannot be written

	s.sm.AccessMap[1] = storage.AccessUpdateError

	l := &recordingListener{}
	ins := s.inserter(l, DocumentTarget(1))

	err := Parse(strings.NewReader("<a>x</a>"), ins, ParseOptions{Document: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrIndexAccess))
	assert.Equal(t, 1, l.fails)

	// The insert controller was released

	err = ins.controller.Insert(id("1:1.5"), data.NewDocumentRecord().Encode(), 0)
	assert.True(t, errors.Is(err, bracket.ErrClosed))

	assert.Panics(t, func() {
		ins.Text("y")
	})

	// Listener failures abort the insert

	delete(s.sm.AccessMap, 1)

	l = &recordingListener{}
	l.failAt = "text(x)"
	ins = s.inserter(l, DocumentTarget(2))

	err = Parse(strings.NewReader("<a>x</a>"), ins, ParseOptions{Document: true})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "listener failed at text(x)")
	assert.Equal(t, 1, l.fails)
}

func TestIncompleteContent(t *testing.T) {
	s := newStore(t, 0)

	ins := s.inserter(nil, DocumentTarget(1))
	require.NoError(t, ins.Begin())
	require.NoError(t, ins.StartDocument())
	require.NoError(t, ins.StartElement(data.NewQName("a")))

	err := ins.End()
	assert.True(t, errors.Is(err, util.ErrStructural))
	assert.Contains(t, err.Error(), "2 open nodes")

	// Structural violations

	for _, events := range []func(*Inserter) error{
		func(ins *Inserter) error {
			return ins.StartElement(data.NewQName("a"))
		},
		func(ins *Inserter) error {
			ins.StartDocument()
			return ins.Text("x")
		},
		func(ins *Inserter) error {
			ins.StartDocument()
			ins.StartElement(data.NewQName("a"))
			ins.Text("x")
			return ins.Attribute(data.NewQName("b"), "1")
		},
		func(ins *Inserter) error {
			ins.StartDocument()
			ins.StartElement(data.NewQName("a"))
			return ins.EndElement(data.NewQName("b"))
		},
		func(ins *Inserter) error {
			ins.StartDocument()
			return ins.StartDocument()
		},
		func(ins *Inserter) error {
			return ins.EndDocument()
		},
	} {
		ins := s.inserter(nil, DocumentTarget(9))
		require.NoError(t, ins.Begin())

		err := events(ins)
		assert.True(t, errors.Is(err, util.ErrStructural), err)
	}
}

func TestReconstructorErrors(t *testing.T) {
	s := newStore(t, 0)
	loc := s.nav.Locator()

	l := &recordingListener{}
	dr := NewDeleteReconstructor(nil, loc, l)

	// No data entries no events

	require.NoError(t, dr.Done())
	assert.Empty(t, l.events)

	require.NoError(t, dr.Deleted(id("1:1.3"), nil, 1))

	err := dr.Deleted(id("1:1.3.3.3"), nil, 3)
	assert.True(t, errors.Is(err, util.ErrStructural))

	dr = NewDeleteReconstructor(nil, loc, l)
	require.NoError(t, dr.Deleted(id("1:1.3"), nil, 1))

	err = dr.Done()
	assert.True(t, errors.Is(err, util.ErrStructural))

	err = dr.Deleted(id("1:1.3"), []byte{1}, 1)
	assert.True(t, errors.Is(err, util.ErrStructural))

	// A structural error aborts the delete

	s.storeDocument(t, 1, "<a><b/></a>", nil)

	dr = NewDeleteReconstructor(nil, loc, nil)
	pn, err := s.ps.GetChild(nil, psn.NoParent, data.NewQName("a"), data.Element, nil)
	require.NoError(t, err)

	bad := data.NewRecord(pn.PCR, data.Text, "x").Encode()
	require.NoError(t, dr.Deleted(id("2:1"), nil, 0))
	require.NoError(t, dr.Deleted(id("2:1.3"), nil, 1))

	err = dr.Deleted(id("2:1.3.3.3"), bad, 3)
	assert.True(t, errors.Is(err, util.ErrStructural))

	// Listener errors stop the reconstruction

	l = &recordingListener{}
	l.failAt = "startElement(b)"

	_, err = s.index.DeleteSubtree(nil, s.root, dewey.DocumentID(1), NewDeleteReconstructor(nil, loc, l))
	assert.Error(t, err)

	count, err := s.index.Count(nil, s.root)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestParseErrors(t *testing.T) {
	for _, doc := range []string{
		"<a><b></a>",
		"<a>",
		"</a>",
		"<p:a/>",
		"text<a/>",
		"<a/><b/>",
		"",
		"<a xmlns:p='1' xmlns:p='2'/>",
		"<a x='1' x='2'/>x",
	} {
		h := &recordingHandler{}

		err := Parse(strings.NewReader(doc), h, ParseOptions{Document: true})
		assert.True(t, errors.Is(err, util.ErrInvalidArgument), doc)
		assert.Equal(t, 1, h.fails, doc)
	}

	h := &recordingHandler{}
	require.NoError(t, Parse(strings.NewReader(`<a xml:lang="en">1<!--c-->2</a><b/>`), h, ParseOptions{}))
	assert.Equal(t, []string{
		"begin",
		"beginFragment",
		"startElement(a)",
		"attribute(xml:lang=en)",
		"text(1)",
		"comment(c)",
		"text(2)",
		"endElement(a)",
		"startElement(b)",
		"endElement(b)",
		"endFragment",
		"end",
	}, h.events)

	h = &recordingHandler{}
	require.NoError(t, Parse(strings.NewReader("hello<b/> "), h, ParseOptions{}))
	assert.Equal(t, []string{
		"begin",
		"beginFragment",
		"text(hello)",
		"startElement(b)",
		"endElement(b)",
		"endFragment",
		"end",
	}, h.events)

	h = &recordingHandler{}
	h.failAt = "startElement(b)"

	err := Parse(strings.NewReader(`<a><b/></a>`), h, ParseOptions{})
	assert.Contains(t, err.Error(), "listener failed")
	assert.Equal(t, 1, h.fails)
}

func TestListenerList(t *testing.T) {
	l1 := &recordingListener{}
	l2 := &recordingListener{}
	l3 := &recordingListener{}

	ll := ListenerList{l1, l2, DefaultListener{}}

	n := &node.Node{ID: id("1:1.3.3"), Kind: data.Text, Value: "x"}

	require.NoError(t, ll.Begin())
	require.NoError(t, ll.Text(n))

	assert.Equal(t, []string{"begin", "text(x)"}, l1.events)
	assert.Equal(t, l1.events, l2.events)

	l1.failAt = "text(x)"

	err := ll.Text(n)
	assert.Equal(t, "listener failed at text(x)", err.Error())

	l2.failAt = "text(x)"

	err = ListenerList{l1, l2, l3}.Text(n)
	assert.Equal(t, "listener failed at text(x); listener failed at text(x)", err.Error())
	assert.Equal(t, []string{"text(x)"}, l3.events)

	require.NoError(t, ll.Fail())
	assert.Equal(t, 1, l1.fails)
}
