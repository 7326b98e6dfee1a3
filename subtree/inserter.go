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
	"fmt"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/common/stringutil"

	"github.com/krotik/xmlnode/bracket"
	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/node"
	"github.com/krotik/xmlnode/psn"
	"github.com/krotik/xmlnode/trans"
	"github.com/krotik/xmlnode/util"
)

/*
Target describes where an inserter writes its nodes.
*/
type Target struct {
	Parent *node.Node // Existing parent node (nil when storing a new document)
	DocID  int        // Document id when storing a new document
	First  dewey.ID   // Label of the first inserted child or attribute of Parent
}

/*
DocumentTarget returns the target for storing a new document.
*/
func DocumentTarget(docID int) Target {
	return Target{DocID: docID}
}

/*
ChildTarget returns the target for inserting children or attributes under an
existing node. The kind of the first label decides if attributes or children
are inserted.
*/
func ChildTarget(parent *node.Node, first dewey.ID) Target {
	return Target{Parent: parent, First: first}
}

/*
Inserter states
*/
const (
	stateNew = iota
	stateOpen
	stateDone
	stateFailed
)

/*
Inserter is a handler which stores the received events in a clustered index.
*/
type Inserter struct {
	txn      *trans.Txn
	index    *bracket.PagedIndex
	root     uint64
	ps       psn.PathSynopsis
	listener Listener
	target   Target
	openMode bracket.OpenMode

	state      int                       // State of the inserter
	controller *bracket.InsertController // Insert controller
	bulk       psn.BulkManager           // Path synopsis sub manager
	frames     stack                     // Open nodes (the first frame is the target)
	pending    int                       // Number of pending elements on top of the stack
	ns         map[string]string         // Pending namespace mapping set
	nsOrder    []string                  // Prefixes of the pending set in declaration order
	roots      []dewey.ID                // Labels of the nodes inserted directly into the target
}

/*
NewInserter creates a new Inserter. A bulk inserter may only append to the
end of the index.
*/
func NewInserter(txn *trans.Txn, index *bracket.PagedIndex, root uint64, ps psn.PathSynopsis,
	listener Listener, target Target, bulk bool) *Inserter {

	if listener == nil {
		listener = DefaultListener{}
	}

	openMode := bracket.Update
	if bulk {
		openMode = bracket.BulkInsert
	}

	return &Inserter{txn: txn, index: index, root: root, ps: ps, listener: listener,
		target: target, openMode: openMode}
}

/*
Count returns the number of written index entries.
*/
func (ins *Inserter) Count() int {
	if ins.controller == nil {
		return 0
	}
	return ins.controller.Count()
}

/*
Roots returns the labels of the nodes which were inserted directly into the
target.
*/
func (ins *Inserter) Roots() []dewey.ID {
	return ins.roots
}

/*
Begin opens the inserter.
*/
func (ins *Inserter) Begin() error {
	errorutil.AssertTrue(ins.state == stateNew, "Inserter was already used")

	base := frame{}
	start := dewey.DocumentID(ins.target.DocID)

	if p := ins.target.Parent; p != nil {
		start = ins.target.First
		base = frame{id: p.ID, node: p, level: p.ID.Level()}

		if start.IsAttribute() {
			base.nextAttr = start
		} else {
			base.nextChild = start
		}

	} else {
		base.nextChild = start
	}

	c, err := ins.index.OpenForInsert(ins.txn, ins.root, ins.openMode, start)
	if err != nil {
		ins.state = stateFailed
		return util.WrapIndexError(err)
	}

	ins.controller = c
	ins.bulk = ins.ps.SpawnBulkSubManager(ins.txn)
	ins.state = stateOpen
	ins.frames.push(base)

	return ins.notify(ins.listener.Begin())
}

/*
End closes the inserter. Fails if there are still open nodes.
*/
func (ins *Inserter) End() error {
	ins.checkOpen()

	if ins.frames.len() > 1 {
		return ins.fail(&util.NodeError{Type: util.ErrStructural,
			Detail: fmt.Sprintf("Incomplete content: %v open node%v", ins.frames.len()-1,
				stringutil.Plural(ins.frames.len()-1))})
	}

	if err := ins.release(); err != nil {
		return ins.fail(err)
	}

	ins.state = stateDone

	return ins.notify(ins.listener.End())
}

/*
BeginFragment starts a fragment.
*/
func (ins *Inserter) BeginFragment() error {
	ins.checkOpen()
	return ins.notify(ins.listener.BeginFragment())
}

/*
EndFragment ends a fragment.
*/
func (ins *Inserter) EndFragment() error {
	ins.checkOpen()
	return ins.notify(ins.listener.EndFragment())
}

/*
StartDocument starts the document node. The document is held pending like
an element.
*/
func (ins *Inserter) StartDocument() error {
	ins.checkOpen()

	if ins.target.Parent != nil || ins.frames.len() != 1 || ins.frames.top().content {
		return ins.fail(&util.NodeError{Type: util.ErrStructural,
			Detail: "Document can only be started as a new document"})
	}

	base := ins.frames.top()
	base.content = true

	id := base.nextChild

	ins.frames.push(frame{id: id, node: &node.Node{ID: id, Kind: data.Document},
		nextChild: id.FirstChild()})
	ins.pending++

	return nil
}

/*
EndDocument ends the document node.
*/
func (ins *Inserter) EndDocument() error {
	ins.checkOpen()

	f := ins.frames.top()
	if f.node == nil || f.node.Kind != data.Document {
		return ins.fail(&util.NodeError{Type: util.ErrStructural,
			Detail: fmt.Sprint("Unexpected end of document at ", f.id)})
	}

	return ins.end(data.Document)
}

/*
StartMapping adds a namespace mapping to the pending mapping set. The set is
attached to the next element.
*/
func (ins *Inserter) StartMapping(prefix string, uri string) error {
	ins.checkOpen()

	if ins.ns == nil {
		ins.ns = make(map[string]string)
	}

	_, ok := ins.ns[prefix]
	errorutil.AssertTrue(!ok, fmt.Sprintf(
		"Namespace mapping for prefix '%v' started while a mapping set is pending", prefix))

	ins.ns[prefix] = uri
	ins.nsOrder = append(ins.nsOrder, prefix)

	return nil
}

/*
EndMapping ends a namespace mapping.
*/
func (ins *Inserter) EndMapping(prefix string) error {
	ins.checkOpen()

	errorutil.AssertTrue(ins.ns == nil, fmt.Sprintf(
		"Namespace mapping for prefix '%v' ended before it was attached", prefix))

	return nil
}

/*
StartElement starts an element. The element is held pending until it gains
content or ends.
*/
func (ins *Inserter) StartElement(name data.QName) error {
	ins.checkOpen()

	parent := ins.frames.top()

	if parent.nextChild.IsZero() || parent.node == nil {
		return ins.fail(&util.NodeError{Type: util.ErrStructural,
			Detail: fmt.Sprintf("Element %v cannot be inserted at %v", name, parent.id)})
	}

	parentPCR := psn.NoParent
	if parent.node.Kind != data.Document {
		parentPCR = parent.node.PSN.PCR
	}

	ns := data.NewNsMapping(ins.ns)
	mappings := ins.nsOrder
	ins.ns, ins.nsOrder = nil, nil

	pn, err := ins.bulk.GetChild(ins.txn, parentPCR, name, data.Element, ns)
	if err != nil {
		return ins.fail(err)
	}

	id := ins.nextChild(parent)

	ins.frames.push(frame{id: id, node: &node.Node{ID: id, Kind: data.Element, PSN: pn},
		level: id.Level(), nextChild: id.FirstChild(), nextAttr: id.FirstAttribute(),
		mappings: mappings})
	ins.pending++

	return nil
}

/*
EndElement ends an element. An element which is still pending is written as
an empty element record.
*/
func (ins *Inserter) EndElement(name data.QName) error {
	ins.checkOpen()

	f := ins.frames.top()
	if f.node == nil || f.node.Kind != data.Element || ins.frames.len() == 1 ||
		f.node.Name().Local != name.Local {

		return ins.fail(&util.NodeError{Type: util.ErrStructural,
			Detail: fmt.Sprintf("Unexpected end of element %v at %v", name, f.id)})
	}

	return ins.end(data.Element)
}

/*
Attribute stores an attribute of the current element.
*/
func (ins *Inserter) Attribute(name data.QName, value string) error {
	ins.checkOpen()

	f := ins.frames.top()
	if f.node == nil || f.node.Kind != data.Element || f.nextAttr.IsZero() || f.content {
		return ins.fail(&util.NodeError{Type: util.ErrStructural,
			Detail: fmt.Sprintf("Attribute %v cannot be inserted at %v", name, f.id)})
	}

	pn, err := ins.bulk.GetChild(ins.txn, f.node.PSN.PCR, name, data.Attribute, nil)
	if err != nil {
		return ins.fail(err)
	}

	id := f.nextAttr
	f.nextAttr = id.NextSibling()

	if ins.frames.len() == 1 {
		ins.roots = append(ins.roots, id)
	}

	n := &node.Node{ID: id, Kind: data.Attribute, Value: value, PSN: pn}

	if err := ins.write(n, ins.pending); err != nil {
		return err
	}

	return ins.notify(ins.listener.Attribute(n))
}

/*
Text stores a text node.
*/
func (ins *Inserter) Text(value string) error {
	return ins.leaf(data.Text, value)
}

/*
Comment stores a comment node.
*/
func (ins *Inserter) Comment(value string) error {
	return ins.leaf(data.Comment, value)
}

/*
ProcessingInstruction stores a processing instruction node.
*/
func (ins *Inserter) ProcessingInstruction(target string, content string) error {
	return ins.leaf(data.ProcessingInstruction, node.JoinPI(target, content))
}

/*
Fail aborts the insert.
*/
func (ins *Inserter) Fail() error {
	if ins.state != stateOpen {
		return nil
	}

	ins.state = stateFailed

	if err := ins.release(); err != nil {
		logger.Error("Could not release insert resources: ", err)
	}

	return ins.listener.Fail()
}

/*
leaf stores a leaf node under the current node.
*/
func (ins *Inserter) leaf(kind data.Kind, value string) error {
	ins.checkOpen()

	f := ins.frames.top()

	if f.nextChild.IsZero() || f.node == nil ||
		(kind == data.Text && f.node.Kind != data.Element) ||
		(f.node.Kind != data.Element && f.node.Kind != data.Document) {

		return ins.fail(&util.NodeError{Type: util.ErrStructural,
			Detail: fmt.Sprintf("%v cannot be inserted at %v", kind, f.id)})
	}

	id := ins.nextChild(f)
	n := &node.Node{ID: id, Kind: kind, Value: value, PSN: f.node.PSN}

	if err := ins.write(n, ins.pending); err != nil {
		return err
	}

	switch kind {
	case data.Text:
		return ins.notify(ins.listener.Text(n))
	case data.Comment:
		return ins.notify(ins.listener.Comment(n))
	}

	return ins.notify(ins.listener.ProcessingInstruction(n))
}

/*
nextChild allocates the label of the next child of a frame.
*/
func (ins *Inserter) nextChild(f *frame) dewey.ID {
	id := f.nextChild

	f.nextChild = id.NextSibling()
	f.content = true

	if ins.frames.len() == 1 {
		ins.roots = append(ins.roots, id)
	}

	return id
}

/*
end closes the top frame.
*/
func (ins *Inserter) end(kind data.Kind) error {
	f := ins.frames.top()
	n := f.node

	if ins.pending > 0 {
		if err := ins.write(n, ins.pending-1); err != nil {
			return err
		}
	}

	ins.frames.pop()

	if kind == data.Document {
		return ins.notify(ins.listener.EndDocument(n))
	}

	return ins.notify(ins.listener.EndElement(n))
}

/*
write stores the record of a node together with placeholders for a given
number of pending ancestors. All pending nodes are announced to the listener.
*/
func (ins *Inserter) write(n *node.Node, ancestors int) error {
	if err := ins.controller.Insert(n.ID, n.Record().Encode(), ancestors); err != nil {
		return ins.fail(err)
	}

	logger.Debug(fmt.Sprintf("Inserted %v with %v placeholder%v", n, ancestors, stringutil.Plural(ancestors)))

	first := ins.frames.len() - ins.pending
	ins.pending = 0

	for i := first; i < ins.frames.len(); i++ {
		pf := ins.frames.at(i)

		var err error
		if pf.node.Kind == data.Document {
			err = ins.listener.StartDocument(pf.node)
		} else {
			err = ins.listener.StartElement(pf.node)
		}

		if err = ins.notify(err); err != nil {
			return err
		}
	}

	return nil
}

/*
notify handles the result of a listener call.
*/
func (ins *Inserter) notify(err error) error {
	if err != nil {
		return ins.fail(err)
	}
	return nil
}

/*
fail releases all resources and returns the given error as node error.
*/
func (ins *Inserter) fail(err error) error {
	if ins.state == stateOpen {
		ins.state = stateFailed

		if lerr := ins.listener.Fail(); lerr != nil {
			logger.Error("Listener failure during insert cleanup: ", lerr)
		}

		if rerr := ins.release(); rerr != nil {
			logger.Error("Could not release insert resources: ", rerr)
		}
	}

	return util.WrapIndexError(err)
}

/*
release closes the insert controller and the path synopsis sub manager.
*/
func (ins *Inserter) release() error {
	var err error

	if ins.controller != nil {
		err = ins.controller.Close()
	}

	if ins.bulk != nil {
		if berr := ins.bulk.Close(); err == nil {
			err = berr
		}
	}

	ins.frames.reset()
	ins.pending = 0

	return err
}

func (ins *Inserter) checkOpen() {
	errorutil.AssertTrue(ins.state == stateOpen, "Inserter is not open")
}
