/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package collection contains the entry points of the node store.

A Collection stores XML documents in a clustered index. Documents or
subtrees are parsed and inserted through the lazy ancestor materialization
of the subtree package. Every insert and delete feeds the secondary indexes
of the collection and any registered listeners.
*/
package collection

import (
	"fmt"
	"io"
	"sync"

	"github.com/krotik/common/logutil"

	"github.com/krotik/xmlnode/bracket"
	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/index"
	"github.com/krotik/xmlnode/node"
	"github.com/krotik/xmlnode/psn"
	"github.com/krotik/xmlnode/storage"
	"github.com/krotik/xmlnode/subtree"
	"github.com/krotik/xmlnode/trans"
	"github.com/krotik/xmlnode/util"
)

var logger = logutil.GetLogger("xmlnode.collection")

/*
StorageVersion is the version of the storage layout of a collection.
*/
const StorageVersion = 1

/*
Collection is a set of XML documents stored in one clustered index.
*/
type Collection struct {
	opts      Options
	sm        storage.Manager
	index     *bracket.PagedIndex
	root      uint64
	ps        *psn.MemoryPathSynopsis
	nav       *node.Navigator
	ctrl      *index.Controller
	listeners subtree.ListenerList // Registered listeners
	mutex     *sync.Mutex          // Mutex to serialize updates
}

/*
NewCollection creates a new collection on a given storage manager. The
clustered index root is stored in the first root slot of the storage
manager.
*/
func NewCollection(sm storage.Manager, opts Options) (*Collection, error) {
	if opts.Log == nil {
		opts.Log = trans.NewMemoryLog()
	}
	if opts.Locks == nil {
		opts.Locks = trans.NoLockService{}
	}
	if opts.Dictionary == nil {
		opts.Dictionary = util.NewNamesDictionary(make(map[string]string))
	}
	if opts.IndexStore == nil {
		opts.IndexStore = index.NewMemoryEntryStore()
	}
	if opts.MainDB == nil {
		opts.MainDB = make(map[string]string)
	}

	if v := sm.Root(storage.RootIDVersion); v > StorageVersion {
		return nil, &util.NodeError{Type: util.ErrUnsupported,
			Detail: fmt.Sprintf("Storage version %v is newer than %v", v, StorageVersion)}
	}

	sm.SetRoot(storage.RootIDVersion, StorageVersion)

	pi := bracket.NewPagedIndex(sm, opts.PageCapacity)

	root := sm.Root(storage.RootIDIndex)

	if root == 0 {
		var err error

		if root, err = pi.CreateRoot(); err != nil {
			return nil, util.WrapIndexError(err)
		}

		sm.SetRoot(storage.RootIDIndex, root)
	}

	ps := psn.NewMemoryPathSynopsis()

	ctrl, err := index.NewController(opts.IndexStore, opts.Log, opts.Dictionary, ps,
		opts.MainDB, opts.FlushMainDB)
	if err != nil {
		return nil, err
	}

	logger.Debug("Opened collection ", sm.Name())

	return &Collection{opts, sm, pi, root, ps,
		node.NewNavigator(pi, root, ps, opts.Locks), ctrl, nil, &sync.Mutex{}}, nil
}

/*
Name returns the name of this collection.
*/
func (c *Collection) Name() string {
	return c.sm.Name()
}

/*
NewTxn creates a new transaction with the configured lock depth.
*/
func (c *Collection) NewTxn() *trans.Txn {
	return trans.NewTxn(c.opts.LockDepth)
}

/*
Navigator returns the navigator of this collection.
*/
func (c *Collection) Navigator() *node.Navigator {
	return c.nav
}

/*
Indexes returns the index controller of this collection.
*/
func (c *Collection) Indexes() *index.Controller {
	return c.ctrl
}

/*
PathSynopsis returns the path synopsis of this collection.
*/
func (c *Collection) PathSynopsis() *psn.MemoryPathSynopsis {
	return c.ps
}

/*
AddListener registers a listener which receives the events of all inserted
and deleted nodes.
*/
func (c *Collection) AddListener(l subtree.Listener) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.listeners = append(c.listeners, l)
}

/*
Documents returns the ids of all stored documents.
*/
func (c *Collection) Documents(txn *trans.Txn) ([]int, error) {
	var res []int

	cur, err := c.index.Open(txn, c.root, bracket.GreaterOrEqual, dewey.DocumentID(1), bracket.Read,
		bracket.PageInfo{})

	for cur != nil && err == nil {
		doc := cur.Key().DocID
		res = append(res, doc)

		var ok bool
		if ok, err = cur.Seek(bracket.GreaterOrEqual, dewey.DocumentID(doc+1)); !ok {
			cur.Close()
			cur = nil
		}
	}

	if cur != nil {
		cur.Close()
	}

	return res, util.WrapIndexError(err)
}

/*
StoreDocument parses a document and stores it under the next free document
id. Returns the document node.
*/
func (c *Collection) StoreDocument(txn *trans.Txn, r io.Reader) (*node.Node, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	docs, err := c.Documents(txn)
	if err != nil {
		return nil, err
	}

	docID := 1
	if len(docs) > 0 {
		docID = docs[len(docs)-1] + 1
	}

	ins := subtree.NewInserter(txn, c.index, c.root, c.ps, c.insertListeners(txn),
		subtree.DocumentTarget(docID), false)

	if err := subtree.Parse(r, ins, subtree.ParseOptions{Document: true,
		SkipWhitespaceText: c.opts.SkipWhitespaceText}); err != nil {
		return nil, err
	}

	logger.Debug("Stored document ", docID, " with ", ins.Count(), " entries")

	return c.nav.Document(txn, docID)
}

/*
InsertSubtree parses a fragment and appends it as the last children of a
given element or document node. Returns the labels of the root nodes of the
fragment.
*/
func (c *Collection) InsertSubtree(txn *trans.Txn, parent dewey.ID, r io.Reader) ([]dewey.ID, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	p, err := c.lockedNode(txn, parent)
	if err != nil {
		return nil, err
	}

	if p.Kind != data.Element && p.Kind != data.Document {
		return nil, &util.NodeError{Type: util.ErrInvalidArgument,
			Detail: fmt.Sprintf("Cannot insert children into %v", p)}
	}

	first := p.ID.FirstChild()

	last, err := c.nav.LastChild(txn, p)
	if err != nil {
		return nil, err
	} else if last != nil {
		first = last.ID.NextSibling()
	}

	ins := subtree.NewInserter(txn, c.index, c.root, c.ps, c.insertListeners(txn),
		subtree.ChildTarget(p, first), false)

	if err := subtree.Parse(r, ins, subtree.ParseOptions{
		SkipWhitespaceText: c.opts.SkipWhitespaceText}); err != nil {
		return nil, err
	}

	return ins.Roots(), nil
}

/*
DeleteSubtree removes a node and all its descendants. Returns the number of
removed index entries.
*/
func (c *Collection) DeleteSubtree(txn *trans.Txn, id dewey.ID) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n, err := c.lockedNode(txn, id)
	if err != nil {
		return 0, err
	}

	return c.deleteSubtree(txn, n)
}

func (c *Collection) deleteSubtree(txn *trans.Txn, n *node.Node) (int, error) {
	var parent *node.Node
	var err error

	if n.Kind == data.Attribute {
		parent, err = c.nav.Get(txn, n.ID.AttributeOwner(), bracket.PageInfo{})
	} else if n.Kind != data.Document {
		parent, err = c.nav.Parent(txn, n)
	}

	if err != nil {
		return 0, err
	}

	dr := subtree.NewDeleteReconstructor(txn, c.nav.Locator(), c.deleteListeners(txn))

	count, err := c.index.DeleteSubtree(txn, c.root, n.ID, dr)
	if err != nil {
		return count, util.WrapIndexError(err)
	}

	logger.Debug("Deleted ", n, " with ", count, " entries")

	if parent != nil {
		err = c.materialize(txn, parent)
	}

	return count, err
}

/*
materialize turns the placeholder entry of a node without remaining
descendants into an explicit record.
*/
func (c *Collection) materialize(txn *trans.Txn, n *node.Node) error {
	cur, err := c.index.Open(txn, c.root, bracket.ToKey, n.ID, bracket.Update, n.Hint)
	if cur == nil {
		if err == nil {
			err = &util.NodeError{Type: util.ErrStructural, Detail: fmt.Sprint("Missing entry of ", n)}
		}
		return util.WrapIndexError(err)
	}
	defer cur.Close()

	if !cur.IsPlaceholder() {
		return nil
	}

	next, err := c.index.Open(txn, c.root, bracket.Greater, n.ID, bracket.Read, cur.PageInfo())
	if err != nil {
		return util.WrapIndexError(err)
	} else if next != nil {
		defer next.Close()

		if n.ID.IsPrefixOf(next.Key()) {
			return nil
		}
	}

	logger.Debug("Materializing ", n)

	return util.WrapIndexError(cur.Update(n.Record().Encode()))
}

/*
SetAttribute sets an attribute of an element. An existing attribute of the
same name is removed first and the new attribute takes its label.
*/
func (c *Collection) SetAttribute(txn *trans.Txn, elem dewey.ID, name data.QName, value string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, err := c.lockedNode(txn, elem)
	if err != nil {
		return err
	} else if e.Kind != data.Element {
		return &util.NodeError{Type: util.ErrInvalidArgument,
			Detail: fmt.Sprintf("Cannot set attribute on %v", e)}
	}

	label := e.ID.Attribute(0)

	old, err := c.nav.Attribute(txn, e, name)
	if err != nil {
		return err
	}

	if old != nil {
		label = old.ID

		if _, err := c.deleteSubtree(txn, old); err != nil {
			return err
		}

	} else {
		attrs, err := node.Collect(c.nav.Attributes(txn, e))
		if err != nil {
			return err
		} else if len(attrs) > 0 {
			label = attrs[len(attrs)-1].ID.NextSibling()
		}
	}

	ins := subtree.NewInserter(txn, c.index, c.root, c.ps, c.insertListeners(txn),
		subtree.ChildTarget(e, label), false)

	if err = ins.Begin(); err == nil {
		if err = ins.Attribute(name, value); err == nil {
			err = ins.End()
		} else {
			ins.Fail()
		}
	}

	return err
}

/*
SetValue replaces the value of an attribute, text, comment or processing
instruction node. The content of a processing instruction is replaced and
its target is kept.
*/
func (c *Collection) SetValue(txn *trans.Txn, id dewey.ID, value string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n, err := c.lockedNode(txn, id)
	if err != nil {
		return err
	} else if !n.Kind.IsLeaf() {
		return &util.NodeError{Type: util.ErrUnsupported,
			Detail: fmt.Sprintf("Cannot set value of %v", n)}
	}

	cur, err := c.index.Open(txn, c.root, bracket.ToKey, n.ID, bracket.Update, n.Hint)
	if cur == nil {
		return util.WrapIndexError(err)
	}
	defer cur.Close()

	updated := *n
	updated.Value = value

	if n.Kind == data.ProcessingInstruction {
		target, _ := node.SplitPI(n.Value)
		updated.Value = node.JoinPI(target, value)
	}

	if err = index.Feed(c.deleteListeners(txn), n); err != nil {
		return util.WrapIndexError(err)
	}

	if err = cur.Update(updated.Record().Encode()); err != nil {
		return util.WrapIndexError(err)
	}

	return util.WrapIndexError(index.Feed(c.insertListeners(txn), &updated))
}

/*
CreateIndexes creates new secondary indexes over all stored documents.
*/
func (c *Collection) CreateIndexes(txn *trans.Txn, defs ...*index.Definition) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	docs, err := c.Documents(txn)
	if err != nil {
		return err
	}

	return c.ctrl.CreateIndexes(txn, &documentsStream{c.nav, txn, docs, nil}, defs...)
}

/*
DropIndex removes a secondary index.
*/
func (c *Collection) DropIndex(txn *trans.Txn, id int) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.ctrl.DropIndex(txn, id)
}

/*
CalculateStatistics recomputes the statistics of a secondary index.
*/
func (c *Collection) CalculateStatistics(txn *trans.Txn, id int) (*index.Statistics, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.ctrl.CalculateStatistics(txn, id)
}

/*
Lookup looks up a value in a secondary index and returns the found nodes.
*/
func (c *Collection) Lookup(txn *trans.Txn, id int, value string) ([]*node.Node, error) {
	entries, err := c.ctrl.Lookup(txn, id, value)
	if err != nil {
		return nil, err
	}

	res := make([]*node.Node, 0, len(entries))

	for _, e := range entries {
		n, err := c.nav.Get(txn, e.Node, bracket.PageInfo{})
		if err != nil {
			return nil, err
		} else if n == nil {
			return nil, &util.NodeError{Type: util.ErrStructural,
				Detail: fmt.Sprintf("Index %v refers to missing node %v", id, e.Node)}
		}
		res = append(res, n)
	}

	return res, nil
}

/*
Close closes the index store of this collection and flushes the storage
manager.
*/
func (c *Collection) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	err := c.opts.IndexStore.Close()

	if ferr := c.sm.Flush(); err == nil {
		err = ferr
	}

	return err
}

/*
lockedNode fetches a node for an update after acquiring an exclusive lock on
its subtree.
*/
func (c *Collection) lockedNode(txn *trans.Txn, id dewey.ID) (*node.Node, error) {
	if err := c.opts.Locks.LockSubtreeExclusive(txn, id, trans.CommitLock); err != nil {
		return nil, &util.NodeError{Type: util.ErrLocked, Detail: fmt.Sprint(id, ": ", err)}
	}

	n, err := c.nav.Get(txn, id, bracket.PageInfo{})
	if err == nil && n == nil {
		err = &util.NodeError{Type: util.ErrNotFound, Detail: id.String()}
	}

	return n, err
}

func (c *Collection) insertListeners(txn *trans.Txn) subtree.ListenerList {
	return append(c.ctrl.Listeners(txn, index.InsertMode), c.listeners...)
}

func (c *Collection) deleteListeners(txn *trans.Txn) subtree.ListenerList {
	return append(c.ctrl.Listeners(txn, index.DeleteMode), c.listeners...)
}

/*
documentsStream streams the nodes of several documents.
*/
type documentsStream struct {
	nav  *node.Navigator
	txn  *trans.Txn
	docs []int
	cur  node.Stream
}

func (s *documentsStream) Next() (*node.Node, error) {
	for {
		if s.cur == nil {
			if len(s.docs) == 0 {
				return nil, nil
			}

			doc, err := s.nav.Document(s.txn, s.docs[0])
			s.docs = s.docs[1:]

			if err != nil {
				return nil, err
			} else if doc == nil {
				continue
			}

			if s.cur, err = s.nav.Subtree(s.txn, doc, true, nil); err != nil {
				s.cur = nil
				return nil, err
			}
		}

		n, err := s.cur.Next()
		if n != nil || err != nil {
			return n, err
		}

		s.cur.Close()
		s.cur = nil
	}
}

func (s *documentsStream) Close() {
	if s.cur != nil {
		s.cur.Close()
		s.cur = nil
	}
	s.docs = nil
}
