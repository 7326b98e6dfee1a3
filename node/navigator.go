/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package node

import (
	"fmt"

	"github.com/krotik/xmlnode/bracket"
	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/psn"
	"github.com/krotik/xmlnode/trans"
	"github.com/krotik/xmlnode/util"
)

/*
Navigator traverses the nodes of one clustered index tree.
*/
type Navigator struct {
	index   *bracket.PagedIndex // Clustered index
	root    uint64              // Root of the index tree
	locator *Locator            // Node materializer
	locks   trans.LockService   // Lock service
}

/*
NewNavigator creates a new Navigator. A nil lock service disables locking.
*/
func NewNavigator(index *bracket.PagedIndex, root uint64, ps psn.Lookup,
	locks trans.LockService) *Navigator {

	if locks == nil {
		locks = trans.NoLockService{}
	}

	return &Navigator{index, root, NewLocator(ps), locks}
}

/*
Index returns the clustered index of this navigator.
*/
func (nav *Navigator) Index() *bracket.PagedIndex {
	return nav.index
}

/*
Root returns the root of the index tree of this navigator.
*/
func (nav *Navigator) Root() uint64 {
	return nav.root
}

/*
Locator returns the node materializer of this navigator.
*/
func (nav *Navigator) Locator() *Locator {
	return nav.locator
}

/*
Get returns the node with a given label. Returns nil if there is no such node.
*/
func (nav *Navigator) Get(txn *trans.Txn, id dewey.ID, hint bracket.PageInfo) (*Node, error) {
	return nav.step(txn, bracket.ToKey, id, hint, func(k dewey.ID) (dewey.ID, bool) {
		return k, true
	})
}

/*
Document returns the document node of a given document.
*/
func (nav *Navigator) Document(txn *trans.Txn, docID int) (*Node, error) {
	return nav.Get(txn, dewey.DocumentID(docID), bracket.PageInfo{})
}

/*
FirstChild returns the first child of a node.
*/
func (nav *Navigator) FirstChild(txn *trans.Txn, n *Node) (*Node, error) {
	if !hasChildren(n) {
		return nil, nil
	}

	return nav.step(txn, bracket.GreaterOrEqual, n.ID.ChildLowerBound(), n.Hint,
		func(k dewey.ID) (dewey.ID, bool) {
			if !n.ID.IsAncestorOf(k) {
				return k, false
			}
			return k.Ancestor(n.ID.Level() + 1), true
		})
}

/*
LastChild returns the last child of a node.
*/
func (nav *Navigator) LastChild(txn *trans.Txn, n *Node) (*Node, error) {
	if !hasChildren(n) {
		return nil, nil
	}

	return nav.step(txn, bracket.Less, n.ID.SubtreeUpperBound(), n.Hint,
		func(k dewey.ID) (dewey.ID, bool) {
			if !n.ID.IsAncestorOf(k) || k.IsAttributeOf(n.ID) {
				return k, false
			}
			return k.Ancestor(n.ID.Level() + 1), true
		})
}

/*
NextSibling returns the next sibling of a node. Attributes and documents have
no siblings.
*/
func (nav *Navigator) NextSibling(txn *trans.Txn, n *Node) (*Node, error) {
	if n.Kind == data.Document || n.Kind == data.Attribute {
		return nil, nil
	}

	parent := n.ID.Parent()

	return nav.step(txn, bracket.GreaterOrEqual, n.ID.SubtreeUpperBound(), n.Hint,
		func(k dewey.ID) (dewey.ID, bool) {
			if !parent.IsAncestorOf(k) {
				return k, false
			}
			return k.Ancestor(n.ID.Level()), true
		})
}

/*
PreviousSibling returns the previous sibling of a node.
*/
func (nav *Navigator) PreviousSibling(txn *trans.Txn, n *Node) (*Node, error) {
	if n.Kind == data.Document || n.Kind == data.Attribute {
		return nil, nil
	}

	parent := n.ID.Parent()

	return nav.step(txn, bracket.Less, n.ID, n.Hint,
		func(k dewey.ID) (dewey.ID, bool) {
			if !parent.IsAncestorOf(k) || k.IsAttributeOf(parent) {
				return k, false
			}
			return k.Ancestor(n.ID.Level()), true
		})
}

/*
Parent returns the parent of a node. The parent of an attribute is its
owner element.
*/
func (nav *Navigator) Parent(txn *trans.Txn, n *Node) (*Node, error) {
	if n.Kind == data.Document {
		return nil, nil
	}

	return nav.Get(txn, n.ID.Parent(), n.Hint)
}

/*
FirstAttribute returns the first attribute of an element.
*/
func (nav *Navigator) FirstAttribute(txn *trans.Txn, n *Node) (*Node, error) {
	if n.Kind != data.Element {
		return nil, nil
	}

	return nav.step(txn, bracket.Greater, n.ID.AttributeRoot(), n.Hint,
		func(k dewey.ID) (dewey.ID, bool) {
			return k, k.IsAttributeOf(n.ID)
		})
}

/*
NextAttribute returns the attribute following a given attribute.
*/
func (nav *Navigator) NextAttribute(txn *trans.Txn, n *Node) (*Node, error) {
	if n.Kind != data.Attribute {
		return nil, nil
	}

	owner := n.ID.AttributeOwner()

	return nav.step(txn, bracket.Greater, n.ID, n.Hint,
		func(k dewey.ID) (dewey.ID, bool) {
			return k, k.IsAttributeOf(owner)
		})
}

/*
Attribute returns the attribute of an element with a given name.
*/
func (nav *Navigator) Attribute(txn *trans.Txn, n *Node, name data.QName) (*Node, error) {
	s := nav.Attributes(txn, n)
	defer s.Close()

	for {
		a, err := s.Next()
		if a == nil || err != nil {
			return nil, err
		}

		if an := a.Name(); an.Local == name.Local && an.URI == name.URI {
			return a, nil
		}
	}
}

/*
Attributes returns all attributes of an element.
*/
func (nav *Navigator) Attributes(txn *trans.Txn, n *Node) Stream {
	if n.Kind != data.Element {
		return emptyStream{}
	}

	return nav.stream(txn, bracket.Greater, n.ID.AttributeRoot(), n.Hint,
		func(c *bracket.Cursor) (bool, error) {
			return c.Navigate(bracket.Next)
		},
		func(c *bracket.Cursor) bool {
			return c.Key().IsAttributeOf(n.ID)
		}, nil)
}

/*
Children returns all children of a node.
*/
func (nav *Navigator) Children(txn *trans.Txn, n *Node) Stream {
	if !hasChildren(n) {
		return emptyStream{}
	}

	level := n.ID.Level() + 1

	return nav.stream(txn, bracket.GreaterOrEqual, n.ID.ChildLowerBound(), n.Hint,
		func(c *bracket.Cursor) (bool, error) {
			return c.Seek(bracket.GreaterOrEqual, c.Key().SubtreeUpperBound())
		},
		func(c *bracket.Cursor) bool {
			k := c.Key()
			return n.ID.IsAncestorOf(k) && k.Level() == level
		}, nil)
}

/*
Subtree returns all nodes of the subtree of a node in document order. The
subtree root is only included if self is set. An optional filter selects
the returned nodes. Under a non-zero lock depth a shared lock is acquired on
the subtree root before the scan.
*/
func (nav *Navigator) Subtree(txn *trans.Txn, n *Node, self bool,
	filter func(*Node) bool) (Stream, error) {

	if txn != nil && txn.LockDepth > 0 {
		if err := nav.locks.LockSubtreeShared(txn, n.ID, trans.ShortLock); err != nil {
			return nil, &util.NodeError{Type: util.ErrLocked, Detail: fmt.Sprint(n.ID, ": ", err)}
		}
	}

	c, err := nav.index.Open(txn, nav.root, bracket.ToKey, n.ID, bracket.Read, n.Hint)
	if c == nil {
		return emptyStream{}, util.WrapIndexError(err)
	}

	if !self {
		ok, err := c.Navigate(bracket.Next)
		if err != nil || !ok {
			c.Close()
			return emptyStream{}, util.WrapIndexError(err)
		}
	}

	return &cursorStream{
		cursor: c,
		advance: func(c *bracket.Cursor) (bool, error) {
			return c.Navigate(bracket.Next)
		},
		accept: func(c *bracket.Cursor) bool {
			return n.ID.IsPrefixOf(c.Key())
		},
		load: func(c *bracket.Cursor) (*Node, error) {
			return nav.load(txn, c)
		},
		filter: filter,
	}, nil
}

/*
step performs a single navigation step. The accept function checks the key
the cursor landed on and returns the label of the node to materialize.
*/
func (nav *Navigator) step(txn *trans.Txn, mode bracket.NavigationMode, key dewey.ID,
	hint bracket.PageInfo, accept func(dewey.ID) (dewey.ID, bool)) (*Node, error) {

	c, err := nav.index.Open(txn, nav.root, mode, key, bracket.Read, hint)
	if c == nil {
		return nil, util.WrapIndexError(err)
	}
	defer c.Close()

	k := c.Key()

	target, ok := accept(k)
	if !ok {
		return nil, nil
	}

	if !target.Equal(k) {
		found, err := c.Seek(bracket.ToKey, target)

		if err != nil {
			return nil, util.WrapIndexError(err)
		} else if !found {
			return nil, &util.NodeError{Type: util.ErrStructural,
				Detail: fmt.Sprintf("No entry for label %v above %v", target, k)}
		}
	}

	return nav.load(txn, c)
}

/*
stream opens a cursor stream.
*/
func (nav *Navigator) stream(txn *trans.Txn, mode bracket.NavigationMode, key dewey.ID,
	hint bracket.PageInfo, advance func(*bracket.Cursor) (bool, error),
	accept func(*bracket.Cursor) bool, filter func(*Node) bool) Stream {

	c, err := nav.index.Open(txn, nav.root, mode, key, bracket.Read, hint)
	if c == nil {
		if err != nil {
			return &errorStream{util.WrapIndexError(err)}
		}
		return emptyStream{}
	}

	return &cursorStream{
		cursor:  c,
		advance: advance,
		accept:  accept,
		load: func(c *bracket.Cursor) (*Node, error) {
			return nav.load(txn, c)
		},
		filter: filter,
	}
}

/*
load materializes the node at the current cursor position.
*/
func (nav *Navigator) load(txn *trans.Txn, c *bracket.Cursor) (*Node, error) {
	var n *Node

	id := c.Key()

	if id.IsDocument() {
		n = &Node{ID: id, Kind: data.Document}

	} else {
		v, err := c.Value()
		if err != nil {
			return nil, util.WrapIndexError(err)
		}

		if n, err = nav.locator.FromBytes(txn, id, v); err != nil {
			return nil, err
		}
	}

	n.Hint = c.PageInfo()

	return n, nil
}

/*
hasChildren checks if a node kind can have children.
*/
func hasChildren(n *Node) bool {
	return n.Kind == data.Document || n.Kind == data.Element
}
