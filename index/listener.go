/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package index

import (
	"fmt"

	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/node"
	"github.com/krotik/xmlnode/subtree"
	"github.com/krotik/xmlnode/trans"
	"github.com/krotik/xmlnode/util"
)

/*
Listener maintains the entries of a single index. It receives the tree
events of inserted or deleted nodes and writes or removes the derived
entries.
*/
type Listener struct {
	subtree.DefaultListener
	txn   *trans.Txn
	def   *Definition
	ix    indexer
	store EntryStore
	mode  Mode
	count int
}

/*
Count returns the number of entries this listener has written or removed.
*/
func (l *Listener) Count() int {
	return l.count
}

/*
StartElement handles an element.
*/
func (l *Listener) StartElement(n *node.Node) error {
	return l.handle(n)
}

/*
Attribute handles an attribute.
*/
func (l *Listener) Attribute(n *node.Node) error {
	return l.handle(n)
}

/*
Text handles a text node.
*/
func (l *Listener) Text(n *node.Node) error {
	return l.handle(n)
}

func (l *Listener) handle(n *node.Node) error {
	if !l.ix.filter(n) {
		return nil
	}

	prefix, err := l.ix.encode(l.txn, n)
	if err != nil {
		return err
	}

	key := append(prefix, n.ID.Bytes()...)

	if l.mode == DeleteMode {
		err = l.store.Delete(l.def.ID, key)

	} else {

		if l.def.Unique {
			var existing bool

			if err = l.store.Scan(l.def.ID, prefix, func([]byte, []byte) bool {
				existing = true
				return false
			}); err == nil && existing {
				return &util.NodeError{Type: util.ErrInvalidArgument,
					Detail: fmt.Sprintf("Unique index %v already contains an entry for %v", l.def.ID, n)}
			}
		}

		if err == nil {
			err = l.store.Put(l.def.ID, key, nil)
		}
	}

	if err == nil {
		l.count++
	}

	return err
}

/*
Feed presents a single node to a listener.
*/
func Feed(l subtree.Listener, n *node.Node) error {
	switch n.Kind {
	case data.Document:
		return l.StartDocument(n)
	case data.Element:
		return l.StartElement(n)
	case data.Attribute:
		return l.Attribute(n)
	case data.Text:
		return l.Text(n)
	case data.Comment:
		return l.Comment(n)
	case data.ProcessingInstruction:
		return l.ProcessingInstruction(n)
	}

	return &util.NodeError{Type: util.ErrStructural, Detail: fmt.Sprint("Unknown node kind: ", n.Kind)}
}
