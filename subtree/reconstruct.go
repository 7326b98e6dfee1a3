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

	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/node"
	"github.com/krotik/xmlnode/trans"
	"github.com/krotik/xmlnode/util"
)

/*
DeleteReconstructor rebuilds the tree events of a deleted subtree from the
removed index entries. Placeholder entries are buffered until the next data
entry provides the record which describes them.
*/
type DeleteReconstructor struct {
	txn      *trans.Txn
	locator  *node.Locator
	listener Listener
	pending  stack // Buffered placeholders
	open     stack // Open elements and documents
	started  bool  // Flag if Begin was sent
	count    int   // Number of received entries
}

/*
NewDeleteReconstructor creates a new DeleteReconstructor.
*/
func NewDeleteReconstructor(txn *trans.Txn, locator *node.Locator, listener Listener) *DeleteReconstructor {
	if listener == nil {
		listener = DefaultListener{}
	}
	return &DeleteReconstructor{txn: txn, locator: locator, listener: listener}
}

/*
Count returns the number of entries received so far.
*/
func (dr *DeleteReconstructor) Count() int {
	return dr.count
}

/*
Deleted receives a removed entry. The value is nil for placeholders.
*/
func (dr *DeleteReconstructor) Deleted(key dewey.ID, value []byte, level int) error {
	dr.count++

	if value == nil {
		if n := dr.pending.len(); n > 0 {
			if expected := dr.pending.at(0).level + n; level != expected {
				return &util.NodeError{Type: util.ErrStructural,
					Detail: fmt.Sprintf("Placeholder %v on level %v where level %v was expected",
						key, level, expected)}
			}
		}

		dr.pending.push(frame{id: key, level: level})

		return nil
	}

	rec, err := data.DecodeRecord(value)
	if err != nil {
		return &util.NodeError{Type: util.ErrStructural, Detail: fmt.Sprint(key, ": ", err)}
	}

	if !dr.started {
		dr.started = true

		if err := dr.listener.Begin(); err != nil {
			return err
		}

		if err := dr.listener.BeginFragment(); err != nil {
			return err
		}
	}

	for i := 0; i < dr.pending.len(); i++ {
		p := dr.pending.at(i)

		n, err := dr.locator.FromRecord(dr.txn, p.id, rec)
		if err != nil {
			return err
		}

		if err := dr.start(n); err != nil {
			return err
		}
	}

	dr.pending.reset()

	n, err := dr.locator.FromRecord(dr.txn, key, rec)
	if err != nil {
		return err
	}

	switch n.Kind {
	case data.Document, data.Element:
		return dr.start(n)
	}

	if err := dr.unwind(n.ID.Level()); err != nil {
		return err
	}

	switch n.Kind {
	case data.Attribute:
		return dr.listener.Attribute(n)
	case data.Text:
		return dr.listener.Text(n)
	case data.Comment:
		return dr.listener.Comment(n)
	}

	return dr.listener.ProcessingInstruction(n)
}

/*
Done closes all open elements after the last entry.
*/
func (dr *DeleteReconstructor) Done() error {
	defer func() {
		dr.pending.reset()
		dr.open.reset()
		dr.started = false
	}()

	if dr.pending.len() > 0 {
		return &util.NodeError{Type: util.ErrStructural,
			Detail: fmt.Sprint("Placeholder without data entry: ", dr.pending.at(0).id)}
	}

	if !dr.started {
		return nil
	}

	if err := dr.unwind(0); err != nil {
		return err
	}

	if err := dr.listener.EndFragment(); err != nil {
		return err
	}

	return dr.listener.End()
}

/*
start opens an element or document node.
*/
func (dr *DeleteReconstructor) start(n *node.Node) error {
	level := n.ID.Level()

	if err := dr.unwind(level); err != nil {
		return err
	}

	dr.open.push(frame{id: n.ID, node: n, level: level})

	if n.Kind == data.Document {
		return dr.listener.StartDocument(n)
	}

	return dr.listener.StartElement(n)
}

/*
unwind closes all open nodes on or below a given level.
*/
func (dr *DeleteReconstructor) unwind(level int) error {
	for dr.open.len() > 0 && dr.open.top().level >= level {
		f := dr.open.pop()

		var err error
		if f.node.Kind == data.Document {
			err = dr.listener.EndDocument(f.node)
		} else {
			err = dr.listener.EndElement(f.node)
		}

		if err != nil {
			return err
		}
	}

	return nil
}
