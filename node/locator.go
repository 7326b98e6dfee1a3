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

	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/psn"
	"github.com/krotik/xmlnode/trans"
	"github.com/krotik/xmlnode/util"
)

/*
Locator materializes logical nodes from physical records.
*/
type Locator struct {
	ps psn.Lookup // Path synopsis lookup
}

/*
NewLocator creates a new Locator.
*/
func NewLocator(ps psn.Lookup) *Locator {
	return &Locator{ps}
}

/*
FromBytes materializes a node from a label and an encoded record.
*/
func (l *Locator) FromBytes(txn *trans.Txn, id dewey.ID, value []byte) (*Node, error) {
	if id.IsDocument() {
		return &Node{ID: id, Kind: data.Document}, nil
	}

	rec, err := data.DecodeRecord(value)
	if err != nil {
		return nil, &util.NodeError{Type: util.ErrStructural, Detail: fmt.Sprint(id, ": ", err)}
	}

	return l.FromRecord(txn, id, rec)
}

/*
FromRecord materializes a node from a label and a record. The record may be
the record of a descendant if the label belongs to an implicit ancestor.
*/
func (l *Locator) FromRecord(txn *trans.Txn, id dewey.ID, rec *data.Record) (*Node, error) {
	if id.IsDocument() {
		return &Node{ID: id, Kind: data.Document}, nil
	}

	if rec.PCR == data.NoPCR {
		if rec.Kind == data.Element || rec.Kind == data.Attribute || rec.Kind == data.Document {
			return nil, &util.NodeError{Type: util.ErrStructural,
				Detail: fmt.Sprintf("Label %v has a %v record without path class", id, rec.Kind)}
		}
		return &Node{ID: id, Kind: rec.Kind, Value: rec.Value}, nil
	}

	pn, err := l.ps.Get(txn, rec.PCR)
	if err != nil {
		return nil, util.WrapIndexError(err)
	}

	level := id.Level()
	distance := level - pn.Level

	switch {
	case distance == 1 && rec.Kind != data.Element:
		return &Node{ID: id, Kind: rec.Kind, Value: rec.Value, PSN: pn}, nil

	case distance <= 0:

		// Implicit ancestor or explicit element record

		if ancestor := pn.Ancestor(-distance); ancestor != nil && ancestor.Kind == data.Element {
			return &Node{ID: id, Kind: data.Element, PSN: ancestor}, nil
		}
	}

	return nil, &util.NodeError{Type: util.ErrStructural,
		Detail: fmt.Sprintf("Label %v on level %v has %v record with PCR %v on path level %v",
			id, level, rec.Kind, rec.PCR, pn.Level)}
}
