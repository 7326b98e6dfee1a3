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
Package node contains the logical node model, the node materializer and the
navigation engine.

# Locator

The locator turns a (label, record) pair of the clustered index into a
logical node. Records of implicit ancestors are borrowed from the first
following data entry, their node is derived from the distance between the
label level and the path level of the record.

# Navigator

The navigator implements structural traversal (children, siblings, parent,
attributes and subtrees) as sequences of clustered index navigations. Every
node carries the page info of its entry which is used as a hint by the next
navigation step.
*/
package node

import (
	"fmt"
	"strings"

	"github.com/krotik/xmlnode/bracket"
	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/psn"
)

/*
Node is a logical node.
*/
type Node struct {
	ID    dewey.ID         // Label of the node
	Kind  data.Kind        // Kind of the node
	Value string           // Value of the node (leaf kinds only)
	PSN   *psn.Node        // Path of the node (text, comment and PI: path of the parent)
	Hint  bracket.PageInfo // Page of the node entry
}

/*
Name returns the name of this node. Processing instructions return their
target, text, comment and document nodes have no name.
*/
func (n *Node) Name() data.QName {
	switch n.Kind {
	case data.Element, data.Attribute:
		if n.PSN != nil {
			return n.PSN.Name
		}
	case data.ProcessingInstruction:
		target, _ := SplitPI(n.Value)
		return data.NewQName(target)
	}

	return data.QName{}
}

/*
Record returns the physical record of this node.
*/
func (n *Node) Record() *data.Record {
	pcr := data.NoPCR
	if n.PSN != nil {
		pcr = n.PSN.PCR
	}

	switch n.Kind {
	case data.Document:
		return data.NewDocumentRecord()
	case data.Element:
		return data.NewElementRecord(pcr)
	}

	return data.NewRecord(pcr, n.Kind, n.Value)
}

/*
String returns a string representation of this node.
*/
func (n *Node) String() string {
	switch n.Kind {
	case data.Element, data.Attribute:
		if n.Kind == data.Attribute {
			return fmt.Sprintf("%v %v %v=%q", n.ID, n.Kind, n.Name(), n.Value)
		}
		return fmt.Sprintf("%v %v %v", n.ID, n.Kind, n.Name())
	case data.Document:
		return fmt.Sprintf("%v %v", n.ID, n.Kind)
	}

	return fmt.Sprintf("%v %v %q", n.ID, n.Kind, n.Value)
}

/*
JoinPI builds the stored value of a processing instruction.
*/
func JoinPI(target string, content string) string {
	if content == "" {
		return target
	}
	return target + " " + content
}

/*
SplitPI splits the stored value of a processing instruction into target
and content.
*/
func SplitPI(value string) (string, string) {
	if i := strings.IndexByte(value, ' '); i >= 0 {
		return value[:i], value[i+1:]
	}
	return value, ""
}
