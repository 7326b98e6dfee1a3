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
Package data contains the basic data types of stored nodes.

# Kind

Every stored node has one of six kinds. Only leaf kinds (attribute, text,
comment and processing instruction) carry a value.

# Record

A record is what is physically stored under a label in the clustered index.
It holds the path class reference (PCR) of the node, its kind and an
optional value.
*/
package data

import "fmt"

/*
Kind is the kind of a node.
*/
type Kind byte

/*
Node kinds
*/
const (
	Document Kind = iota + 1
	Element
	Attribute
	Text
	Comment
	ProcessingInstruction
)

var kindNames = map[Kind]string{
	Document:              "document",
	Element:               "element",
	Attribute:             "attribute",
	Text:                  "text",
	Comment:               "comment",
	ProcessingInstruction: "processing-instruction",
}

/*
String returns a string representation of a node kind.
*/
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

/*
IsValid checks if this is a known node kind.
*/
func (k Kind) IsValid() bool {
	_, ok := kindNames[k]
	return ok
}

/*
IsLeaf checks if nodes of this kind carry a value and cannot have children.
*/
func (k Kind) IsLeaf() bool {
	return k == Attribute || k == Text || k == Comment || k == ProcessingInstruction
}
