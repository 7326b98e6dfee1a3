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
Package psn contains the path synopsis of the node store.

The path synopsis is a schema summary tree. Every distinct path of element and
attribute names (together with the namespace declarations of the elements)
is represented by one path synopsis node which is identified by its path
class reference (PCR). Records in the clustered index only store the PCR of a
node, the name and level of a node are looked up here.

The root element paths are on level 1 and have the parent PCR NoParent.
Attribute paths are one level below their element path. Text, comment and
processing instruction nodes have no path of their own.

Inserts use a bulk sub-manager which caches lookups locally.
*/
package psn

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/trans"
)

/*
NoParent is the parent PCR of root element paths.
*/
const NoParent = data.NoPCR

/*
Path synopsis related errors
*/
var (
	ErrUnknownPCR  = errors.New("Unknown path class reference")
	ErrInvalidKind = errors.New("Node kind has no path")
	ErrClosed      = errors.New("Bulk manager was closed")
)

/*
Node is a path synopsis node.
*/
type Node struct {
	PCR       int             // Path class reference
	Name      data.QName      // Name of the path step
	Kind      data.Kind       // Element or attribute
	Level     int             // Level of the path (root element paths are on level 1)
	Parent    *Node           // Parent path or nil for root element paths
	NsMapping *data.NsMapping // Namespace declarations of the element
}

/*
Path returns the path of this node (e.g. /a/b/@c).
*/
func (n *Node) Path() string {
	var steps []*Node

	for p := n; p != nil; p = p.Parent {
		steps = append(steps, p)
	}

	var buf bytes.Buffer

	for i := len(steps) - 1; i >= 0; i-- {
		buf.WriteString("/")
		if steps[i].Kind == data.Attribute {
			buf.WriteString("@")
		}
		buf.WriteString(steps[i].Name.String())
	}

	return buf.String()
}

/*
Ancestor returns the ancestor of this node which is a given number of
levels above it.
*/
func (n *Node) Ancestor(steps int) *Node {
	p := n
	for i := 0; i < steps && p != nil; i++ {
		p = p.Parent
	}
	return p
}

/*
String returns a string representation of this node.
*/
func (n *Node) String() string {
	return fmt.Sprintf("%v %v (level %v)", n.PCR, n.Path(), n.Level)
}

/*
Lookup contains the lookup operations of a path synopsis.
*/
type Lookup interface {

	/*
		Get returns the node of a given PCR.
	*/
	Get(txn *trans.Txn, pcr int) (*Node, error)

	/*
		GetChild returns the child path of a given parent path. The child path is
		created if it does not exist. Use NoParent for root element paths.
	*/
	GetChild(txn *trans.Txn, parentPCR int, name data.QName, kind data.Kind,
		ns *data.NsMapping) (*Node, error)
}

/*
PathSynopsis is the path synopsis service.
*/
type PathSynopsis interface {
	Lookup

	/*
		SpawnBulkSubManager creates a new bulk sub-manager for a single insert
		operation.
	*/
	SpawnBulkSubManager(txn *trans.Txn) BulkManager
}

/*
BulkManager is a path synopsis view which is used by a single insert
operation. It must be closed once the operation is finished.
*/
type BulkManager interface {
	Lookup

	/*
		Close closes the bulk manager.
	*/
	Close() error
}
