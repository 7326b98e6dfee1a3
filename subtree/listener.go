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
Package subtree contains the subtree materialization engine.

Inserting a subtree turns a stream of construction events into the minimal
set of clustered index entries. An opened element is held pending until it
either gains content, in which case it is written as a placeholder together
with its first leaf, or ends empty, in which case an empty element record is
written for it.

Deleting a subtree reverses this. The DeleteReconstructor receives the flat
list of removed entries and rebuilds the balanced begin and end events which
the inserter emitted. Both sides notify the same Listener interface so that
secondary index maintenance works the same way for inserts and deletes.
*/
package subtree

import (
	"github.com/krotik/common/errorutil"
	"github.com/krotik/common/logutil"

	"github.com/krotik/xmlnode/node"
)

/*
logger is the logger of this package.
*/
var logger = logutil.GetLogger("xmlnode.subtree")

/*
Listener receives the tree events of physically stored or removed nodes.
*/
type Listener interface {
	Begin() error
	End() error
	BeginFragment() error
	EndFragment() error
	StartDocument(n *node.Node) error
	EndDocument(n *node.Node) error
	StartElement(n *node.Node) error
	EndElement(n *node.Node) error
	Attribute(n *node.Node) error
	Text(n *node.Node) error
	Comment(n *node.Node) error
	ProcessingInstruction(n *node.Node) error
	Fail() error
}

/*
DefaultListener is a listener which ignores all events. It can be embedded
by listeners which are only interested in some events.
*/
type DefaultListener struct {
}

func (DefaultListener) Begin() error                             { return nil }
func (DefaultListener) End() error                               { return nil }
func (DefaultListener) BeginFragment() error                     { return nil }
func (DefaultListener) EndFragment() error                       { return nil }
func (DefaultListener) StartDocument(n *node.Node) error         { return nil }
func (DefaultListener) EndDocument(n *node.Node) error           { return nil }
func (DefaultListener) StartElement(n *node.Node) error          { return nil }
func (DefaultListener) EndElement(n *node.Node) error            { return nil }
func (DefaultListener) Attribute(n *node.Node) error             { return nil }
func (DefaultListener) Text(n *node.Node) error                  { return nil }
func (DefaultListener) Comment(n *node.Node) error               { return nil }
func (DefaultListener) ProcessingInstruction(n *node.Node) error { return nil }
func (DefaultListener) Fail() error                              { return nil }

/*
ListenerList forwards all events to a list of listeners. Every listener
receives every event, errors of all listeners are collected.
*/
type ListenerList []Listener

func (ll ListenerList) Begin() error {
	return ll.each(func(l Listener) error { return l.Begin() })
}

func (ll ListenerList) End() error {
	return ll.each(func(l Listener) error { return l.End() })
}

func (ll ListenerList) BeginFragment() error {
	return ll.each(func(l Listener) error { return l.BeginFragment() })
}

func (ll ListenerList) EndFragment() error {
	return ll.each(func(l Listener) error { return l.EndFragment() })
}

func (ll ListenerList) StartDocument(n *node.Node) error {
	return ll.each(func(l Listener) error { return l.StartDocument(n) })
}

func (ll ListenerList) EndDocument(n *node.Node) error {
	return ll.each(func(l Listener) error { return l.EndDocument(n) })
}

func (ll ListenerList) StartElement(n *node.Node) error {
	return ll.each(func(l Listener) error { return l.StartElement(n) })
}

func (ll ListenerList) EndElement(n *node.Node) error {
	return ll.each(func(l Listener) error { return l.EndElement(n) })
}

func (ll ListenerList) Attribute(n *node.Node) error {
	return ll.each(func(l Listener) error { return l.Attribute(n) })
}

func (ll ListenerList) Text(n *node.Node) error {
	return ll.each(func(l Listener) error { return l.Text(n) })
}

func (ll ListenerList) Comment(n *node.Node) error {
	return ll.each(func(l Listener) error { return l.Comment(n) })
}

func (ll ListenerList) ProcessingInstruction(n *node.Node) error {
	return ll.each(func(l Listener) error { return l.ProcessingInstruction(n) })
}

func (ll ListenerList) Fail() error {
	return ll.each(func(l Listener) error { return l.Fail() })
}

func (ll ListenerList) each(f func(l Listener) error) error {
	var first error

	ce := errorutil.NewCompositeError()

	for _, l := range ll {
		if err := f(l); err != nil {
			if first == nil {
				first = err
			}
			ce.Add(err)
		}
	}

	if len(ce.Errors) > 1 {
		return ce
	}

	return first
}
