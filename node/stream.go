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
	"github.com/krotik/xmlnode/bracket"
)

/*
Stream is a lazy, single pass sequence of nodes. Next returns nil when the
sequence is exhausted. Close releases the underlying cursor and may be
called any number of times.
*/
type Stream interface {
	Next() (*Node, error)
	Close()
}

/*
cursorStream is a stream over an open clustered index cursor. The advance
function moves the cursor to the next candidate and returns false once the
sequence ends.
*/
type cursorStream struct {
	cursor  *bracket.Cursor // Open cursor (nil when closed)
	started bool            // Flag if the first entry was handed out
	advance func(*bracket.Cursor) (bool, error)
	accept  func(*bracket.Cursor) bool // Flag if the current entry belongs to the sequence
	load    func(*bracket.Cursor) (*Node, error)
	filter  func(*Node) bool // Optional node filter
}

/*
Next returns the next node of the sequence.
*/
func (s *cursorStream) Next() (*Node, error) {
	for s.cursor != nil {

		if s.started {
			ok, err := s.advance(s.cursor)

			if err != nil || !ok {
				s.Close()
				return nil, err
			}
		}

		s.started = true

		if !s.accept(s.cursor) {
			s.Close()
			break
		}

		n, err := s.load(s.cursor)
		if err != nil {
			s.Close()
			return nil, err
		}

		if s.filter == nil || s.filter(n) {
			return n, nil
		}
	}

	return nil, nil
}

/*
Close closes the stream.
*/
func (s *cursorStream) Close() {
	if s.cursor != nil {
		s.cursor.Close()
		s.cursor = nil
	}
}

/*
emptyStream is a stream without nodes.
*/
type emptyStream struct{}

func (emptyStream) Next() (*Node, error) { return nil, nil }

func (emptyStream) Close() {}

/*
Collect reads all remaining nodes of a stream and closes it.
*/
func Collect(s Stream) ([]*Node, error) {
	defer s.Close()

	var res []*Node

	for {
		n, err := s.Next()
		if err != nil || n == nil {
			return res, err
		}
		res = append(res, n)
	}
}

/*
errorStream is a stream which failed to open.
*/
type errorStream struct {
	err error
}

func (s *errorStream) Next() (*Node, error) {
	err := s.err
	s.err = nil
	return nil, err
}

func (s *errorStream) Close() {}
