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
	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/node"
)

/*
initialStackCapacity is the initial capacity of a frame stack.
*/
const initialStackCapacity = 16

/*
frame is an entry of a frame stack.
*/
type frame struct {
	id        dewey.ID   // Label of the node
	node      *node.Node // Node (nil for placeholders and base frames)
	level     int        // Level of the node
	nextChild dewey.ID   // Label of the next child
	nextAttr  dewey.ID   // Label of the next attribute
	content   bool       // Flag if the node has children
	mappings  []string   // Namespace prefixes declared on the node
}

/*
stack is a growable array of frames. The array grows by half of its size
if it is full.
*/
type stack struct {
	frames []frame
}

func (s *stack) push(f frame) {
	if len(s.frames) == cap(s.frames) {
		c := cap(s.frames) + cap(s.frames)/2
		if c < initialStackCapacity {
			c = initialStackCapacity
		}

		nf := make([]frame, len(s.frames), c)
		copy(nf, s.frames)
		s.frames = nf
	}

	s.frames = append(s.frames, f)
}

func (s *stack) pop() frame {
	f := s.frames[len(s.frames)-1]
	s.frames[len(s.frames)-1] = frame{}
	s.frames = s.frames[:len(s.frames)-1]

	return f
}

/*
top returns the top frame. The returned pointer is only valid until the next
push.
*/
func (s *stack) top() *frame {
	return &s.frames[len(s.frames)-1]
}

func (s *stack) at(i int) *frame {
	return &s.frames[i]
}

func (s *stack) len() int {
	return len(s.frames)
}

func (s *stack) reset() {
	for i := range s.frames {
		s.frames[i] = frame{}
	}
	s.frames = s.frames[:0]
}
