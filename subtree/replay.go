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
	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/node"
	"github.com/krotik/xmlnode/trans"
)

/*
Replay sends the construction events of a stored subtree to a handler. The
handler is failed if the subtree cannot be read.
*/
func Replay(txn *trans.Txn, nav *node.Navigator, root *node.Node, h Handler) error {
	if err := replay(txn, nav, root, h); err != nil {
		if ferr := h.Fail(); ferr != nil {
			logger.Error("Handler failure after replay error: ", ferr)
		}
		return err
	}

	return nil
}

func replay(txn *trans.Txn, nav *node.Navigator, root *node.Node, h Handler) error {
	var open stack

	s, err := nav.Subtree(txn, root, true, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := h.Begin(); err != nil {
		return err
	}

	if err := h.BeginFragment(); err != nil {
		return err
	}

	for {
		n, err := s.Next()
		if err != nil {
			return err
		} else if n == nil {
			break
		}

		level := n.ID.Level()

		if err := replayUnwind(&open, level, h); err != nil {
			return err
		}

		switch n.Kind {
		case data.Document:
			open.push(frame{id: n.ID, node: n, level: level})
			err = h.StartDocument()

		case data.Element:
			var prefixes []string

			if ns := n.PSN.NsMapping; ns != nil {
				prefixes = ns.Prefixes()

				for _, p := range prefixes {
					uri, _ := ns.Resolve(p)
					if err = h.StartMapping(p, uri); err != nil {
						return err
					}
				}
			}

			open.push(frame{id: n.ID, node: n, level: level, mappings: prefixes})
			err = h.StartElement(n.Name())

		case data.Attribute:
			err = h.Attribute(n.Name(), n.Value)

		case data.Text:
			err = h.Text(n.Value)

		case data.Comment:
			err = h.Comment(n.Value)

		case data.ProcessingInstruction:
			target, content := node.SplitPI(n.Value)
			err = h.ProcessingInstruction(target, content)
		}

		if err != nil {
			return err
		}
	}

	if err := replayUnwind(&open, 0, h); err != nil {
		return err
	}

	if err := h.EndFragment(); err != nil {
		return err
	}

	return h.End()
}

/*
replayUnwind ends all open nodes on or below a given level.
*/
func replayUnwind(open *stack, level int, h Handler) error {
	for open.len() > 0 && open.top().level >= level {
		f := open.pop()

		if f.node.Kind == data.Document {
			if err := h.EndDocument(); err != nil {
				return err
			}
			continue
		}

		if err := h.EndElement(f.node.Name()); err != nil {
			return err
		}

		for i := len(f.mappings) - 1; i >= 0; i-- {
			if err := h.EndMapping(f.mappings[i]); err != nil {
				return err
			}
		}
	}

	return nil
}
