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
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/util"
)

/*
ParseOptions controls how an XML document is turned into events.
*/
type ParseOptions struct {
	Document           bool // Produce document events around the content
	SkipWhitespaceText bool // Drop text nodes which only contain whitespace
}

/*
xmlnsPrefix is the prefix of namespace declarations.
*/
const xmlnsPrefix = "xmlns"

/*
xmlNamespace is the predefined namespace of the xml prefix.
*/
const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

/*
scope is a namespace scope of an open element.
*/
type scope struct {
	name     data.QName        // Name of the element
	mappings map[string]string // Prefixes declared on the element
	order    []string          // Prefixes in declaration order
}

/*
parser drives a handler from a raw XML token stream. Prefixes are resolved by
the parser so that the handler sees the declared prefixes.
*/
type parser struct {
	d       *xml.Decoder
	h       Handler
	opts    ParseOptions
	scopes  []scope
	text    strings.Builder
	hasText bool
}

/*
Parse reads an XML document from a reader and sends its events to a handler.
The handler is failed if the document cannot be read.
*/
func Parse(r io.Reader, h Handler, opts ParseOptions) error {
	p := &parser{d: xml.NewDecoder(r), h: h, opts: opts}

	if err := p.run(); err != nil {
		if ferr := h.Fail(); ferr != nil {
			logger.Error("Handler failure after parse error: ", ferr)
		}
		return err
	}

	return nil
}

func (p *parser) run() error {
	if err := p.h.Begin(); err != nil {
		return err
	}

	if err := p.h.BeginFragment(); err != nil {
		return err
	}

	if p.opts.Document {
		if err := p.h.StartDocument(); err != nil {
			return err
		}
	}

	roots := 0

	for {
		tok, err := p.d.RawToken()

		if err == io.EOF {
			break
		} else if err != nil {
			return &util.NodeError{Type: util.ErrInvalidArgument, Detail: err.Error()}
		}

		if _, ok := tok.(xml.CharData); !ok {
			if err := p.flushText(); err != nil {
				return err
			}
		}

		switch t := tok.(type) {

		case xml.StartElement:
			if len(p.scopes) == 0 {
				if roots++; roots > 1 && p.opts.Document {
					return p.syntaxError("Document has more than one root element")
				}
			}

			err = p.startElement(t)

		case xml.EndElement:
			err = p.endElement(t)

		case xml.CharData:
			p.text.Write(t)
			p.hasText = true

		case xml.Comment:
			err = p.h.Comment(string(t))

		case xml.ProcInst:
			if t.Target != "xml" {
				err = p.h.ProcessingInstruction(t.Target, strings.TrimSpace(string(t.Inst)))
			}
		}

		if err != nil {
			return err
		}
	}

	if err := p.flushText(); err != nil {
		return err
	}

	if len(p.scopes) > 0 {
		return p.syntaxError(fmt.Sprint("Unexpected end of input in element ", p.scopes[len(p.scopes)-1].name))
	}

	if p.opts.Document {
		if roots == 0 {
			return p.syntaxError("Document has no root element")
		}

		if err := p.h.EndDocument(); err != nil {
			return err
		}
	}

	if err := p.h.EndFragment(); err != nil {
		return err
	}

	return p.h.End()
}

func (p *parser) startElement(t xml.StartElement) error {
	s := scope{}

	for _, a := range t.Attr {
		if a.Name.Space == xmlnsPrefix || (a.Name.Space == "" && a.Name.Local == xmlnsPrefix) {
			prefix := a.Name.Local
			if a.Name.Space == "" {
				prefix = ""
			}

			if s.mappings == nil {
				s.mappings = make(map[string]string)
			}

			if _, ok := s.mappings[prefix]; ok {
				return p.syntaxError(fmt.Sprintf("Duplicate namespace declaration for prefix '%v'", prefix))
			}

			s.mappings[prefix] = a.Value
			s.order = append(s.order, prefix)
		}
	}

	// Declarations are visible to the element itself

	p.scopes = append(p.scopes, s)

	name, err := p.resolve(t.Name, true)
	if err != nil {
		return err
	}

	p.scopes[len(p.scopes)-1].name = name

	for _, prefix := range s.order {
		if err := p.h.StartMapping(prefix, s.mappings[prefix]); err != nil {
			return err
		}
	}

	if err := p.h.StartElement(name); err != nil {
		return err
	}

	for _, a := range t.Attr {
		if a.Name.Space == xmlnsPrefix || (a.Name.Space == "" && a.Name.Local == xmlnsPrefix) {
			continue
		}

		an, err := p.resolve(a.Name, false)
		if err != nil {
			return err
		}

		if err := p.h.Attribute(an, a.Value); err != nil {
			return err
		}
	}

	return nil
}

func (p *parser) endElement(t xml.EndElement) error {
	if len(p.scopes) == 0 {
		return p.syntaxError(fmt.Sprint("Unexpected end element ", t.Name.Local))
	}

	s := p.scopes[len(p.scopes)-1]

	if s.name.Prefix != t.Name.Space || s.name.Local != t.Name.Local {
		return p.syntaxError(fmt.Sprintf("Element %v closed by %v", s.name, t.Name.Local))
	}

	if err := p.h.EndElement(s.name); err != nil {
		return err
	}

	for i := len(s.order) - 1; i >= 0; i-- {
		if err := p.h.EndMapping(s.order[i]); err != nil {
			return err
		}
	}

	p.scopes = p.scopes[:len(p.scopes)-1]

	return nil
}

/*
flushText sends the collected character data as a single text event. A
fragment may have text on its top level.
*/
func (p *parser) flushText() error {
	if !p.hasText {
		return nil
	}

	text := p.text.String()

	p.text.Reset()
	p.hasText = false

	if strings.TrimSpace(text) == "" && (p.opts.SkipWhitespaceText || len(p.scopes) == 0) {
		return nil
	} else if len(p.scopes) == 0 && p.opts.Document {
		return p.syntaxError("Text outside of the root element")
	}

	return p.h.Text(text)
}

/*
resolve resolves the prefix of a name. Unprefixed attributes have no
namespace.
*/
func (p *parser) resolve(name xml.Name, element bool) (data.QName, error) {
	q := data.QName{Prefix: name.Space, Local: name.Local}

	if q.Prefix == "" && !element {
		return q, nil
	} else if q.Prefix == "xml" {
		q.URI = xmlNamespace
		return q, nil
	}

	for i := len(p.scopes) - 1; i >= 0; i-- {
		if uri, ok := p.scopes[i].mappings[q.Prefix]; ok {
			q.URI = uri
			return q, nil
		}
	}

	if q.Prefix != "" {
		return q, p.syntaxError(fmt.Sprintf("Undeclared namespace prefix '%v'", q.Prefix))
	}

	return q, nil
}

func (p *parser) syntaxError(detail string) error {
	line, col := p.d.InputPos()
	return &util.NodeError{Type: util.ErrInvalidArgument,
		Detail: fmt.Sprintf("%v (line %v, column %v)", detail, line, col)}
}
