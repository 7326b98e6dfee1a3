/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/node"
	"github.com/krotik/xmlnode/psn"
	"github.com/krotik/xmlnode/trans"
	"github.com/krotik/xmlnode/util"
)

/*
Entry is a decoded index entry.
*/
type Entry struct {
	Node  dewey.ID // Indexed node
	Name  string   // Element name (name index)
	Path  string   // Path class (path and CAS index)
	Value string   // Typed value (CAS index)

	psn *psn.Node
	cas bool
}

/*
String returns a string representation of this entry.
*/
func (e *Entry) String() string {
	switch {
	case e.Name != "":
		return fmt.Sprintf("%v %v", e.Name, e.Node)
	case e.cas:
		return fmt.Sprintf("%v %q %v", e.Path, e.Value, e.Node)
	}
	return fmt.Sprintf("%v %v", e.Path, e.Node)
}

/*
services are the collaborators of an indexer.
*/
type services struct {
	dict util.Dictionary
	ps   psn.Lookup
}

/*
indexer is the filter and encoder of an index type. The key of an entry is
the prefix returned by encode followed by the label of the node.
*/
type indexer interface {

	/*
		filter checks if a node belongs into the index.
	*/
	filter(n *node.Node) bool

	/*
		encode builds the key prefix of a node.
	*/
	encode(txn *trans.Txn, n *node.Node) ([]byte, error)

	/*
		split separates an index key into prefix and label.
	*/
	split(key []byte) ([]byte, dewey.ID, error)

	/*
		describe decodes a key prefix into an entry.
	*/
	describe(txn *trans.Txn, prefix []byte, e *Entry) error

	/*
		lookup returns the key prefix for a looked up value (nil for a full
		scan) and a function which checks the decoded entries.
	*/
	lookup(txn *trans.Txn, value string) ([]byte, func(*Entry) bool, error)
}

/*
newIndexer creates the indexer of a definition.
*/
func newIndexer(def *Definition, s services) (indexer, error) {
	switch def.Type {

	case NameIndex:
		globs, err := compileGlobs(def.Includes)
		if err != nil {
			return nil, err
		}
		return &nameIndexer{s, globs}, nil

	case PathIndex:
		paths, err := compilePaths(def.Includes)
		if err != nil {
			return nil, err
		}
		return &pathIndexer{s, paths}, nil

	case CASIndex:
		paths, err := compilePaths(def.Includes)
		if err != nil {
			return nil, err
		}

		ct := def.contentType()
		if ct != StringContent && ct != IntegerContent && ct != DoubleContent {
			return nil, &util.NodeError{Type: util.ErrInvalidArgument,
				Detail: fmt.Sprint("Unknown content type: ", ct)}
		}

		return &casIndexer{pathIndexer{s, paths}, ct}, nil
	}

	return nil, &util.NodeError{Type: util.ErrUnsupported,
		Detail: fmt.Sprintf("Index type %v of index %v", def.Type, def.ID)}
}

func putInt32(b []byte, v int) []byte {
	return binary.BigEndian.AppendUint32(b, uint32(v))
}

func labelAfter(key []byte, n int) ([]byte, dewey.ID, error) {
	if len(key) < n {
		return nil, dewey.ID{}, &util.NodeError{Type: util.ErrStructural,
			Detail: fmt.Sprint("Index key too short: ", key)}
	}

	id, err := dewey.FromBytes(key[n:])
	if err != nil {
		return nil, id, &util.NodeError{Type: util.ErrStructural, Detail: err.Error()}
	}

	return key[:n], id, nil
}

/*
nameIndexer indexes elements by name. Keys start with the vocabulary id of
the element name.
*/
type nameIndexer struct {
	services
	globs []*regexp.Regexp
}

func (ix *nameIndexer) filter(n *node.Node) bool {
	if n.Kind != data.Element {
		return false
	} else if len(ix.globs) == 0 {
		return true
	}

	name := n.Name().String()

	for _, re := range ix.globs {
		if re.MatchString(name) {
			return true
		}
	}

	return false
}

func (ix *nameIndexer) encode(txn *trans.Txn, n *node.Node) ([]byte, error) {
	voc, err := ix.dict.Translate(txn, n.Name().String())
	if err != nil {
		return nil, err
	}
	return putInt32(nil, voc), nil
}

func (ix *nameIndexer) split(key []byte) ([]byte, dewey.ID, error) {
	return labelAfter(key, 4)
}

func (ix *nameIndexer) describe(txn *trans.Txn, prefix []byte, e *Entry) error {
	name, err := ix.dict.Resolve(txn, int(binary.BigEndian.Uint32(prefix)))
	e.Name = name
	return err
}

func (ix *nameIndexer) lookup(txn *trans.Txn, value string) ([]byte, func(*Entry) bool, error) {
	voc, err := ix.dict.Translate(txn, value)
	if err != nil {
		return nil, nil, err
	}
	return putInt32(nil, voc), func(*Entry) bool { return true }, nil
}

/*
pathIndexer indexes elements and attributes by path class. Keys start with
the PCR of the node.
*/
type pathIndexer struct {
	services
	paths []*PathPattern
}

func (ix *pathIndexer) filter(n *node.Node) bool {
	return (n.Kind == data.Element || n.Kind == data.Attribute) && n.PSN != nil &&
		matchAnyPath(ix.paths, n.PSN)
}

func (ix *pathIndexer) encode(txn *trans.Txn, n *node.Node) ([]byte, error) {
	return putInt32(nil, n.PSN.PCR), nil
}

func (ix *pathIndexer) split(key []byte) ([]byte, dewey.ID, error) {
	return labelAfter(key, 4)
}

func (ix *pathIndexer) describe(txn *trans.Txn, prefix []byte, e *Entry) error {
	pn, err := ix.ps.Get(txn, int(binary.BigEndian.Uint32(prefix)))
	if err == nil {
		e.Path = pn.Path()
		e.psn = pn
	}
	return err
}

func (ix *pathIndexer) lookup(txn *trans.Txn, value string) ([]byte, func(*Entry) bool, error) {
	pp, err := ParsePathPattern(value)
	if err != nil {
		return nil, nil, err
	}

	return nil, func(e *Entry) bool {
		return e.psn != nil && pp.Match(e.psn)
	}, nil
}

/*
casIndexer indexes attributes and text nodes by path class and typed value.
The path class of a text node is the path of its parent element. Values
which cannot be converted to the content type are not indexed.
*/
type casIndexer struct {
	pathIndexer
	contentType ContentType
}

func (ix *casIndexer) filter(n *node.Node) bool {
	if (n.Kind != data.Attribute && n.Kind != data.Text) || n.PSN == nil ||
		!matchAnyPath(ix.paths, n.PSN) {
		return false
	}

	_, err := encodeValue(ix.contentType, n.Value)

	return err == nil
}

func (ix *casIndexer) encode(txn *trans.Txn, n *node.Node) ([]byte, error) {
	v, err := encodeValue(ix.contentType, n.Value)
	if err != nil {
		return nil, err
	}
	return append(putInt32(nil, n.PSN.PCR), v...), nil
}

func (ix *casIndexer) split(key []byte) ([]byte, dewey.ID, error) {
	l := 8
	if ix.contentType == StringContent {
		if l = bytes.IndexByte(key[min(4, len(key)):], 0) + 1; l == 0 {
			return nil, dewey.ID{}, &util.NodeError{Type: util.ErrStructural,
				Detail: fmt.Sprint("Unterminated string value in index key: ", key)}
		}
	}
	return labelAfter(key, 4+l)
}

func (ix *casIndexer) describe(txn *trans.Txn, prefix []byte, e *Entry) error {
	if err := ix.pathIndexer.describe(txn, prefix[:4], e); err != nil {
		return err
	}
	e.Value = decodeValue(ix.contentType, prefix[4:])
	e.cas = true
	return nil
}

func (ix *casIndexer) lookup(txn *trans.Txn, value string) ([]byte, func(*Entry) bool, error) {
	v, err := encodeValue(ix.contentType, value)
	if err != nil {
		return nil, nil, err
	}

	canonical := decodeValue(ix.contentType, v)

	return nil, func(e *Entry) bool { return e.Value == canonical }, nil
}

/*
encodeValue encodes a value so that the byte order of the encoding is the
order of the typed values.
*/
func encodeValue(ct ContentType, value string) ([]byte, error) {
	switch ct {

	case IntegerContent:
		i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.AppendUint64(nil, uint64(i)^(1<<63)), nil

	case DoubleContent:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, err
		}

		bits := math.Float64bits(f)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}

		return binary.BigEndian.AppendUint64(nil, bits), nil
	}

	if strings.IndexByte(value, 0) >= 0 {
		return nil, fmt.Errorf("String value contains a zero byte")
	}

	return append([]byte(value), 0), nil
}

/*
decodeValue decodes an encoded value into its canonical string form.
*/
func decodeValue(ct ContentType, b []byte) string {
	switch ct {

	case IntegerContent:
		return strconv.FormatInt(int64(binary.BigEndian.Uint64(b)^(1<<63)), 10)

	case DoubleContent:
		bits := binary.BigEndian.Uint64(b)
		if bits&(1<<63) != 0 {
			bits &^= 1 << 63
		} else {
			bits = ^bits
		}
		return strconv.FormatFloat(math.Float64frombits(bits), 'g', -1, 64)
	}

	return string(bytes.TrimSuffix(b, []byte{0}))
}
