/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package data

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/krotik/common/pools"
)

/*
NoPCR is the path class reference of records which have no path class.
*/
const NoPCR = -1

/*
bufferPool is a pool of byte buffers used for record encoding.
*/
var bufferPool = pools.NewByteBufferPool()

/*
ErrInvalidRecord is returned if a byte sequence cannot be decoded into a record.
*/
var ErrInvalidRecord = errors.New("Invalid record encoding")

/*
Record is a physical record.
*/
type Record struct {
	PCR      int    // Path class reference
	Kind     Kind   // Node kind
	Value    string // Value of the node
	HasValue bool   // Flag if the record carries a value
}

/*
NewRecord creates a new record with a value.
*/
func NewRecord(pcr int, kind Kind, value string) *Record {
	return &Record{pcr, kind, value, true}
}

/*
NewElementRecord creates a new empty element record.
*/
func NewElementRecord(pcr int) *Record {
	return &Record{pcr, Element, "", false}
}

/*
NewDocumentRecord creates a new document record. Document records have no
path class.
*/
func NewDocumentRecord() *Record {
	return &Record{NoPCR, Document, "", false}
}

/*
Encode encodes this record. The encoding is the kind byte followed by the
zig-zag varint PCR and, if present, the varint length of the value and the
value bytes.
*/
func (r *Record) Encode() []byte {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufferPool.Put(buf)
	}()

	var vbuf [binary.MaxVarintLen64]byte

	buf.WriteByte(byte(r.Kind))
	buf.Write(vbuf[:binary.PutVarint(vbuf[:], int64(r.PCR))])

	if r.HasValue {
		buf.Write(vbuf[:binary.PutUvarint(vbuf[:], uint64(len(r.Value)))])
		buf.WriteString(r.Value)
	}

	return append([]byte(nil), buf.Bytes()...)
}

/*
DecodeRecord decodes a record from its byte encoding.
*/
func DecodeRecord(b []byte) (*Record, error) {
	if len(b) < 2 || !Kind(b[0]).IsValid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, b)
	}

	pcr, n := binary.Varint(b[1:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, b)
	}

	r := &Record{int(pcr), Kind(b[0]), "", false}

	if rest := b[1+n:]; len(rest) > 0 {
		l, m := binary.Uvarint(rest)

		if m <= 0 || uint64(len(rest)-m) != l {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, b)
		}

		r.Value = string(rest[m:])
		r.HasValue = true
	}

	return r, nil
}

/*
String returns a string representation of this record.
*/
func (r *Record) String() string {
	if r.HasValue {
		return fmt.Sprintf("%v pcr=%v %q", r.Kind, r.PCR, r.Value)
	}
	return fmt.Sprintf("%v pcr=%v", r.Kind, r.PCR)
}
