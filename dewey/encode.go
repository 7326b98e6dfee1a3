/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package dewey

import (
	"encoding/binary"
	"errors"
	"fmt"
)

/*
ErrInvalidEncoding is returned when a byte sequence is not a valid label encoding.
*/
var ErrInvalidEncoding = errors.New("Invalid DeweyID encoding")

/*
Bytes returns the key encoding of this label. It consists of the document id
(4 bytes big endian) followed by the divisions. Each division is written as
one length byte followed by the minimal big endian representation of the
division. Comparing two encodings byte-wise yields the same order as Compare
and the encoding of an ancestor is a prefix of the encoding of its descendants.
*/
func (id ID) Bytes() []byte {
	ret := make([]byte, 4, 4+len(id.divisions)*3)

	binary.BigEndian.PutUint32(ret, uint32(id.DocID))

	var buf [8]byte

	for _, d := range id.divisions {
		binary.BigEndian.PutUint64(buf[:], uint64(d))

		i := 0
		for i < 8 && buf[i] == 0 {
			i++
		}

		ret = append(ret, byte(8-i))
		ret = append(ret, buf[i:]...)
	}

	return ret
}

/*
FromBytes decodes a label from its key encoding.
*/
func FromBytes(b []byte) (ID, error) {
	if len(b) < 4 {
		return ID{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, b)
	}

	id := ID{int(binary.BigEndian.Uint32(b)), nil}

	for pos := 4; pos < len(b); {
		l := int(b[pos])
		pos++

		if l > 8 || pos+l > len(b) {
			return ID{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, b)
		}

		var d uint64
		for _, c := range b[pos : pos+l] {
			d = d<<8 | uint64(c)
		}

		id.divisions = append(id.divisions, int(d))
		pos += l
	}

	return id, nil
}
