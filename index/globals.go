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
Package index contains the secondary indexes of the node store.

Three index types exist. A name index maps element names to nodes, a path
index maps path classes to nodes and a content-and-structure (CAS) index maps
typed attribute and text values of selected paths to nodes. Every type
supplies a filter which selects the nodes it is interested in and an encoder
which builds the index key of a node.

Index entries are kept in an EntryStore. The Controller manages index
definitions, builds new indexes and supplies the listeners which keep the
indexes up to date while subtrees are inserted or deleted.
*/
package index

import (
	"fmt"
	"strings"

	"github.com/krotik/common/logutil"

	"github.com/krotik/xmlnode/util"
)

/*
logger is the logger of this package.
*/
var logger = logutil.GetLogger("xmlnode.index")

/*
Type is the type of an index.
*/
type Type int

/*
Known index types
*/
const (
	NameIndex Type = iota + 1
	PathIndex
	CASIndex
)

var typeNames = map[Type]string{
	NameIndex: "name",
	PathIndex: "path",
	CASIndex:  "cas",
}

/*
String returns the name of an index type.
*/
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", int(t))
}

/*
MarshalText returns the name of an index type.
*/
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

/*
UnmarshalText parses the name of an index type.
*/
func (t *Type) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))

	for k, v := range typeNames {
		if v == name {
			*t = k
			return nil
		}
	}

	return &util.NodeError{Type: util.ErrUnsupported, Detail: fmt.Sprint("Unknown index type: ", name)}
}

/*
ContentType is the value type of a CAS index.
*/
type ContentType string

/*
Known content types
*/
const (
	StringContent  ContentType = "string"
	IntegerContent ContentType = "integer"
	DoubleContent  ContentType = "double"
)

/*
Mode selects if a listener adds or removes index entries.
*/
type Mode int

/*
Listener modes
*/
const (
	InsertMode Mode = iota
	DeleteMode
)

/*
MainDBEntryPrefix is the prefix for index metadata entries.
*/
const MainDBEntryPrefix = "\x02"

/*
MainDBIndex is the key prefix for index definitions. The index id is
appended.
*/
const MainDBIndex = MainDBEntryPrefix + "idx:"
