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
	"fmt"
	"sort"
)

/*
QName is a qualified node name.
*/
type QName struct {
	URI    string // Namespace URI
	Prefix string // Namespace prefix
	Local  string // Local part of the name
}

/*
NewQName creates a new name without namespace.
*/
func NewQName(local string) QName {
	return QName{"", "", local}
}

/*
IsZero returns if this is the zero name.
*/
func (q QName) IsZero() bool {
	return q.Local == ""
}

/*
String returns the prefixed form of the name.
*/
func (q QName) String() string {
	if q.Prefix != "" {
		return fmt.Sprint(q.Prefix, ":", q.Local)
	}
	return q.Local
}

/*
NsMapping is an immutable set of namespace declarations (prefix to URI)
which are attached to an element.
*/
type NsMapping struct {
	prefixes []string
	uris     map[string]string
}

/*
NewNsMapping creates a new namespace mapping from a map of prefixes to URIs.
The empty prefix is the default namespace.
*/
func NewNsMapping(decls map[string]string) *NsMapping {
	if len(decls) == 0 {
		return nil
	}

	ns := &NsMapping{make([]string, 0, len(decls)), make(map[string]string, len(decls))}

	for p, u := range decls {
		ns.prefixes = append(ns.prefixes, p)
		ns.uris[p] = u
	}

	sort.Strings(ns.prefixes)

	return ns
}

/*
Prefixes returns all declared prefixes in sorted order.
*/
func (ns *NsMapping) Prefixes() []string {
	if ns == nil {
		return nil
	}
	return append([]string(nil), ns.prefixes...)
}

/*
Resolve resolves a prefix.
*/
func (ns *NsMapping) Resolve(prefix string) (string, bool) {
	if ns == nil {
		return "", false
	}
	uri, ok := ns.uris[prefix]
	return uri, ok
}

/*
Len returns the number of declarations.
*/
func (ns *NsMapping) Len() int {
	if ns == nil {
		return 0
	}
	return len(ns.prefixes)
}

/*
Equal checks if two mappings contain the same declarations.
*/
func (ns *NsMapping) Equal(other *NsMapping) bool {
	if ns.Len() != other.Len() {
		return false
	}

	for _, p := range ns.Prefixes() {
		if u, ok := other.Resolve(p); !ok || u != ns.uris[p] {
			return false
		}
	}

	return true
}

/*
String returns a string representation of this mapping.
*/
func (ns *NsMapping) String() string {
	var buf bytes.Buffer

	for i, p := range ns.Prefixes() {
		if i > 0 {
			buf.WriteString(" ")
		}
		if p == "" {
			buf.WriteString(fmt.Sprintf("xmlns=%q", ns.uris[p]))
		} else {
			buf.WriteString(fmt.Sprintf("xmlns:%v=%q", p, ns.uris[p]))
		}
	}

	return buf.String()
}
