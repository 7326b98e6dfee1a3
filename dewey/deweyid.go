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
Package dewey contains the hierarchical node label model of the node store.

# ID

A DeweyID is a document id plus a sequence of non-negative divisions. Odd
divisions open a new tree level, even divisions are carets which make room
to insert between two existing siblings without relabeling them. The
divisions of a label are therefore grouped: each group is a (possibly empty)
run of even divisions terminated by one odd division.

	doc:1          document node (level 0)
	doc:1.3        root element (level 1)
	doc:1.3.3      first child of the root element (level 2)
	doc:1.3.4.3    child inserted between doc:1.3.3 and doc:1.3.5
	doc:1.3.1.3    first attribute of the root element (level 3)

The group "1" directly after an element label is the attribute root. It is
not a node itself, attributes of an element E are labeled E.1.x. Comparing
division sequences lexicographically yields document order (attributes sort
before the children of their owner) and a label is an ancestor of another
iff its divisions are a prefix of the other label's divisions.
*/
package dewey

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/krotik/common/errorutil"
)

/*
SiblingDistance is the distance between the last divisions of two consecutive
siblings which are created by appending.
*/
const SiblingDistance = 2

/*
FirstDivision is the first division of the first child of a node.
*/
const FirstDivision = 3

/*
AttributeRootDivision is the division which marks the attribute root of an element.
*/
const AttributeRootDivision = 1

/*
DocumentDivision is the single division of a document node label.
*/
const DocumentDivision = 1

/*
ID models a DeweyID. IDs are immutable values, operations always return
new instances. The zero value is a label which does not exist.
*/
type ID struct {
	DocID     int   // Id of the document this label is scoped to
	divisions []int // Divisions of this label
}

/*
New creates a new label from a document id and a list of divisions.
*/
func New(docID int, divisions ...int) ID {
	errorutil.AssertTrue(docID >= 0, fmt.Sprint("Invalid document id: ", docID))

	divs := make([]int, len(divisions))

	for i, d := range divisions {
		errorutil.AssertTrue(d >= 0, fmt.Sprint("Invalid division: ", d))
		divs[i] = d
	}

	errorutil.AssertTrue(len(divs) == 0 || divs[0] == DocumentDivision,
		fmt.Sprint("Label must start with the document division: ", divs))
	errorutil.AssertTrue(len(divs) == 0 || divs[len(divs)-1]%2 == 1,
		fmt.Sprint("Label must end with an odd division: ", divs))

	return ID{docID, divs}
}

/*
DocumentID returns the label of the document node of a given document.
*/
func DocumentID(docID int) ID {
	return ID{docID, []int{DocumentDivision}}
}

/*
Parse parses a label from its string representation (e.g. 5:1.3.5).
*/
func Parse(s string) (ID, error) {
	ss := strings.SplitN(s, ":", 2)

	if len(ss) != 2 {
		return ID{}, fmt.Errorf("Invalid DeweyID: %v", s)
	}

	doc, err := strconv.Atoi(ss[0])
	if err != nil || doc < 0 {
		return ID{}, fmt.Errorf("Invalid document id in DeweyID: %v", s)
	}

	var divs []int

	for _, p := range strings.Split(ss[1], ".") {
		d, err := strconv.Atoi(p)
		if err != nil || d < 0 {
			return ID{}, fmt.Errorf("Invalid division in DeweyID: %v", s)
		}
		divs = append(divs, d)
	}

	if divs[0] != DocumentDivision || divs[len(divs)-1]%2 == 0 {
		return ID{}, fmt.Errorf("Malformed DeweyID: %v", s)
	}

	return ID{doc, divs}, nil
}

/*
IsZero returns if this is the zero label.
*/
func (id ID) IsZero() bool {
	return len(id.divisions) == 0
}

/*
Divisions returns a copy of the divisions of this label.
*/
func (id ID) Divisions() []int {
	return append([]int(nil), id.divisions...)
}

/*
Level returns the tree level of this label. The document has level 0, its
children level 1. Attributes are two levels below their owner element.
*/
func (id ID) Level() int {
	errorutil.AssertTrue(!id.IsZero(), "Level of zero label requested")

	odd := 0
	for _, d := range id.divisions {
		if d%2 == 1 {
			odd++
		}
	}

	return odd - 1
}

/*
groups returns the end positions (exclusive) of all division groups.
*/
func (id ID) groups() []int {
	var ends []int

	for i, d := range id.divisions {
		if d%2 == 1 {
			ends = append(ends, i+1)
		}
	}

	return ends
}

/*
lastGroup returns the start position of the last division group.
*/
func (id ID) lastGroup() int {
	ends := id.groups()

	if len(ends) < 2 {
		return 0
	}

	return ends[len(ends)-2]
}

/*
IsDocument returns if this label is a document label.
*/
func (id ID) IsDocument() bool {
	return len(id.divisions) == 1 && id.divisions[0] == DocumentDivision
}

/*
IsRoot returns if this label is a child of a document node.
*/
func (id ID) IsRoot() bool {
	return !id.IsZero() && len(id.groups()) == 2
}

/*
IsAttribute returns if this label is an attribute label.
*/
func (id ID) IsAttribute() bool {
	ends := id.groups()
	n := len(ends)

	if n < 4 {
		return false
	}

	start := ends[n-3]

	return ends[n-2]-start == 1 && id.divisions[start] == AttributeRootDivision
}

/*
AttributeOwner returns the owner element of an attribute label.
*/
func (id ID) AttributeOwner() ID {
	errorutil.AssertTrue(id.IsAttribute(), fmt.Sprint("Not an attribute label: ", id))

	ends := id.groups()

	return ID{id.DocID, append([]int(nil), id.divisions[:ends[len(ends)-3]]...)}
}

/*
Parent returns the parent label. The parent of an attribute is its owner
element. Returns the zero label for documents.
*/
func (id ID) Parent() ID {
	errorutil.AssertTrue(!id.IsZero(), "Parent of zero label requested")

	if id.IsDocument() {
		return ID{}
	} else if id.IsAttribute() {
		return id.AttributeOwner()
	}

	return ID{id.DocID, append([]int(nil), id.divisions[:id.lastGroup()]...)}
}

/*
Ancestor returns the ancestor-or-self of this label on a given level.
*/
func (id ID) Ancestor(level int) ID {
	lv := id.Level()

	errorutil.AssertTrue(level >= 0 && level <= lv,
		fmt.Sprintf("Level %v requested for label %v on level %v", level, id, lv))

	if level == lv {
		return id
	}

	if id.IsAttribute() {
		owner := id.AttributeOwner()

		errorutil.AssertTrue(level <= owner.Level(),
			fmt.Sprintf("Level %v of label %v is an attribute root", level, id))

		return owner.Ancestor(level)
	}

	return ID{id.DocID, append([]int(nil), id.divisions[:id.groups()[level]]...)}
}

/*
FirstChild returns the label of the first child when appending to a node
without children.
*/
func (id ID) FirstChild() ID {
	errorutil.AssertTrue(!id.IsZero() && !id.IsAttribute(),
		fmt.Sprint("Node cannot have children: ", id))

	return id.append(FirstDivision)
}

/*
ChildLowerBound returns the smallest key which sorts after all attributes of
this node and before all its children.
*/
func (id ID) ChildLowerBound() ID {
	return id.append(AttributeRootDivision + 1)
}

/*
AttributeRoot returns the attribute root of this element label. The
attribute root is not a node label but a navigation key.
*/
func (id ID) AttributeRoot() ID {
	errorutil.AssertTrue(!id.IsZero() && !id.IsDocument() && !id.IsAttribute(),
		fmt.Sprint("Node cannot have attributes: ", id))

	return id.append(AttributeRootDivision)
}

/*
FirstAttribute returns the label of the first attribute of an element
without attributes.
*/
func (id ID) FirstAttribute() ID {
	return id.AttributeRoot().append(FirstDivision)
}

/*
Attribute returns the label of the n-th attribute (starting at 0) of an
element whose attributes were stored in one go.
*/
func (id ID) Attribute(n int) ID {
	errorutil.AssertTrue(n >= 0, fmt.Sprint("Invalid attribute number: ", n))

	return id.AttributeRoot().append(FirstDivision + n*SiblingDistance)
}

/*
NextSibling returns the label of a sibling which is appended after this label.
*/
func (id ID) NextSibling() ID {
	errorutil.AssertTrue(!id.IsZero() && !id.IsDocument(),
		fmt.Sprint("Node cannot have siblings: ", id))

	start := id.lastGroup()
	next := between(id.divisions[start:], nil)

	return ID{id.DocID, append(append([]int(nil), id.divisions[:start]...), next...)}
}

/*
SubtreeUpperBound returns the smallest key which is greater than this label
and all its descendants.
*/
func (id ID) SubtreeUpperBound() ID {
	divs := append([]int(nil), id.divisions...)
	divs[len(divs)-1]++

	return ID{id.DocID, divs}
}

/*
append returns a copy of this label with additional divisions.
*/
func (id ID) append(divs ...int) ID {
	return ID{id.DocID, append(append(make([]int, 0, len(id.divisions)+len(divs)),
		id.divisions...), divs...)}
}

/*
Between returns a label which sorts strictly between two sibling labels.
Either bound may be the zero label which means the new label is created
before the first (left is zero) or after the last (right is zero) sibling.
*/
func Between(left ID, right ID) ID {
	errorutil.AssertTrue(!left.IsZero() || !right.IsZero(), "Between needs at least one bound")

	var prefix, lo, hi []int
	var docID int

	if !left.IsZero() {
		start := left.lastGroup()
		docID, prefix, lo = left.DocID, left.divisions[:start], left.divisions[start:]
	} else {
		lo = []int{AttributeRootDivision}
	}

	if !right.IsZero() {
		start := right.lastGroup()
		if left.IsZero() {
			docID, prefix = right.DocID, right.divisions[:start]
		} else {
			errorutil.AssertTrue(left.DocID == right.DocID &&
				equalDivisions(prefix, right.divisions[:start]) && Compare(left, right) < 0,
				fmt.Sprintf("Labels %v and %v are no ordered siblings", left, right))
		}
		hi = right.divisions[start:]
	}

	return ID{docID, append(append([]int(nil), prefix...), between(lo, hi)...)}
}

/*
between returns a division group which sorts strictly between lo and hi. An
empty lo is an open lower bound and a nil hi an open upper bound.
*/
func between(lo []int, hi []int) []int {
	var rest []int

	a := 0
	if len(lo) > 0 {
		a, rest = lo[0], lo[1:]
	}

	nextOdd := a + 1
	if a%2 == 1 {
		nextOdd = a + SiblingDistance
	}

	if hi == nil {
		return []int{nextOdd}
	}

	b := hi[0]

	errorutil.AssertTrue(b >= a, fmt.Sprintf("Invalid division bounds %v and %v", lo, hi))

	switch {
	case nextOdd < b:
		return []int{nextOdd}

	case b > a+1:

		// No odd division left between both bounds - use a caret

		return []int{a + 1, FirstDivision}

	case b == a+1 && a%2 == 0:
		return append([]int{a}, between(rest, nil)...)

	case b == a+1:
		return append([]int{b}, between(nil, hi[1:])...)
	}

	// Both groups start with the same caret

	return append([]int{a}, between(rest, hi[1:])...)
}

/*
Compare compares two labels. Returns 0 if both are equal, -1 if a sorts
before b and 1 if a sorts after b.
*/
func Compare(a ID, b ID) int {
	if a.DocID != b.DocID {
		if a.DocID < b.DocID {
			return -1
		}
		return 1
	}

	for i := 0; i < len(a.divisions) && i < len(b.divisions); i++ {
		if a.divisions[i] != b.divisions[i] {
			if a.divisions[i] < b.divisions[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a.divisions) < len(b.divisions):
		return -1
	case len(a.divisions) > len(b.divisions):
		return 1
	}

	return 0
}

/*
Equal checks if two labels are equal.
*/
func (id ID) Equal(other ID) bool {
	return id.DocID == other.DocID && equalDivisions(id.divisions, other.divisions)
}

/*
IsPrefixOf checks if this label is a prefix of (ancestor-or-self of) another label.
*/
func (id ID) IsPrefixOf(other ID) bool {
	return id.DocID == other.DocID && len(id.divisions) <= len(other.divisions) &&
		equalDivisions(id.divisions, other.divisions[:len(id.divisions)])
}

/*
IsAncestorOf checks if this label is a proper ancestor of another label.
*/
func (id ID) IsAncestorOf(other ID) bool {
	return len(id.divisions) < len(other.divisions) && id.IsPrefixOf(other)
}

/*
IsParentOf checks if this label is the parent of another non-attribute label.
*/
func (id ID) IsParentOf(other ID) bool {
	return !other.IsZero() && !other.IsDocument() && !other.IsAttribute() &&
		id.IsAncestorOf(other) && other.Parent().Equal(id)
}

/*
IsAttributeOf checks if this label is an attribute of a given element label.
*/
func (id ID) IsAttributeOf(owner ID) bool {
	return id.IsAttribute() && owner.IsAncestorOf(id) && id.AttributeOwner().Equal(owner)
}

/*
IsSiblingOf checks if two labels are different siblings of the same kind
(both attributes or both children).
*/
func (id ID) IsSiblingOf(other ID) bool {
	if id.IsZero() || other.IsZero() || id.IsDocument() || other.IsDocument() ||
		id.IsAttribute() != other.IsAttribute() || id.Equal(other) {
		return false
	}

	return id.Parent().Equal(other.Parent())
}

/*
String returns a string representation of this label.
*/
func (id ID) String() string {
	if id.IsZero() {
		return fmt.Sprintf("%v:", id.DocID)
	}

	var buf bytes.Buffer

	buf.WriteString(fmt.Sprint(id.DocID, ":"))

	for i, d := range id.divisions {
		if i > 0 {
			buf.WriteString(".")
		}
		buf.WriteString(strconv.Itoa(d))
	}

	return buf.String()
}

/*
equalDivisions compares two division lists.
*/
func equalDivisions(a []int, b []int) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
