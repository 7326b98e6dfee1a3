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
)

/*
Handler receives subtree construction events. Namespace mappings are
started before the element which declares them and ended after it.
*/
type Handler interface {
	Begin() error
	End() error
	BeginFragment() error
	EndFragment() error
	StartDocument() error
	EndDocument() error
	StartMapping(prefix string, uri string) error
	EndMapping(prefix string) error
	StartElement(name data.QName) error
	EndElement(name data.QName) error
	Attribute(name data.QName, value string) error
	Text(value string) error
	Comment(value string) error
	ProcessingInstruction(target string, content string) error
	Fail() error
}
