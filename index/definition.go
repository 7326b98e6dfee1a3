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
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/krotik/xmlnode/util"
)

/*
Definition describes a secondary index.
*/
type Definition struct {
	ID          int         `json:"id" yaml:"id"`
	Type        Type        `json:"type" yaml:"type"`
	Name        string      `json:"name" yaml:"name"`
	Includes    []string    `json:"includes,omitempty" yaml:"includes"`
	ContentType ContentType `json:"contentType,omitempty" yaml:"contentType"`
	Unique      bool        `json:"unique,omitempty" yaml:"unique"`
	Stats       *Statistics `json:"stats,omitempty" yaml:"-"`
}

/*
Statistics are the statistics of an index.
*/
type Statistics struct {
	Entries  int `json:"entries"`  // Number of entries
	Distinct int `json:"distinct"` // Number of distinct names, paths or values
}

/*
String returns a string representation of this definition.
*/
func (d *Definition) String() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "%v %v index", d.ID, d.Type)

	if d.Name != "" {
		fmt.Fprintf(&buf, " %q", d.Name)
	}

	if len(d.Includes) > 0 {
		fmt.Fprintf(&buf, " on %v", strings.Join(d.Includes, ", "))
	}

	if d.Type == CASIndex {
		fmt.Fprintf(&buf, " (%v)", d.contentType())
	}

	if d.Unique {
		buf.WriteString(" unique")
	}

	return buf.String()
}

func (d *Definition) contentType() ContentType {
	if d.ContentType == "" {
		return StringContent
	}
	return d.ContentType
}

/*
definitionFile is the layout of a definition file.
*/
type definitionFile struct {
	Indexes []*Definition `yaml:"indexes"`
}

/*
ParseDefinitions parses a list of index definitions from YAML.
*/
func ParseDefinitions(data []byte) ([]*Definition, error) {
	var df definitionFile

	if err := yaml.Unmarshal(data, &df); err != nil {
		var ne *util.NodeError
		if errors.As(err, &ne) {
			return nil, ne
		}
		return nil, &util.NodeError{Type: util.ErrInvalidArgument, Detail: err.Error()}
	}

	for _, d := range df.Indexes {
		if d.Type == 0 {
			return nil, &util.NodeError{Type: util.ErrInvalidArgument,
				Detail: fmt.Sprint("Index definition without type: ", d.Name)}
		}
	}

	return df.Indexes, nil
}
