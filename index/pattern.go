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
	"fmt"
	"regexp"
	"strings"

	"github.com/krotik/common/stringutil"

	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/psn"
	"github.com/krotik/xmlnode/util"
)

/*
PathPattern is a pattern over path classes. Supported are child steps (/a),
descendant steps (//a), wildcards (*) and a final attribute step (@id).
*/
type PathPattern struct {
	text  string
	steps []pathStep
}

type pathStep struct {
	descendant bool   // Step may skip any number of levels
	attribute  bool   // Step matches attributes
	name       string // Name or * for any name
}

/*
ParsePathPattern parses a path pattern.
*/
func ParsePathPattern(s string) (*PathPattern, error) {
	p := &PathPattern{text: s}

	perr := func(detail string) error {
		return &util.NodeError{Type: util.ErrInvalidArgument,
			Detail: fmt.Sprintf("Invalid path pattern '%v': %v", s, detail)}
	}

	if !strings.HasPrefix(s, "/") {
		return nil, perr("pattern must start with /")
	}

	rest := s

	for rest != "" {
		st := pathStep{}

		if strings.HasPrefix(rest, "//") {
			st.descendant = true
			rest = rest[2:]
		} else if strings.HasPrefix(rest, "/") {
			rest = rest[1:]
		} else {
			return nil, perr("missing /")
		}

		name := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			name, rest = rest[:i], rest[i:]
		} else {
			rest = ""
		}

		if strings.HasPrefix(name, "@") {
			if rest != "" {
				return nil, perr("attribute step must be the last step")
			}
			st.attribute = true
			name = name[1:]
		}

		if name == "" {
			return nil, perr("empty step")
		}

		st.name = name
		p.steps = append(p.steps, st)
	}

	return p, nil
}

/*
String returns the text of this pattern.
*/
func (p *PathPattern) String() string {
	return p.text
}

/*
Match checks if a path class matches this pattern.
*/
func (p *PathPattern) Match(n *psn.Node) bool {
	var comps []*psn.Node

	for c := n; c != nil; c = c.Parent {
		comps = append(comps, c)
	}

	for i, j := 0, len(comps)-1; i < j; i, j = i+1, j-1 {
		comps[i], comps[j] = comps[j], comps[i]
	}

	return matchSteps(p.steps, comps)
}

func matchSteps(steps []pathStep, comps []*psn.Node) bool {
	if len(steps) == 0 {
		return len(comps) == 0
	}

	st := steps[0]

	if !st.descendant {
		return len(comps) > 0 && st.matches(comps[0]) && matchSteps(steps[1:], comps[1:])
	}

	for k := range comps {
		if st.matches(comps[k]) && matchSteps(steps[1:], comps[k+1:]) {
			return true
		}
	}

	return false
}

func (st pathStep) matches(n *psn.Node) bool {
	if st.attribute != (n.Kind == data.Attribute) {
		return false
	}

	if st.name == "*" || st.name == n.Name.String() {
		return true
	}

	return !strings.Contains(st.name, ":") && st.name == n.Name.Local
}

/*
compileGlobs compiles a list of glob patterns into regular expressions.
*/
func compileGlobs(globs []string) ([]*regexp.Regexp, error) {
	var res []*regexp.Regexp

	for _, g := range globs {
		rs, err := stringutil.GlobToRegex(g)
		if err == nil {
			var re *regexp.Regexp
			if re, err = regexp.Compile("^" + rs + "$"); err == nil {
				res = append(res, re)
				continue
			}
		}

		return nil, &util.NodeError{Type: util.ErrInvalidArgument,
			Detail: fmt.Sprintf("Invalid name pattern '%v': %v", g, err)}
	}

	return res, nil
}

/*
compilePaths parses a list of path patterns.
*/
func compilePaths(paths []string) ([]*PathPattern, error) {
	var res []*PathPattern

	for _, p := range paths {
		pp, err := ParsePathPattern(p)
		if err != nil {
			return nil, err
		}
		res = append(res, pp)
	}

	return res, nil
}

func matchAnyPath(patterns []*PathPattern, n *psn.Node) bool {
	if len(patterns) == 0 {
		return true
	}

	for _, p := range patterns {
		if p.Match(n) {
			return true
		}
	}

	return false
}
