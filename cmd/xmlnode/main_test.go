/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krotik/xmlnode/config"
)

const libDoc = `<lib>
  <book id="1"><title>Go</title></book>
  <!--more-->
</lib>`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, log bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&log)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func writeFile(t *testing.T, dir string, name string, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0660))
	return path
}

func TestTree(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "lib.xml", libDoc)

	out, err := run(t, "tree", doc)
	require.NoError(t, err)
	assert.Equal(t, `1:1 document
  1:1.3 element lib
    1:1.3.3 element book
      1:1.3.3.1.3 attribute id="1"
      1:1.3.3.3 element title
        1:1.3.3.3.3 text "Go"
    1:1.3.5 comment "more"
`, out)

	_, err = run(t, "tree", filepath.Join(dir, "missing.xml"))
	assert.Error(t, err)

	_, err = run(t, "tree")
	assert.Error(t, err)
}

func TestDump(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "lib.xml", libDoc)
	cfg := filepath.Join(dir, "config.json")

	out, err := run(t, "--config", cfg, "dump", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "  1:1.3 -\n")
	assert.Contains(t, out, `  1:1.3.3.1.3 attribute pcr=2 "1"`)
	assert.Contains(t, out, "7 entries in 1 page\n")

	// The config file was created with the default options

	assert.FileExists(t, cfg)
	assert.Equal(t, "info", config.Str(config.LogLevel))
}

func TestIndex(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "lib.xml", libDoc)
	defs := writeFile(t, dir, "defs.yaml", `
indexes:
  - type: name
    name: elements
  - type: cas
    name: ids
    includes: ["//@id"]
    contentType: integer
`)

	out, err := run(t, "index", doc, "--defs", defs)
	require.NoError(t, err)
	assert.Equal(t, `1 name index "elements"
   lib 1:1.3
   book 1:1.3.3
   title 1:1.3.3.3
2 cas index "ids" on //@id (integer)
   /lib/book/@id "1" 1:1.3.3.1.3
`, out)

	_, err = run(t, "index", doc)
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "indexes:\n  - type: btree\n")
	_, err = run(t, "index", doc, "--defs", bad)
	assert.Error(t, err)
}
