package output

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const noteColumn = 40

// treeDir is one directory level of a rendered file tree.
type treeDir struct {
	dirs  map[string]*treeDir
	files map[string]string
}

func newTreeDir() *treeDir {
	return &treeDir{dirs: map[string]*treeDir{}, files: map[string]string{}}
}

func (d *treeDir) add(parts []string, note string) {
	if len(parts) == 1 {
		d.files[parts[0]] = note
		return
	}
	sub, ok := d.dirs[parts[0]]
	if !ok {
		sub = newTreeDir()
		d.dirs[parts[0]] = sub
	}
	sub.add(parts[1:], note)
}

// RenderFileTree renders files as a tree under rootName. Keys are relative
// paths, values are notes printed in a column after the name. Directories
// sort before files.
func RenderFileTree(rootName string, files map[string]string) string {
	if len(files) == 0 {
		return ""
	}
	root := newTreeDir()
	for p, note := range files {
		clean := path.Clean(filepath.ToSlash(p))
		root.add(strings.Split(clean, "/"), note)
	}

	styles := GetStyles()
	var sb strings.Builder
	sb.WriteString(styles.Bold.Render(strings.TrimSuffix(rootName, "/") + "/"))
	sb.WriteString("\n")
	root.render(&sb, "", styles)
	return sb.String()
}

func (d *treeDir) render(sb *strings.Builder, indent string, styles *Styles) {
	type entry struct {
		name string
		sub  *treeDir
		note string
	}
	entries := make([]entry, 0, len(d.dirs)+len(d.files))
	for _, name := range sortedKeys(d.dirs) {
		entries = append(entries, entry{name: name + "/", sub: d.dirs[name]})
	}
	for _, name := range sortedKeys(d.files) {
		entries = append(entries, entry{name: name, note: d.files[name]})
	}

	for i, e := range entries {
		branch, next := "├── ", "│   "
		if i == len(entries)-1 {
			branch, next = "└── ", "    "
		}
		line := indent + branch + e.name
		if e.note != "" {
			line += strings.Repeat(" ", max(2, noteColumn-len([]rune(line)))) + styles.Muted.Render(e.note)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
		if e.sub != nil {
			e.sub.render(sb, indent+next, styles)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
