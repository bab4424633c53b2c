package ast

import (
	"sort"
	"strings"
)

// Dump renders the module tree as document text, one statement per line.
// Included files appear inlined.
func (m *Module) Dump() string {
	var b strings.Builder
	for _, d := range m.Includes {
		b.WriteString("// include <" + d.Path + ">\n")
	}
	for _, u := range m.Uses {
		b.WriteString("use <" + u + ">\n")
	}
	dumpScope(&b, &m.Scope, 0)
	return b.String()
}

func dumpScope(b *strings.Builder, s *Scope, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, a := range s.Assignments {
		b.WriteString(indent + a.Name + " = " + a.Expr.String() + ";\n")
	}

	names := make([]string, 0, len(s.Modules))
	for name := range s.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		def := s.Modules[name]
		params := make([]string, len(def.Params))
		for i, p := range def.Params {
			params[i] = p.Name
			if p.Default != nil {
				params[i] += " = " + p.Default.String()
			}
		}
		b.WriteString(indent + "module " + name + "(" + strings.Join(params, ", ") + ") {\n")
		dumpScope(b, &def.Body, depth+1)
		b.WriteString(indent + "}\n")
	}

	for _, inst := range s.Instantiations {
		b.WriteString(indent + modifierPrefix(inst.Modifier) + inst.Name + "(" + formatArgs(inst.Args) + ")")
		if inst.Body.Empty() {
			b.WriteString(";\n")
			continue
		}
		b.WriteString(" {\n")
		dumpScope(b, &inst.Body, depth+1)
		b.WriteString(indent + "}\n")
	}
}

func modifierPrefix(m Modifier) string {
	var s string
	if m.Has(ModRoot) {
		s += "!"
	}
	if m.Has(ModHighlight) {
		s += "#"
	}
	if m.Has(ModBackground) {
		s += "%"
	}
	if m.Has(ModDisable) {
		s += "*"
	}
	return s
}
