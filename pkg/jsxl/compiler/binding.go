package compiler

import "strings"

// Binding is one LET name/value pair. Later bindings may reference earlier
// ones, so order is significant.
type Binding struct {
	Name    string
	Formula string
}

// Export is a named, addressable formula.
type Export struct {
	Name    string
	Formula string
}

// Unit is the compiled form of a Program.
type Unit struct {
	Bindings []Binding // module-level bindings in declaration order
	Main     string    // default export, not wrapped in the module bindings
	Exports  []Export  // named exports, each wrapped in its own LET
}

// Let wraps body in a single LET over bindings, or returns body unchanged
// when there are none.
func Let(bindings []Binding, body string) string {
	if len(bindings) == 0 {
		return body
	}
	var sb strings.Builder
	sb.WriteString("LET(")
	for _, b := range bindings {
		sb.WriteString(b.Name)
		sb.WriteString(", ")
		sb.WriteString(b.Formula)
		sb.WriteString(", ")
	}
	sb.WriteString(body)
	sb.WriteString(")")
	return sb.String()
}

// scope accumulates a flattened binding list and rejects duplicate names.
type scope struct {
	bindings []Binding
	names    map[string]bool
}

func newScope() *scope {
	return &scope{names: make(map[string]bool)}
}

// has reports whether name is already bound.
func (s *scope) has(name string) bool {
	return s.names[name]
}

func (s *scope) add(b Binding) {
	s.names[b.Name] = true
	s.bindings = append(s.bindings, b)
}
