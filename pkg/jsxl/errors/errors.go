// Package errors provides structured error types for the jsxl compiler.
//
// Every failure the compiler can raise is described once in ErrorCatalog,
// keyed by a stable code such as "FLOW-0002". A CompileError carries the
// rendered message, hints, source position and the class used for
// programmatic matching with errors.Is.
package errors

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	jsoniter "github.com/json-iterator/go"
)

// ErrorClass categorizes errors for filtering and matching.
type ErrorClass string

const (
	ClassNode        ErrorClass = "unsupported-node" // No emitter for a node kind
	ClassReassign    ErrorClass = "reassignment"     // Assignment to an existing binding
	ClassControlFlow ErrorClass = "control-flow"     // Returns/statements outside the single-return subset
	ClassOperator    ErrorClass = "operator"         // Operator with no formula spelling
	ClassBinding     ErrorClass = "binding"          // Declarations that cannot become LET pairs
	ClassExport      ErrorClass = "export"           // Malformed module exports
	ClassTree        ErrorClass = "tree"             // Input tree could not be decoded
)

// CompileError represents any error raised while decoding or compiling a unit.
type CompileError struct {
	Class   ErrorClass     `json:"class"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Kind    string         `json:"kind,omitempty"` // Offending node kind, if any
	Line    int            `json:"line"`           // 1-based line (0 if unknown)
	Column  int            `json:"column"`         // Column as reported by the parser (0 if unknown)
	File    string         `json:"file,omitempty"` // Compilation unit path (if known)
	Data    map[string]any `json:"data,omitempty"` // Template variables
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return e.String()
}

// String returns a single-line representation of the error.
func (e *CompileError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}
	if e.Code != "" {
		sb.WriteString(e.Code)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for terminal display.
func (e *CompileError) PrettyString() string {
	var sb strings.Builder

	if e.Class == ClassTree {
		sb.WriteString("Input error")
	} else {
		sb.WriteString("Compile error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("Try: ")
		} else {
			sb.WriteString(" or: ")
		}
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *CompileError) ToJSON() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *CompileError) WithFile(file string) *CompileError {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *CompileError) WithPosition(line, column int) *CompileError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// Is matches any CompileError of the same class, so callers can write
// errors.Is(err, errors.ErrReassignment).
func (e *CompileError) Is(target error) bool {
	t, ok := target.(*CompileError)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Class == e.Class
}

// Sentinels for errors.Is matching by class.
var (
	ErrUnsupportedNodeKind    = &CompileError{Class: ClassNode, Message: "unsupported node kind"}
	ErrReassignment           = &CompileError{Class: ClassReassign, Message: "reassignment not allowed"}
	ErrUnsupportedControlFlow = &CompileError{Class: ClassControlFlow, Message: "unsupported control flow"}
	ErrUnsupportedOperator    = &CompileError{Class: ClassOperator, Message: "unsupported operator"}
	ErrBinding                = &CompileError{Class: ClassBinding, Message: "invalid binding"}
	ErrExport                 = &CompileError{Class: ClassExport, Message: "invalid export"}
	ErrMalformedTree          = &CompileError{Class: ClassTree, Message: "malformed tree"}
)

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Unsupported nodes (NODE-0xxx)
	// ========================================
	"NODE-0001": {
		Class:    ClassNode,
		Template: "unsupported node kind {{.Kind}}",
		Hints:    []string{"{{.Hint}}"},
	},
	"NODE-0002": {
		Class:    ClassNode,
		Template: "function parameters must be plain identifiers, got {{.Kind}}",
		Hints:    []string{"(a, b) => ..."},
	},

	// ========================================
	// Reassignment (ASSIGN-0xxx)
	// ========================================
	"ASSIGN-0001": {
		Class:    ClassReassign,
		Template: "cannot reassign {{.Target}}: formula bindings are immutable",
		Hints:    []string{"declare a new name instead: const {{.Target}}2 = ..."},
	},

	// ========================================
	// Control flow (FLOW-0xxx)
	// ========================================
	"FLOW-0001": {
		Class:    ClassControlFlow,
		Template: "function body has no return value",
		Hints:    []string{"end the body with a single `return <expression>`"},
	},
	"FLOW-0002": {
		Class:    ClassControlFlow,
		Template: "function body has {{.Count}} return statements, only one is allowed",
		Hints:    []string{"combine the branches with a conditional: return test ? a : b"},
	},
	"FLOW-0003": {
		Class:    ClassControlFlow,
		Template: "{{.Kind}} is not allowed in {{.Where}}",
		Hints:    []string{"only const declarations and one return statement are supported"},
	},
	"FLOW-0004": {
		Class:    ClassControlFlow,
		Template: "declaration of {{.Name}} after the return statement is unreachable",
	},

	// ========================================
	// Operators (OP-0xxx)
	// ========================================
	"OP-0001": {
		Class:    ClassOperator,
		Template: "operator '{{.Operator}}' has no formula equivalent",
		Hints:    []string{"supported operators: {{.Supported}}"},
	},

	// ========================================
	// Bindings (BIND-0xxx)
	// ========================================
	"BIND-0001": {
		Class:    ClassBinding,
		Template: "'{{.Name}}' is declared more than once in the same scope",
	},
	"BIND-0002": {
		Class:    ClassBinding,
		Template: "'{{.Name}}' is declared without a value",
		Hints:    []string{"const {{.Name}} = <expression>"},
	},
	"BIND-0003": {
		Class:    ClassBinding,
		Template: "destructuring declarations are not supported, got {{.Kind}}",
	},
	"BIND-0004": {
		Class:    ClassBinding,
		Template: "'{{.Name}}' is reserved for the entry formula",
		Hints:    []string{"rename the declaration"},
	},

	// ========================================
	// Exports (EXPORT-0xxx)
	// ========================================
	"EXPORT-0001": {
		Class:    ClassExport,
		Template: "named export must declare a value",
		Hints:    []string{"export const NAME = <expression>"},
	},
	"EXPORT-0002": {
		Class:    ClassExport,
		Template: "module has no default export",
		Hints:    []string{"export default <expression>"},
	},
	"EXPORT-0003": {
		Class:    ClassExport,
		Template: "module has more than one default export",
	},
	"EXPORT-0004": {
		Class:    ClassExport,
		Template: "'{{.Name}}' is exported more than once",
	},

	// ========================================
	// Input tree (TREE-0xxx)
	// ========================================
	"TREE-0001": {
		Class:    ClassTree,
		Template: "invalid syntax tree: {{.Reason}}",
	},
	"TREE-0002": {
		Class:    ClassTree,
		Template: "{{.Kind}} is missing required field '{{.Field}}'",
	},
	"TREE-0003": {
		Class:    ClassTree,
		Template: "tree root must be a Program, got {{.Kind}}",
		Hints:    []string{"parse with sourceType: \"module\""},
	},
}

// New creates a CompileError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *CompileError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &CompileError{
			Class:   ClassTree,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" && rendered != "<no value>" {
			hints = append(hints, rendered)
		}
	}

	err := &CompileError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
	if k, ok := data["Kind"].(string); ok {
		err.Kind = k
	}
	return err
}

// NewWithPosition creates a CompileError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *CompileError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// Codes returns every catalog code in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(ErrorCatalog))
	for code := range ErrorCatalog {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
