// Package symbols extracts function/class/struct-level symbols from source
// files via tree-sitter AST queries, one declarative query per supported
// language family, grounded in the same query shapes as the prior Rust
// engine's tree-sitter integration.
package symbols

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/agentjj/jjx/internal/errs"
)

// Kind discriminates the shape of an extracted symbol.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindInterface Kind = "interface"
	KindConstant  Kind = "constant"
	KindVariable  Kind = "variable"
	KindModule    Kind = "module"
	KindImport    Kind = "import"
)

// Symbol is one extracted definition.
type Symbol struct {
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	Signature string `json:"signature,omitempty"`
	Docstring string `json:"docstring,omitempty"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Context augments a found symbol with a best-effort list of imports a
// caller would need to use it elsewhere.
type Context struct {
	Name          string   `json:"name"`
	Kind          Kind     `json:"kind"`
	Signature     string   `json:"signature,omitempty"`
	Docstring     string   `json:"docstring,omitempty"`
	ImportsNeeded []string `json:"imports_needed"`
}

// Language is one of the four source languages this package understands.
type Language string

const (
	Python     Language = "python"
	Rust       Language = "rust"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
)

// LanguageFromExtension maps a file extension (without the leading dot,
// case-insensitive) to a supported language, or ok=false if unsupported.
func LanguageFromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case "py":
		return Python, true
	case "rs":
		return Rust, true
	case "js", "jsx", "mjs":
		return JavaScript, true
	case "ts", "tsx":
		return TypeScript, true
	default:
		return "", false
	}
}

// LanguageFromPath detects a language from a file path's extension.
func LanguageFromPath(path string) (Language, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", false
	}
	return LanguageFromExtension(strings.TrimPrefix(ext, "."))
}

func (l Language) sitterLanguage() *sitter.Language {
	switch l {
	case Python:
		return python.GetLanguage()
	case Rust:
		return rust.GetLanguage()
	case JavaScript:
		return javascript.GetLanguage()
	case TypeScript:
		return typescript.GetLanguage()
	default:
		return nil
	}
}

func (l Language) query() string {
	switch l {
	case Python:
		return pythonSymbolQuery
	case Rust:
		return rustSymbolQuery
	case JavaScript, TypeScript:
		return jsSymbolQuery
	default:
		return ""
	}
}

const pythonSymbolQuery = `
(function_definition
  name: (identifier) @function.name
  parameters: (parameters) @function.params
  body: (block
    (expression_statement
      (string) @function.docstring)?)
) @function.def

(class_definition
  name: (identifier) @class.name
  body: (block
    (expression_statement
      (string) @class.docstring)?)
) @class.def
`

const rustSymbolQuery = `
(function_item
  name: (identifier) @function.name
  parameters: (parameters) @function.params
) @function.def

(struct_item
  name: (type_identifier) @struct.name
) @struct.def

(enum_item
  name: (type_identifier) @enum.name
) @enum.def

(trait_item
  name: (type_identifier) @trait.name
) @trait.def
`

const jsSymbolQuery = `
(function_declaration
  name: (identifier) @function.name
  parameters: (formal_parameters) @function.params
) @function.def

(class_declaration
  name: (identifier) @class.name
  body: (class_body) @class.body
) @class.def

(method_definition
  name: (property_identifier) @method.name
  parameters: (formal_parameters) @method.params
) @method.def
`

// Extract parses source with the given language's grammar and returns every
// symbol its declarative query finds, deduplicated by (name, start_line) and
// sorted by start_line.
func Extract(source []byte, lang Language) ([]Symbol, error) {
	sl := lang.sitterLanguage()
	if sl == nil {
		return nil, errs.Repository("unsupported language: %s", lang)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(sl)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, errs.Repository("parse failed: %s", err)
	}
	defer tree.Close()

	query, err := sitter.NewQuery([]byte(lang.query()), sl)
	if err != nil {
		return nil, errs.Repository("compile query failed: %s", err)
	}
	defer query.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(query, tree.RootNode())

	var symbols []Symbol
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}

		var name, signature, docstring string
		kind := KindFunction
		startLine, endLine := 0, 0

		for _, c := range m.Captures {
			captureName := query.CaptureNameForId(c.Index)
			node := c.Node
			text := node.Content(source)

			switch captureName {
			case "function.name":
				name, kind = text, KindFunction
			case "method.name":
				name, kind = text, KindMethod
			case "class.name":
				name, kind = text, KindClass
			case "struct.name":
				name, kind = text, KindStruct
			case "enum.name":
				name, kind = text, KindEnum
			case "trait.name":
				name, kind = text, KindInterface
			case "function.def", "method.def", "class.def", "struct.def", "enum.def", "trait.def":
				startLine = int(node.StartPoint().Row) + 1
				endLine = int(node.EndPoint().Row) + 1
				signature = firstLine(text)
			case "function.docstring", "class.docstring":
				if cleaned := cleanDocstring(text); cleaned != "" {
					docstring = cleaned
				}
			}
		}

		if name != "" {
			symbols = append(symbols, Symbol{
				Name:      name,
				Kind:      kind,
				Signature: signature,
				Docstring: docstring,
				StartLine: startLine,
				EndLine:   endLine,
			})
		}
	}

	return dedupAndSort(symbols), nil
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

func cleanDocstring(text string) string {
	cleaned := strings.TrimSpace(text)
	for _, quote := range []string{`"""`, `'''`} {
		cleaned = strings.TrimPrefix(cleaned, quote)
		cleaned = strings.TrimSuffix(cleaned, quote)
	}
	return strings.TrimSpace(cleaned)
}

func dedupAndSort(symbols []Symbol) []Symbol {
	sort.SliceStable(symbols, func(i, j int) bool { return symbols[i].StartLine < symbols[j].StartLine })

	seen := make(map[string]bool, len(symbols))
	out := make([]Symbol, 0, len(symbols))
	for _, s := range symbols {
		key := s.Name + "\x00" + itoa(s.StartLine)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Find returns the first symbol named name, or ok=false if none match.
func Find(source []byte, lang Language, name string) (Symbol, bool, error) {
	symbols, err := Extract(source, lang)
	if err != nil {
		return Symbol{}, false, err
	}
	for _, s := range symbols {
		if s.Name == name {
			return s, true, nil
		}
	}
	return Symbol{}, false, nil
}

// GetContext returns the minimal usage context for a named symbol:
// signature, docstring, and a best-effort list of imports its containing
// file declares (the caller likely needs the same ones).
func GetContext(source []byte, lang Language, name string) (Context, bool, error) {
	sym, ok, err := Find(source, lang, name)
	if err != nil || !ok {
		return Context{}, ok, err
	}
	return Context{
		Name:          sym.Name,
		Kind:          sym.Kind,
		Signature:     sym.Signature,
		Docstring:     sym.Docstring,
		ImportsNeeded: importsIn(source, lang),
	}, true, nil
}

// importsIn does a best-effort textual scan for import/use statements,
// since a full import-resolution pass is out of scope for a context hint.
func importsIn(source []byte, lang Language) []string {
	var out []string
	for _, line := range strings.Split(string(source), "\n") {
		trimmed := strings.TrimSpace(line)
		switch lang {
		case Python:
			if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from ") {
				out = append(out, trimmed)
			}
		case Rust:
			if strings.HasPrefix(trimmed, "use ") {
				out = append(out, trimmed)
			}
		case JavaScript, TypeScript:
			if strings.HasPrefix(trimmed, "import ") {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

// IsPublic reports whether a symbol is part of a file's public surface,
// using the visibility convention of the symbol's language family.
func IsPublic(lang Language, sym Symbol) bool {
	switch lang {
	case Rust:
		return strings.Contains(sym.Signature, "pub ") || strings.HasPrefix(sym.Signature, "pub")
	case Python:
		return !strings.HasPrefix(sym.Name, "_")
	case JavaScript, TypeScript:
		if sym.Signature == "" {
			return true
		}
		return strings.Contains(sym.Signature, "export")
	default:
		return true
	}
}
