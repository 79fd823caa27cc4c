package sbml

import "strings"

// rustKeywords are reserved words that cannot appear as identifiers in
// the generated code.
var rustKeywords = map[string]struct{}{
	"as": {}, "break": {}, "const": {}, "continue": {}, "crate": {},
	"else": {}, "enum": {}, "extern": {}, "false": {}, "fn": {},
	"for": {}, "if": {}, "impl": {}, "in": {}, "let": {}, "loop": {},
	"match": {}, "mod": {}, "move": {}, "mut": {}, "pub": {}, "ref": {},
	"return": {}, "self": {}, "Self": {}, "static": {}, "struct": {},
	"super": {}, "trait": {}, "true": {}, "type": {}, "unsafe": {},
	"use": {}, "where": {}, "while": {}, "async": {}, "await": {}, "dyn": {},
}

// RustIdentifier converts a model component name into a valid Rust
// identifier: non-alphanumeric characters become underscores, a
// leading digit gets an underscore prefix, and the result is
// lowercased. Keywords get a trailing underscore.
func RustIdentifier(name string) string {
	var sb strings.Builder
	sb.Grow(len(name) + 1)
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	clean := sb.String()
	if clean != "" && clean[0] >= '0' && clean[0] <= '9' {
		clean = "_" + clean
	}
	clean = strings.ToLower(clean)
	if _, reserved := rustKeywords[clean]; reserved {
		clean += "_"
	}
	return clean
}

// IsValidRustIdentifier reports whether name can appear verbatim as an
// identifier in the generated code.
func IsValidRustIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		letter := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_'
		digit := r >= '0' && r <= '9'
		if i == 0 && !letter {
			return false
		}
		if !letter && !digit {
			return false
		}
	}
	_, reserved := rustKeywords[name]
	return !reserved
}
