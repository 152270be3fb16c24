// Package classname implements the .NET assembly-qualified class name
// mini-language: tokenizing and parsing names such as
// System.Collections.Generic.List`1[[Foo.Bar.Baz, AssemblyName, Version=1.0.0.0,
// Culture=neutral, PublicKeyToken=null]] into a parameter tree plus an
// optional library reference.
package classname

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/moriyoshi/dotnetserde/internal/xerr"
)

// TokenKind distinguishes the lexical classes of the class-name grammar.
type TokenKind int

const (
	Terminal TokenKind = iota
	Literal
	Whitespace
	Comma
	LBracket
	RBracket
)

func (k TokenKind) String() string {
	switch k {
	case Terminal:
		return "TERMINAL"
	case Literal:
		return "LITERAL"
	case Whitespace:
		return "WHITESPACE"
	case Comma:
		return "COMMA"
	case LBracket:
		return "LBRACKET"
	case RBracket:
		return "RBRACKET"
	default:
		return "?"
	}
}

// Token is (kind, column, text); TERMINAL is synthesized at end of input.
type Token struct {
	Kind TokenKind
	Col  int
	Text string
}

var tokenPattern = regexp.MustCompile(`[ \t]+|[\[\],]|[^\[\], \t]+`)

// Tokenize splits a class name into whitespace/comma/bracket/literal runs,
// terminated by a zero-width TERMINAL token.
func Tokenize(value string) []Token {
	var tokens []Token
	col := 0
	for _, loc := range tokenPattern.FindAllStringIndex(value, -1) {
		c := value[loc[0]:loc[1]]
		var kind TokenKind
		switch c {
		case " ", "\t":
			kind = Whitespace
		case ",":
			kind = Comma
		case "[":
			kind = LBracket
		case "]":
			kind = RBracket
		default:
			kind = Literal
		}
		tokens = append(tokens, Token{Kind: kind, Col: col, Text: c})
		col += len(c)
	}
	tokens = append(tokens, Token{Kind: Terminal, Col: col, Text: ""})
	return tokens
}

// Each element of the intermediate form is either a string literal or a
// nested []any group, mirroring the bracket-delimited, comma-separated
// structure of a class name before it is interpreted as a (name,
// parameters, library) tree.

type parserState func(t Token) (parserState, error)

// parseIntoIntermediateForm runs the two-state tokenizer-driven parser: a
// "start of item" state (state0) and a "between items" state (state1) that
// together turn brackets into nesting and commas into sibling separators.
func parseIntoIntermediateForm(value string) ([]any, error) {
	var tokens []any
	var stack [][]any
	var buf []Token

	var state0, state1 parserState

	state0 = func(t Token) (parserState, error) {
		switch t.Kind {
		case Whitespace:
			return state0, nil
		case Comma:
			return nil, &xerr.InvalidClassName{Reason: fmt.Sprintf("unexpected token %s at column %d: %s", t.Kind, t.Col+1, value)}
		case LBracket:
			stack = append(stack, tokens)
			tokens = nil
			return state0, nil
		case RBracket:
			if len(stack) == 0 {
				return nil, &xerr.InvalidClassName{Reason: fmt.Sprintf("unexpected token %s at column %d: %s", t.Kind, t.Col+1, value)}
			}
			inner := tokens
			tokens = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			tokens = append(tokens, inner)
			return state1, nil
		case Literal:
			tokens = append(tokens, t.Text)
			return state1, nil
		case Terminal:
			if len(stack) > 0 {
				return nil, &xerr.InvalidClassName{Reason: "unclosed bracket: " + value}
			}
			return nil, nil
		}
		panic("unreachable")
	}

	state1 = func(t Token) (parserState, error) {
		switch t.Kind {
		case Whitespace:
			return state1, nil
		case Comma:
			return state0, nil
		case LBracket, RBracket:
			buf = append(buf, t)
			return state0, nil
		case Terminal:
			if len(stack) > 0 {
				return nil, &xerr.InvalidClassName{Reason: "unclosed bracket: " + value}
			}
			return nil, nil
		default:
			return nil, &xerr.InvalidClassName{Reason: fmt.Sprintf("unexpected token %s at column %d: %s", t.Kind, t.Col+1, value)}
		}
	}

	dispatch := state0
	toks := Tokenize(value)
	i := 0
	for dispatch != nil {
		var t Token
		if len(buf) > 0 {
			t = buf[len(buf)-1]
			buf = buf[:len(buf)-1]
		} else {
			if i >= len(toks) {
				break
			}
			t = toks[i]
			i++
		}
		var err error
		dispatch, err = dispatch(t)
		if err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

// LibraryInfo is the parsed form of a .NET assembly-qualified library name.
type LibraryInfo struct {
	Name             string
	Version          string
	Culture          string
	PublicKeyToken   string
	HasPublicKeyToken bool
}

// PropertiesRepr is the [bare items..., key=value...] split of a comma-
// separated property list, once the first "key=value" entry is seen
// everything after it must also be "key=value".
type PropertiesRepr struct {
	Items    []string
	Mappings map[string]string
}

// ParseProperties splits a CSV-like token run (from one bracket level of
// the intermediate form) into leading bare items and trailing key=value
// mappings.
func ParseProperties(csv []any) (PropertiesRepr, error) {
	var items []string
	mappings := make(map[string]string)
	itemsPart := true
	for _, c := range csv {
		s, ok := c.(string)
		if !ok {
			return PropertiesRepr{}, &xerr.InvalidClassName{Reason: fmt.Sprintf("invalid property representation: %v", csv)}
		}
		k, v, hasEq := strings.Cut(strings.TrimSpace(s), "=")
		if itemsPart {
			if hasEq {
				itemsPart = false
			} else {
				items = append(items, s)
			}
		}
		if !itemsPart {
			if !hasEq {
				return PropertiesRepr{}, &xerr.InvalidClassName{Reason: fmt.Sprintf("invalid property representation: %v", csv)}
			}
			mappings[k] = v
		}
	}
	return PropertiesRepr{Items: items, Mappings: mappings}, nil
}

// BuildLibraryInfoFromPropertyDict interprets a PropertiesRepr whose single
// item is the library name and whose mappings carry Version/Culture/
// PublicKeyToken.
func BuildLibraryInfoFromPropertyDict(repr PropertiesRepr) (LibraryInfo, error) {
	if len(repr.Items) == 0 {
		return LibraryInfo{}, &xerr.InvalidClassName{Reason: "missing library name"}
	}
	version, ok := repr.Mappings["Version"]
	if !ok {
		return LibraryInfo{}, &xerr.InvalidClassName{Reason: "missing Version"}
	}
	culture, ok := repr.Mappings["Culture"]
	if !ok {
		return LibraryInfo{}, &xerr.InvalidClassName{Reason: "missing Culture"}
	}
	pkt, hasPkt := repr.Mappings["PublicKeyToken"]
	return LibraryInfo{
		Name:             repr.Items[len(repr.Items)-1],
		Version:          version,
		Culture:          culture,
		PublicKeyToken:   pkt,
		HasPublicKeyToken: hasPkt,
	}, nil
}

// BuildConcreteClassInfoFromPropertyDict splits a one- or two-item bracket
// group into (class name, optional library).
func BuildConcreteClassInfoFromPropertyDict(repr PropertiesRepr) (string, *LibraryInfo, error) {
	if len(repr.Items) == 1 {
		if len(repr.Mappings) > 0 {
			return "", nil, &xerr.InvalidClassName{Reason: fmt.Sprintf("invalid property representation: %v", repr)}
		}
		return repr.Items[0], nil, nil
	}
	if len(repr.Items) != 2 {
		return "", nil, &xerr.InvalidClassName{Reason: fmt.Sprintf("invalid property representation: %v", repr)}
	}
	libRepr := PropertiesRepr{Items: repr.Items[1:], Mappings: repr.Mappings}
	lib, err := BuildLibraryInfoFromPropertyDict(libRepr)
	if err != nil {
		return "", nil, err
	}
	return repr.Items[0], &lib, nil
}

// ParametrizedClassInfo is the parsed form of a class-name spec: a simple
// or generic-arity name, its type parameters (each itself a
// ParametrizedClassInfo), and an optional library.
type ParametrizedClassInfo struct {
	Name       string
	Parameters []ParametrizedClassInfo
	Library    *LibraryInfo
}

func parseClassNameWithArity(token string) (string, int, error) {
	name, arityStr, hasArity := strings.Cut(token, "`")
	if !hasArity {
		return token, 0, nil
	}
	arity, err := strconv.Atoi(arityStr)
	if err != nil {
		return "", 0, &xerr.InvalidClassName{Reason: "invalid arity: " + arityStr}
	}
	return name, arity, nil
}

func parseClassNameInner(tokens []any, i int) (int, ParametrizedClassInfo, error) {
	if i >= len(tokens) {
		return 0, ParametrizedClassInfo{}, &xerr.InvalidClassName{Reason: "unexpected end of tokens"}
	}
	token := tokens[i]
	var info ParametrizedClassInfo
	var arity int
	var err error
	if s, ok := token.(string); ok {
		info.Name, arity, err = parseClassNameWithArity(s)
		if err != nil {
			return 0, ParametrizedClassInfo{}, err
		}
	} else {
		group, ok := token.([]any)
		if !ok {
			return 0, ParametrizedClassInfo{}, &xerr.InvalidClassName{Reason: "malformed class name token"}
		}
		repr, err2 := ParseProperties(group)
		if err2 != nil {
			return 0, ParametrizedClassInfo{}, err2
		}
		nameAndArity, lib, err2 := BuildConcreteClassInfoFromPropertyDict(repr)
		if err2 != nil {
			return 0, ParametrizedClassInfo{}, err2
		}
		info.Name, arity, err = parseClassNameWithArity(nameAndArity)
		if err != nil {
			return 0, ParametrizedClassInfo{}, err
		}
		info.Library = lib
	}
	i++

	if arity > 0 {
		if i >= len(tokens) {
			return 0, ParametrizedClassInfo{}, &xerr.InvalidClassName{Reason: "unexpected end of tokens"}
		}
		innerGroup, ok := tokens[i].([]any)
		if !ok {
			return 0, ParametrizedClassInfo{}, &xerr.InvalidClassName{Reason: "expected a bracketed parameter list"}
		}
		i++
		j := 0
		for len(info.Parameters) < arity {
			if j >= len(innerGroup) {
				return 0, ParametrizedClassInfo{}, &xerr.InvalidClassName{Reason: "unexpected end of tokens"}
			}
			var param ParametrizedClassInfo
			j, param, err = parseClassNameInner(innerGroup, j)
			if err != nil {
				return 0, ParametrizedClassInfo{}, err
			}
			info.Parameters = append(info.Parameters, param)
		}
		if j < len(innerGroup) {
			return 0, ParametrizedClassInfo{}, &xerr.InvalidClassName{Reason: fmt.Sprintf("redundant token %v", innerGroup[j:])}
		}
	}

	return i, info, nil
}

// Parse interprets a single assembly-qualified or bare class name.
func Parse(value string) (ParametrizedClassInfo, error) {
	intermediateTokens, err := parseIntoIntermediateForm(value)
	if err != nil {
		return ParametrizedClassInfo{}, err
	}
	_, info, err := parseClassNameInner(intermediateTokens, 0)
	return info, err
}

// SplitNamespaceAndName splits a dotted qualified name into its namespace
// (possibly empty) and final segment.
func SplitNamespaceAndName(qualifiedName string) (namespace string, name string, err error) {
	idx := strings.LastIndexByte(qualifiedName, '.')
	if idx < 0 {
		if qualifiedName == "" {
			return "", "", &xerr.InvalidClassName{Reason: "invalid qualified type name: " + qualifiedName}
		}
		return "", qualifiedName, nil
	}
	namespace = qualifiedName[:idx]
	name = qualifiedName[idx+1:]
	if name == "" {
		return "", "", &xerr.InvalidClassName{Reason: "invalid qualified type name: " + qualifiedName}
	}
	return namespace, name, nil
}
