package buystring

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	pkgerrors "github.com/krestenlaust/micro-stregsystemet/pkg/errors"
)

// DefaultMaxQuantity caps a single "id:quantity" item.
const DefaultMaxQuantity = 1000

// Result is a parsed buy string. ProductIDs repeats an id once per unit, in
// the order the items were typed. An empty ProductIDs with an Identity means
// the member menu should open; a zero Result means nothing was typed.
type Result struct {
	Identity   string
	ProductIDs []int64
}

// Empty reports whether nothing was typed.
func (r Result) Empty() bool {
	return r.Identity == "" && len(r.ProductIDs) == 0
}

// ParseError marks the first token the parser could not accept.
// Parsed+Failed is always the trimmed input as typed; Parsed ends on a token
// boundary.
type ParseError struct {
	Parsed string
	Failed string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("buy string: %s at column %d near %q", e.Reason, e.Column(), e.Failed)
}

// Column is the rune offset of the failing token within the trimmed input.
func (e *ParseError) Column() int {
	return utf8.RuneCountInString(e.Parsed)
}

// Pointer renders the caret line terminals print under the input.
func (e *ParseError) Pointer() string {
	return strings.Repeat("~", e.Column()) + "^"
}

// Typed maps the parse error onto the public error contract.
func (e *ParseError) Typed() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidInput, e.Reason).WithDetails(map[string]any{
		"parsed":  e.Parsed,
		"failed":  e.Failed,
		"column":  e.Column(),
		"pointer": e.Pointer(),
	})
}

// Parser turns a resolved buy string into an identity and product ids.
type Parser struct {
	MaxQuantity int
}

// Parse uses the default quantity cap.
func Parse(text string) (Result, error) {
	return Parser{MaxQuantity: DefaultMaxQuantity}.Parse(text)
}

// Parse implements
//
//	text     := identity SP item (SP item)*
//	identity := digit+
//	item     := product_id (":" quantity)?
//
// where any run of whitespace is a single separator.
func (p Parser) Parse(text string) (Result, error) {
	return p.ParseResolved(text, text)
}

// ParseResolved parses resolved, the alias-rewritten form of raw, and reports
// any ParseError against raw as typed. resolved must keep raw's tokens in
// place, which Resolver.Resolve does.
func (p Parser) ParseResolved(raw, resolved string) (Result, error) {
	trimmed := strings.TrimSpace(resolved)
	if trimmed == "" {
		return Result{}, nil
	}
	maxQuantity := p.MaxQuantity
	if maxQuantity <= 0 {
		maxQuantity = DefaultMaxQuantity
	}

	tokens := tokenize(trimmed)
	typed := strings.TrimSpace(raw)
	typedTokens := tokenize(typed)
	if len(typedTokens) != len(tokens) {
		typed, typedTokens = trimmed, tokens
	}
	fail := func(i int, reason string) (Result, error) {
		start := typedTokens[i].start
		return Result{}, &ParseError{
			Parsed: typed[:start],
			Failed: typed[start:],
			Reason: reason,
		}
	}

	if !isDigits(tokens[0].text) {
		return fail(0, "identity must be digits")
	}

	result := Result{Identity: tokens[0].text, ProductIDs: []int64{}}
	for i := 1; i < len(tokens); i++ {
		idText, qtyText, hasQty := strings.Cut(tokens[i].text, ":")
		if !isDigits(idText) {
			return fail(i, "product id must be digits")
		}
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil {
			return fail(i, "product id out of range")
		}

		quantity := 1
		if hasQty {
			if !isDigits(qtyText) {
				return fail(i, "quantity must be digits")
			}
			quantity, err = strconv.Atoi(qtyText)
			if err != nil || quantity > maxQuantity {
				return fail(i, fmt.Sprintf("quantity above %d", maxQuantity))
			}
		}

		for n := 0; n < quantity; n++ {
			result.ProductIDs = append(result.ProductIDs, id)
		}
	}
	return result, nil
}

type token struct {
	start int
	text  string
}

// tokenize splits on whitespace runs and keeps byte offsets.
func tokenize(s string) []token {
	var out []token
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, token{start: start, text: s[start:i]})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, token{start: start, text: s[start:]})
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
