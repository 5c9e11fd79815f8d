package buystring

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// AliasLookup resolves lower-case alias names to product ids. Unknown names
// are absent from the result.
type AliasLookup interface {
	LookupNames(ctx context.Context, names []string) (map[string]int64, error)
}

// Resolver rewrites product aliases in a raw buy string into product ids.
type Resolver struct {
	aliases AliasLookup
}

func NewResolver(aliases AliasLookup) (*Resolver, error) {
	if aliases == nil {
		return nil, errors.New("alias lookup required")
	}
	return &Resolver{aliases: aliases}, nil
}

// Resolve replaces every known alias after the identity token with its product
// id, keeping any ":quantity" suffix and every whitespace byte as typed.
// Unknown names are left for the parser to reject. Token positions shift, so
// errors are located with Parser.ParseResolved against the raw string.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	segments := split(raw)

	var names []string
	seen := map[string]struct{}{}
	first := true
	for i := range segments {
		seg := &segments[i]
		if seg.space {
			continue
		}
		if first {
			first = false
			continue
		}
		name, _, _ := strings.Cut(seg.text, ":")
		if name == "" || isDigits(name) {
			continue
		}
		seg.alias = strings.ToLower(name)
		seg.suffix = seg.text[len(name):]
		if _, ok := seen[seg.alias]; !ok {
			seen[seg.alias] = struct{}{}
			names = append(names, seg.alias)
		}
	}
	if len(names) == 0 {
		return raw, nil
	}

	ids, err := r.aliases.LookupNames(ctx, names)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, seg := range segments {
		if id, ok := ids[seg.alias]; ok && seg.alias != "" {
			b.WriteString(strconv.FormatInt(id, 10))
			b.WriteString(seg.suffix)
			continue
		}
		b.WriteString(seg.text)
	}
	return b.String(), nil
}

type segment struct {
	text   string
	space  bool
	alias  string
	suffix string
}

// split cuts s into alternating whitespace and token segments that
// concatenate back to s.
func split(s string) []segment {
	var out []segment
	start := 0
	inSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i == 0 {
			inSpace = space
			continue
		}
		if space != inSpace {
			out = append(out, segment{text: s[start:i], space: inSpace})
			start = i
			inSpace = space
		}
	}
	if start < len(s) {
		out = append(out, segment{text: s[start:], space: inSpace})
	}
	return out
}
