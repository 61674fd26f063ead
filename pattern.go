package strudel

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type (
	// TokenKind tells what a single pattern token is: a hit that triggers a
	// sound, a rest, or one of the two bracketed group constructs.
	TokenKind int

	// Token is one step of a pattern. Tokens are immutable once parsed; all
	// compilation works on copies of the values inside them. Sound, Variant
	// and Repeat are meaningful for Hit tokens only, Children for Alternation
	// and Subdivision tokens only.
	Token struct {
		Kind     TokenKind
		Sound    string  // sample or note name, e.g. "bd", "conga" or "eb2"
		Variant  int     // sample variant from a name:variant suffix; -1 when absent
		Repeat   int     // repeat count from a name*k suffix; 1 when absent
		Children []Token // members of an alternation or subdivision group
	}

	// Pattern is the ordered token sequence of exactly one cycle. A valid
	// Pattern always has at least one token; parsing an empty string yields a
	// single rest.
	Pattern []Token
)

const (
	Hit TokenKind = iota
	Rest
	// Alternation is the <a b c> construct: each cycle plays one member,
	// selected by the cycle index modulo the group length.
	Alternation
	// Subdivision is the [a b c] construct: the members subdivide the slot
	// equally within a single cycle.
	Subdivision
)

// ParseError is returned when a pattern expression is malformed. Token is the
// offending substring and Offset its byte offset in the parsed text.
type ParseError struct {
	Token  string
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pattern syntax error at offset %v: %v: %q", e.Offset, e.Msg, e.Token)
}

// Parse converts the mini-notation text of one cycle into a Pattern. Tokens
// are separated by whitespace at the top level; whitespace inside <...> and
// [...] groups does not split. An empty or blank string parses into a single
// rest, so that every Pattern spans a full cycle.
func Parse(text string) (Pattern, error) {
	spans, err := splitSpans(text, 0)
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return Pattern{{Kind: Rest}}, nil
	}
	pattern := make(Pattern, 0, len(spans))
	for _, s := range spans {
		token, err := parseToken(s.text, s.offset)
		if err != nil {
			return nil, err
		}
		pattern = append(pattern, token)
	}
	return pattern, nil
}

func (t *Token) Copy() Token {
	children := make([]Token, len(t.Children))
	for i, c := range t.Children {
		children[i] = c.Copy()
	}
	if t.Children == nil {
		children = nil
	}
	return Token{Kind: t.Kind, Sound: t.Sound, Variant: t.Variant, Repeat: t.Repeat, Children: children}
}

func (p Pattern) Copy() Pattern {
	tokens := make(Pattern, len(p))
	for i, t := range p {
		tokens[i] = t.Copy()
	}
	return tokens
}

// String renders the pattern back into its mini-notation text. Parsing the
// result yields the original Pattern.
func (p Pattern) String() string {
	parts := make([]string, len(p))
	for i, t := range p {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

func (t Token) String() string {
	switch t.Kind {
	case Rest:
		return "~"
	case Hit:
		s := t.Sound
		if t.Variant >= 0 {
			s += ":" + strconv.Itoa(t.Variant)
		}
		if t.Repeat > 1 {
			s += "*" + strconv.Itoa(t.Repeat)
		}
		return s
	case Alternation:
		return "<" + Pattern(t.Children).String() + ">"
	case Subdivision:
		return "[" + Pattern(t.Children).String() + "]"
	}
	return ""
}

// Patterns serialize as their mini-notation text, so a composition yaml reads
// the same way the live-coding scripts do.
func (p Pattern) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

func (p *Pattern) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	parsed, err := Parse(text)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// span is a top-level token substring and its byte offset in the input.
type span struct {
	text   string
	offset int
}

// splitSpans splits text on whitespace, but tracks bracket nesting so that
// spaces inside groups do not split. base is added to every reported offset,
// so that errors inside nested groups point into the original string.
func splitSpans(text string, base int) ([]span, error) {
	var spans []span
	depth := 0
	start := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '<', '[':
			depth++
			if start < 0 {
				start = i
			}
		case '>', ']':
			depth--
			if depth < 0 {
				return nil, &ParseError{Token: string(c), Offset: base + i, Msg: "unmatched closing bracket"}
			}
		case ' ', '\t', '\n', '\r':
			if depth == 0 && start >= 0 {
				spans = append(spans, span{text[start:i], base + start})
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if depth > 0 {
		return nil, &ParseError{Token: text[start:], Offset: base + start, Msg: "unclosed group"}
	}
	if start >= 0 {
		spans = append(spans, span{text[start:], base + start})
	}
	return spans, nil
}

func parseToken(text string, offset int) (Token, error) {
	if text == "~" {
		return Token{Kind: Rest}, nil
	}
	if text[0] == '<' || text[0] == '[' {
		return parseGroup(text, offset)
	}
	name := text
	repeat := 1
	variant := -1
	if base, suffix, found := strings.Cut(name, "*"); found {
		k, err := strconv.Atoi(suffix)
		if err != nil || k < 1 {
			return Token{}, &ParseError{Token: text, Offset: offset, Msg: "repeat count must be a positive integer"}
		}
		name, repeat = base, k
	}
	if base, suffix, found := strings.Cut(name, ":"); found {
		v, err := strconv.Atoi(suffix)
		if err != nil || v < 0 {
			return Token{}, &ParseError{Token: text, Offset: offset, Msg: "sample variant must be a non-negative integer"}
		}
		name, variant = base, v
	}
	if name == "" || strings.ContainsAny(name, "<>[]~*:") {
		return Token{}, &ParseError{Token: text, Offset: offset, Msg: "unrecognized token"}
	}
	return Token{Kind: Hit, Sound: name, Variant: variant, Repeat: repeat}, nil
}

func parseGroup(text string, offset int) (Token, error) {
	kind := Alternation
	closing := byte('>')
	if text[0] == '[' {
		kind = Subdivision
		closing = ']'
	}
	depth := 0
	end := -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '<', '[':
			depth++
		case '>', ']':
			depth--
			if depth == 0 {
				if text[i] != closing {
					return Token{}, &ParseError{Token: text, Offset: offset, Msg: "mismatched brackets"}
				}
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	// splitSpans already guarantees the group is closed somewhere in text, but
	// there may be trailing characters glued to the closing bracket.
	if end != len(text)-1 {
		return Token{}, &ParseError{Token: text[end+1:], Offset: offset + end + 1, Msg: "unexpected text after group"}
	}
	spans, err := splitSpans(text[1:end], offset+1)
	if err != nil {
		return Token{}, err
	}
	if len(spans) == 0 {
		return Token{}, &ParseError{Token: text, Offset: offset, Msg: "empty group"}
	}
	children := make([]Token, 0, len(spans))
	for _, s := range spans {
		child, err := parseToken(s.text, s.offset)
		if err != nil {
			return Token{}, err
		}
		children = append(children, child)
	}
	return Token{Kind: kind, Children: children}, nil
}
