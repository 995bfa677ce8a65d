package abodeql

import "strings"

// QueryParser is a hand-written, single-pass recursive parser with a
// one-character lookahead over the query runes.
type QueryParser struct {
	buf []rune
	idx int
}

// Parse parses a query string into a normalized node sequence:
// implicit ANDs are injected between bare neighbours and joiner/NOT
// placement is validated. Normalization is idempotent.
func Parse(query string) ([]Node, error) {
	p := &QueryParser{buf: []rune(query)}
	nodes, err := p.parse()
	if err != nil {
		return nil, err
	}
	return fixNodes(nodes, false)
}

func (p *QueryParser) next() (rune, bool) {
	if p.idx >= len(p.buf) {
		return 0, false
	}
	r := p.buf[p.idx]
	p.idx++
	return r, true
}

func (p *QueryParser) peek() (rune, bool) {
	if p.idx >= len(p.buf) {
		return 0, false
	}
	return p.buf[p.idx], true
}

// parse reads nodes until the end of the buffer or a closing paren.
func (p *QueryParser) parse() ([]Node, error) {
	var nodes []Node
	for {
		node, err := p.parseOne()
		if err != nil {
			return nil, err
		}
		if node == nil {
			return nodes, nil
		}
		nodes = append(nodes, node)
	}
}

// parseOne reads a single node, dispatching on the next non-space
// character. Returns nil at the end of the current sequence.
func (p *QueryParser) parseOne() (Node, error) {
	for {
		char, ok := p.next()
		if !ok || char == ')' {
			return nil, nil
		}

		switch {
		case char == ' ':
			continue

		case char == '"':
			value, err := p.parseString()
			if err != nil {
				return nil, err
			}
			return &String{Value: value}, nil

		case char == '(':
			children, err := p.parse()
			if err != nil {
				return nil, err
			}
			return &Group{Children: children}, nil

		case char == '/':
			return p.parseRegex()

		case char == '-' || char == '=':
			if next, ok := p.peek(); ok && next == '>' {
				p.next()
				return p.parseReturn()
			}
			// A bare - starts a symbol like any other character; a bare
			// = is a symbol terminator and is skipped below.
			fallthrough

		default:
			p.idx--
			symbol := p.parseSymbol()
			if symbol == "" {
				// The next character is a symbol terminator we do not
				// handle here (a stray : or =). Skip it.
				p.next()
				continue
			}

			if next, ok := p.peek(); ok && (next == ':' || next == '=') {
				p.next()
				value, err := p.parseOne()
				if err != nil {
					return nil, err
				}
				if value == nil {
					return nil, &ParseError{Message: "label has no value", Fragment: symbol}
				}
				return &Label{Name: symbol, Value: value, Exact: next == '='}, nil
			}

			return &Symbol{Value: symbol}, nil
		}
	}
}

// parseSymbol reads characters until a symbol terminator.
func (p *QueryParser) parseSymbol() string {
	var b strings.Builder
	for {
		char, ok := p.peek()
		if !ok || strings.ContainsRune(` :="()/`, char) {
			return b.String()
		}
		b.WriteRune(char)
		p.idx++
	}
}

// parseString reads a quoted literal up to the closing unescaped
// quote. A backslash escapes the character after it.
func (p *QueryParser) parseString() (string, error) {
	var b strings.Builder
	for {
		char, ok := p.next()
		if !ok {
			return "", &ParseError{Message: "unterminated string", Fragment: b.String()}
		}
		switch char {
		case '"':
			return b.String(), nil
		case '\\':
			escaped, ok := p.next()
			if !ok {
				return "", &ParseError{Message: "unterminated string", Fragment: b.String()}
			}
			b.WriteRune(escaped)
		default:
			b.WriteRune(char)
		}
	}
}

// parseRegex reads a /…/ pattern plus trailing flags. Inside the
// pattern a backslash escapes the delimiter only; any other backslash
// sequence is preserved verbatim for the downstream regex engine.
func (p *QueryParser) parseRegex() (Node, error) {
	var b strings.Builder
	for {
		char, ok := p.next()
		if !ok {
			return nil, &ParseError{Message: "unterminated regex", Fragment: b.String()}
		}
		if char == '/' {
			break
		}
		if char == '\\' {
			if next, ok := p.peek(); ok && next == '/' {
				b.WriteRune('/')
				p.idx++
				continue
			}
		}
		b.WriteRune(char)
	}

	re := &Regex{Pattern: b.String()}
	for {
		char, ok := p.peek()
		if !ok || !isFlagRune(char) {
			return re, nil
		}
		p.idx++
		if char != 'i' {
			return nil, &ParseError{Message: "unknown regex flag", Fragment: string(char)}
		}
		re.CaseInsensitive = true
	}
}

func isFlagRune(r rune) bool {
	return r >= 'a' && r <= 'z'
}

// parseReturn reads the field list after a -> or => arrow. Fields are
// whitespace-separated symbols; dotted paths are allowed.
func (p *QueryParser) parseReturn() (Node, error) {
	ret := &Return{}
	for {
		char, ok := p.peek()
		if !ok || char == ')' {
			return ret, nil
		}
		if char == ' ' {
			p.idx++
			continue
		}
		if strings.ContainsRune(`:="(/`, char) {
			return nil, &ParseError{Message: "return fields must be symbols", Fragment: string(char)}
		}
		field := p.parseSymbol()
		if field == "" {
			return nil, &ParseError{Message: "return fields must be symbols", Fragment: string(char)}
		}
		ret.Fields = append(ret.Fields, field)
	}
}

// fixNodes validates joiner placement and injects the implicit AND
// between adjacent non-joiner nodes. Return nodes are not filters and
// never participate in implicit-AND insertion. Nodes are not mutated;
// groups are rebuilt with fixed children. A leading NOT is legal at
// the start of a group but not at the top level.
func fixNodes(nodes []Node, inGroup bool) ([]Node, error) {
	result := make([]Node, 0, len(nodes))
	var previous Node

	for _, node := range nodes {
		switch v := node.(type) {
		case *Group:
			fixed, err := fixNodes(v.Children, true)
			if err != nil {
				return nil, err
			}
			node = &Group{Children: fixed}

		case *Symbol:
			if v.Value == wordNot {
				if previous == nil {
					if !inGroup {
						return nil, &JoinerError{Message: "NOT requires a joiner prefix"}
					}
				} else if !isJoinerNode(previous) {
					return nil, &JoinerError{Message: "NOT requires a joiner prefix"}
				}
			} else if v.IsJoiner() {
				if previous != nil && isJoinerNode(previous) {
					return nil, &JoinerError{Message: "one side of a joiner cannot be another joiner"}
				}
				if previous == nil {
					return nil, &JoinerError{Message: "joiner requires a left-hand side"}
				}
			}

		case *Label:
			if group, ok := v.Value.(*Group); ok {
				fixed, err := fixNodes(group.Children, true)
				if err != nil {
					return nil, err
				}
				node = &Label{Name: v.Name, Value: &Group{Children: fixed}, Exact: v.Exact}
			}
		}

		if needsImplicitAnd(previous, node) {
			result = append(result, &Symbol{Value: joinerAnd})
		}
		previous = node
		result = append(result, node)
	}

	return result, nil
}

func needsImplicitAnd(previous, node Node) bool {
	if previous == nil {
		return false
	}
	if isJoinerOrNot(previous) || isJoinerNode(node) {
		return false
	}
	if _, ok := previous.(*Return); ok {
		return false
	}
	if _, ok := node.(*Return); ok {
		return false
	}
	return true
}
