package patternlang

import (
	"fmt"

	"github.com/acmatch/acmatch/internal/term"
)

// ConstraintResolver looks up a named constraint declared in a ruleset,
// bound to check one specific pattern variable — the interface
// internal/ruleset.Registry.Resolve satisfies, kept narrow here so
// patternlang does not import ruleset directly.
type ConstraintResolver interface {
	Resolve(name string, varName string) (term.Constraint, error)
}

// Parser turns pattern-language source into a term.Expression tree. It is a
// small hand-written recursive-descent parser, in the spirit of the
// teacher's internal/parser package but scaled to this DSL's much smaller
// grammar:
//
//	pattern   := atom whereClauses?
//	atom      := operation | variable | symbol
//	operation := IDENT '#' flags? '(' (atom (',' atom)*)? ')'
//	flags     := IDENT (',' IDENT)*
//	variable  := IDENT UNDERSCORES attrs?
//	attrs     := '{' attr (',' attr)* '}'
//	attr      := IDENT '=' (NUMBER | IDENT | STRING)
//	symbol    := IDENT
//	whereClauses := ('where' binding (',' binding)*)
//	binding   := IDENT CONSTRAINT '(' STRING ')'
type Parser struct {
	lex      *Lexer
	cur      Token
	peek     Token
	resolver ConstraintResolver
}

// NewParser returns a Parser over source. resolver may be nil if the source
// contains no where-clauses.
func NewParser(source string, resolver ConstraintResolver) *Parser {
	p := &Parser{lex: NewLexer(source), resolver: resolver}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func (p *Parser) errorf(format string, args ...any) error {
	return fmt.Errorf("patternlang:%d:%d: %s", p.cur.Line, p.cur.Column, fmt.Sprintf(format, args...))
}

// Parse consumes the whole source and returns the resulting expression.
func Parse(source string, resolver ConstraintResolver) (term.Expression, error) {
	p := NewParser(source, resolver)
	return p.ParseExpression()
}

// ParseExpression parses one top-level pattern, including any trailing
// where-clauses, and requires the source to be fully consumed.
func (p *Parser) ParseExpression() (term.Expression, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	bindings, err := p.parseWhereClauses()
	if err != nil {
		return nil, err
	}
	if len(bindings) > 0 {
		atom, err = applyConstraints(atom, bindings)
		if err != nil {
			return nil, err
		}
	}

	if p.cur.Type != EOF {
		return nil, p.errorf("unexpected trailing token %q", p.cur.Lexeme)
	}
	return atom, nil
}

func (p *Parser) parseAtom() (term.Expression, error) {
	if p.cur.Type != IDENT {
		return nil, p.errorf("expected an identifier, got %q", p.cur.Lexeme)
	}
	name := p.cur.Lexeme
	p.advance()

	switch p.cur.Type {
	case UNDERSCORE:
		return p.parseVariable(name)
	case HASH:
		return p.parseOperation(name)
	default:
		return term.NewSymbol(name), nil
	}
}

func (p *Parser) parseVariable(name string) (term.Expression, error) {
	underscores := p.cur.Lexeme
	p.advance()

	var inner term.Wildcard
	switch len(underscores) {
	case 1:
		inner = term.Wildcard{MinCount: 1, FixedSize: true}
	case 2:
		inner = term.Wildcard{MinCount: 1, FixedSize: false}
	default:
		inner = term.Wildcard{MinCount: 0, FixedSize: false}
	}

	if p.cur.Type == LBRACE {
		var err error
		inner, err = p.parseWildcardAttrs(inner)
		if err != nil {
			return nil, err
		}
	}

	return term.Variable{Name: name, Inner: inner}, nil
}

func (p *Parser) parseWildcardAttrs(inner term.Wildcard) (term.Wildcard, error) {
	p.advance() // consume '{'
	for {
		if p.cur.Type != IDENT {
			return inner, p.errorf("expected an attribute name, got %q", p.cur.Lexeme)
		}
		key := p.cur.Lexeme
		p.advance()
		if p.cur.Type != EQUALS {
			return inner, p.errorf("expected '=' after attribute %q", key)
		}
		p.advance()

		switch key {
		case "min":
			if p.cur.Type != NUMBER {
				return inner, p.errorf("expected a number for min=, got %q", p.cur.Lexeme)
			}
			n, err := parseNonNegativeInt(p.cur.Lexeme)
			if err != nil {
				return inner, p.errorf("invalid min= value: %v", err)
			}
			inner.MinCount = n
			p.advance()
		case "fixed":
			if p.cur.Type != IDENT {
				return inner, p.errorf("expected true/false for fixed=, got %q", p.cur.Lexeme)
			}
			inner.FixedSize = p.cur.Lexeme == "true"
			p.advance()
		case "type":
			if p.cur.Type != IDENT && p.cur.Type != STRING {
				return inner, p.errorf("expected a symbol subtype name for type=, got %q", p.cur.Lexeme)
			}
			subType := p.cur.Lexeme
			inner.SymbolType = func(e term.Expression) bool {
				sym, ok := e.(term.Symbol)
				return ok && sym.SubType == subType
			}
			p.advance()
		default:
			return inner, p.errorf("unknown wildcard attribute %q", key)
		}

		if p.cur.Type == COMMA {
			p.advance()
			continue
		}
		break
	}
	if p.cur.Type != RBRACE {
		return inner, p.errorf("expected '}', got %q", p.cur.Lexeme)
	}
	p.advance()
	return inner, nil
}

func (p *Parser) parseOperation(opType string) (term.Expression, error) {
	p.advance() // consume '#'

	var associative, commutative bool
	for p.cur.Type == IDENT {
		switch p.cur.Lexeme {
		case "assoc":
			associative = true
		case "comm":
			commutative = true
		default:
			return nil, p.errorf("unknown operator flag %q", p.cur.Lexeme)
		}
		p.advance()
		if p.cur.Type == COMMA {
			p.advance()
			continue
		}
		break
	}

	if p.cur.Type != LPAREN {
		return nil, p.errorf("expected '(' to start operands of %q, got %q", opType, p.cur.Lexeme)
	}
	p.advance()

	var operands []term.Expression
	if p.cur.Type != RPAREN {
		for {
			operand, err := p.parseAtom()
			if err != nil {
				return nil, err
			}
			operands = append(operands, operand)
			if p.cur.Type == COMMA {
				p.advance()
				continue
			}
			break
		}
	}
	if p.cur.Type != RPAREN {
		return nil, p.errorf("expected ')' to close operands of %q, got %q", opType, p.cur.Lexeme)
	}
	p.advance()

	return term.Operation{OpType: opType, Operands: operands, Associative: associative, Commutative: commutative}, nil
}

// parseWhereClauses parses an optional "where x constraint(\"name\")"
// clause with one or more comma-separated bindings, returning the resolved term.Constraint per variable name.
func (p *Parser) parseWhereClauses() (map[string]term.Constraint, error) {
	if p.cur.Type != WHERE {
		return nil, nil
	}
	p.advance()

	bindings := map[string]term.Constraint{}
	for {
		if p.cur.Type != IDENT {
			return nil, p.errorf("expected a variable name in a where-clause, got %q", p.cur.Lexeme)
		}
		varName := p.cur.Lexeme
		p.advance()

		if p.cur.Type != CONSTRAINT {
			return nil, p.errorf("expected %q after %q in a where-clause", "constraint", varName)
		}
		p.advance()

		if p.cur.Type != LPAREN {
			return nil, p.errorf("expected '(' after constraint")
		}
		p.advance()

		if p.cur.Type != STRING {
			return nil, p.errorf("expected a quoted constraint name")
		}
		cname := p.cur.Lexeme
		p.advance()

		if p.cur.Type != RPAREN {
			return nil, p.errorf("expected ')' to close constraint(...)")
		}
		p.advance()

		if p.resolver == nil {
			return nil, p.errorf("a where-clause requires a constraint resolver (ruleset)")
		}
		c, err := p.resolver.Resolve(cname, varName)
		if err != nil {
			return nil, p.errorf("resolving constraint %q for %q: %v", cname, varName, err)
		}
		bindings[varName] = term.CombineConstraints(bindings[varName], c)

		if p.cur.Type == COMMA {
			p.advance()
			continue
		}
		break
	}
	return bindings, nil
}

// applyConstraints reconstructs e, attaching each named constraint to every
// Symbol or Variable node whose name appears in bindings.
func applyConstraints(e term.Expression, bindings map[string]term.Constraint) (term.Expression, error) {
	switch v := e.(type) {
	case term.Symbol:
		if c, ok := bindings[v.Name]; ok {
			v.Constraint = term.CombineConstraints(v.Constraint, c)
		}
		return v, nil
	case term.Variable:
		if c, ok := bindings[v.Name]; ok {
			v.Constraint = term.CombineConstraints(v.Constraint, c)
		}
		return v, nil
	case term.Wildcard:
		return v, nil
	case term.Operation:
		newOperands := make([]term.Expression, len(v.Operands))
		for i, operand := range v.Operands {
			rewritten, err := applyConstraints(operand, bindings)
			if err != nil {
				return nil, err
			}
			newOperands[i] = rewritten
		}
		v.Operands = newOperands
		return v, nil
	default:
		return e, nil
	}
}

func parseNonNegativeInt(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a digit: %q", r)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
