package syntax

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Error is a syntax error at a location.
type Error struct {
	Message string
	Loc     *SourceLocation
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Message)
}

func (e *Error) GetSourceLocation() *SourceLocation { return e.Loc }

type parser struct {
	filename string
	tokens   []Token
	pos      int
}

// ParseFile reads and parses a program from disk.
func ParseFile(filename string) (*Program, []byte, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read %s", filename)
	}
	prog, err := ParseProgram(filename, source)
	return prog, source, err
}

// ParseProgram parses a sequence of top-level declarations. A bare
// expression is treated as the declaration "main".
func ParseProgram(filename string, source []byte) (*Program, error) {
	p, err := newParser(filename, string(source))
	if err != nil {
		return nil, err
	}
	prog := &Program{Filename: filename}
	sawMain := false
	for p.cur().Type != EOF {
		if p.cur().Type == DEF {
			p.advance()
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(ASSIGN); err != nil {
				return nil, err
			}
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			prog.Decls = append(prog.Decls, &Decl{Name: name, Value: value})
			continue
		}
		if sawMain {
			return nil, p.errorf(p.cur(), "expected 'def' or end of input, found %s", p.cur().Type)
		}
		start := p.cur()
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sawMain = true
		prog.Decls = append(prog.Decls, &Decl{
			Name:  &Ident{Name: "main", Loc: p.loc(start)},
			Value: value,
		})
	}
	return prog, nil
}

// ParseExpr parses a single expression and requires the input to end after it.
func ParseExpr(filename, source string) (Expr, error) {
	p, err := newParser(filename, source)
	if err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().Type != EOF {
		return nil, p.errorf(p.cur(), "unexpected %s after expression", p.cur().Type)
	}
	return expr, nil
}

func newParser(filename, source string) (*parser, error) {
	lex := NewLexer(source)
	p := &parser{filename: filename}
	for {
		tok, err := lex.NextToken()
		if err != nil {
			var synErr *Error
			if errors.As(err, &synErr) {
				synErr.Loc.Filename = filename
			}
			return nil, err
		}
		p.tokens = append(p.tokens, tok)
		if tok.Type == EOF {
			return p, nil
		}
	}
}

func (p *parser) cur() Token { return p.tokens[p.pos] }

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) loc(tok Token) *SourceLocation {
	return &SourceLocation{
		Filename: p.filename,
		Line:     tok.Line,
		Column:   tok.Column,
		Length:   max(tok.Width, 1),
	}
}

func (p *parser) errorf(tok Token, format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...), Loc: p.loc(tok)}
}

func (p *parser) expect(tt TokenType) (Token, error) {
	tok := p.cur()
	if tok.Type != tt {
		return tok, p.errorf(tok, "expected %s, found %s", tt, tok.Type)
	}
	return p.advance(), nil
}

func (p *parser) expectIdent() (*Ident, error) {
	tok, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	return &Ident{Name: tok.Lexeme, Loc: p.loc(tok)}, nil
}

func (p *parser) parseExpr() (Expr, error) {
	switch p.cur().Type {
	case LET:
		return p.parseLet()
	case FUN:
		return p.parseLambda()
	case IF:
		return p.parseIf()
	default:
		return p.parseComparison()
	}
}

func (p *parser) parseLet() (Expr, error) {
	letTok := p.advance()
	let := &Let{Loc: p.loc(letTok)}
	if p.cur().Type == REC {
		p.advance()
		let.Rec = true
	}
	for {
		b, err := p.parseBinding()
		if err != nil {
			return nil, err
		}
		let.Bindings = append(let.Bindings, b)
		if p.cur().Type != AND {
			break
		}
		p.advance()
	}
	if _, err := p.expect(IN); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	let.Body = body
	return let, nil
}

func (p *parser) parseBinding() (*Binding, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	b := &Binding{Name: name}
	for p.cur().Type == IDENT {
		param, _ := p.expectIdent()
		b.Params = append(b.Params, param)
	}
	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	b.Value = value
	return b, nil
}

func (p *parser) parseLambda() (Expr, error) {
	funTok := p.advance()
	var params []*Ident
	for p.cur().Type == IDENT {
		param, _ := p.expectIdent()
		params = append(params, param)
	}
	if len(params) == 0 {
		return nil, p.errorf(p.cur(), "expected parameter name, found %s", p.cur().Type)
	}
	if _, err := p.expect(ARROW); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	for i := len(params) - 1; i >= 0; i-- {
		loc := params[i].Loc
		if i == 0 {
			loc = p.loc(funTok)
		}
		body = &Lambda{Param: params[i], Body: body, Loc: loc}
	}
	return body, nil
}

func (p *parser) parseIf() (Expr, error) {
	ifTok := p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(THEN); err != nil {
		return nil, err
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ELSE); err != nil {
		return nil, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &If{Cond: cond, Then: then, Else: els, Loc: p.loc(ifTok)}, nil
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if tt := p.cur().Type; tt == EQ || tt == LT {
		opTok := p.advance()
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return &BinOp{Op: opTok.Lexeme, Left: left, Right: right, Loc: p.loc(opTok)}, nil
	}
	return left, nil
}

func (p *parser) parseSum() (Expr, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		tt := p.cur().Type
		if tt != PLUS && tt != MINUS && tt != CONCAT {
			return left, nil
		}
		opTok := p.advance()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Op: opTok.Lexeme, Left: left, Right: right, Loc: p.loc(opTok)}
	}
}

func (p *parser) parseProduct() (Expr, error) {
	left, err := p.parseApplication()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == STAR {
		opTok := p.advance()
		right, err := p.parseApplication()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Op: opTok.Lexeme, Left: left, Right: right, Loc: p.loc(opTok)}
	}
	return left, nil
}

func (p *parser) parseApplication() (Expr, error) {
	fn, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for startsAtom(p.cur().Type) {
		arg, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		fn = &Apply{Fn: fn, Arg: arg, Loc: arg.GetSourceLocation()}
	}
	return fn, nil
}

func startsAtom(tt TokenType) bool {
	switch tt {
	case INT, STRING, TRUE, FALSE, IDENT, LPAREN:
		return true
	}
	return false
}

func (p *parser) parseAtom() (Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case INT:
		p.advance()
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, p.errorf(tok, "integer literal out of range: %s", tok.Lexeme)
		}
		return &IntLit{Value: v, Loc: p.loc(tok)}, nil
	case STRING:
		p.advance()
		return &StringLit{Value: tok.Lexeme, Loc: p.loc(tok)}, nil
	case TRUE, FALSE:
		p.advance()
		return &BoolLit{Value: tok.Type == TRUE, Loc: p.loc(tok)}, nil
	case IDENT:
		p.advance()
		return &Var{Ident: &Ident{Name: tok.Lexeme, Loc: p.loc(tok)}}, nil
	case LPAREN:
		p.advance()
		if p.cur().Type == RPAREN {
			p.advance()
			return &UnitLit{Loc: p.loc(tok)}, nil
		}
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems := []Expr{first}
		for p.cur().Type == COMMA {
			p.advance()
			next, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, next)
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		if len(elems) == 1 {
			return first, nil
		}
		return &Tuple{Elems: elems, Loc: p.loc(tok)}, nil
	default:
		return nil, p.errorf(tok, "expected expression, found %s", tok.Type)
	}
}
