package syntax

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenType int

const (
	EOF TokenType = iota
	IDENT
	INT
	STRING

	LET
	REC
	AND
	IN
	FUN
	IF
	THEN
	ELSE
	TRUE
	FALSE
	DEF

	ASSIGN // =
	EQ     // ==
	LT     // <
	ARROW  // ->
	PLUS   // +
	MINUS  // -
	CONCAT // ++
	STAR   // *
	LPAREN
	RPAREN
	COMMA
)

var keywords = map[string]TokenType{
	"let":   LET,
	"rec":   REC,
	"and":   AND,
	"in":    IN,
	"fun":   FUN,
	"if":    IF,
	"then":  THEN,
	"else":  ELSE,
	"true":  TRUE,
	"false": FALSE,
	"def":   DEF,
}

var tokenNames = map[TokenType]string{
	EOF:    "end of input",
	IDENT:  "identifier",
	INT:    "integer",
	STRING: "string",
	ASSIGN: "'='",
	EQ:     "'=='",
	LT:     "'<'",
	ARROW:  "'->'",
	PLUS:   "'+'",
	MINUS:  "'-'",
	CONCAT: "'++'",
	STAR:   "'*'",
	LPAREN: "'('",
	RPAREN: "')'",
	COMMA:  "','",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	for kw, tt := range keywords {
		if tt == t {
			return "'" + kw + "'"
		}
	}
	return fmt.Sprintf("token(%d)", int(t))
}

type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Column int
	// Width is the source span in runes, including quotes and escapes.
	Width int
}

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int
	column       int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	l.position = l.readPosition
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.readPosition++
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.readPosition += w
	l.column++
}

func (l *Lexer) eof() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-':
			for l.ch != '\n' && !l.eof() {
				l.readChar()
			}
		default:
			return
		}
	}
}

// NextToken returns the next token, or an error for malformed input.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespaceAndComments()

	line, col := l.line, l.column
	start := l.position
	tok := func(tt TokenType, lexeme string) Token {
		width := utf8.RuneCountInString(l.input[start:min(l.position, len(l.input))])
		return Token{Type: tt, Lexeme: lexeme, Line: line, Column: col, Width: width}
	}

	switch {
	case l.eof():
		return tok(EOF, ""), nil
	case l.ch == '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return tok(EQ, "=="), nil
		}
		l.readChar()
		return tok(ASSIGN, "="), nil
	case l.ch == '-':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return tok(ARROW, "->"), nil
		}
		l.readChar()
		return tok(MINUS, "-"), nil
	case l.ch == '+':
		if l.peekChar() == '+' {
			l.readChar()
			l.readChar()
			return tok(CONCAT, "++"), nil
		}
		l.readChar()
		return tok(PLUS, "+"), nil
	case l.ch == '*':
		l.readChar()
		return tok(STAR, "*"), nil
	case l.ch == '<':
		l.readChar()
		return tok(LT, "<"), nil
	case l.ch == '(':
		l.readChar()
		return tok(LPAREN, "("), nil
	case l.ch == ')':
		l.readChar()
		return tok(RPAREN, ")"), nil
	case l.ch == ',':
		l.readChar()
		return tok(COMMA, ","), nil
	case l.ch == '"':
		s, err := l.readString()
		if err != nil {
			return Token{}, &Error{Message: err.Error(), Loc: &SourceLocation{Line: line, Column: col, Length: 1}}
		}
		return tok(STRING, s), nil
	case isDigit(l.ch):
		for isDigit(l.ch) {
			l.readChar()
		}
		return tok(INT, l.input[start:l.position]), nil
	case isLetter(l.ch):
		for isLetter(l.ch) || isDigit(l.ch) || l.ch == '\'' {
			l.readChar()
		}
		word := l.input[start:l.position]
		if kw, ok := keywords[word]; ok {
			return tok(kw, word), nil
		}
		return tok(IDENT, word), nil
	default:
		ch := l.ch
		l.readChar()
		return Token{}, &Error{
			Message: fmt.Sprintf("unexpected character %q", ch),
			Loc:     &SourceLocation{Line: line, Column: col, Length: 1},
		}
	}
}

func (l *Lexer) readString() (string, error) {
	var sb strings.Builder
	l.readChar() // opening quote
	for {
		if l.eof() || l.ch == '\n' {
			return "", fmt.Errorf("unterminated string literal")
		}
		switch l.ch {
		case '"':
			l.readChar()
			return sb.String(), nil
		case '\\':
			l.readChar()
			if l.eof() {
				return "", fmt.Errorf("unterminated string literal")
			}
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '"', '\\':
				sb.WriteRune(l.ch)
			default:
				return "", fmt.Errorf("unknown escape sequence \\%c", l.ch)
			}
			l.readChar()
		default:
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
