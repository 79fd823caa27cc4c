// Package parser converts SBML math expressions, both plain formula strings
// and MathML documents, into the algebraic intermediate representation.
package parser

import "fmt"

// TokenType represents the type of a formula token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber  // 1.5, 2e-3
	TokenIdent   // k1, Species_A
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPower   // ** or ^
	TokenLParen  // (
	TokenRParen  // )
	TokenComma   // ,
	TokenLess    // <
	TokenGreater // >
	TokenLessEq  // <=
	TokenGreatEq // >=
	TokenEq      // ==
	TokenNotEq   // !=
	TokenAnd     // &&
	TokenOr      // ||
	TokenBang    // !
	TokenIllegal
)

// Token represents a single token from the lexer.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%v, %q, %d}", t.Type, t.Literal, t.Pos)
}

// Lexer tokenizes formula strings.
type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.pos
	var tok Token

	switch l.ch {
	case 0:
		tok = Token{Type: TokenEOF, Literal: "", Pos: pos}
	case '+':
		tok = Token{Type: TokenPlus, Literal: "+", Pos: pos}
		l.readChar()
	case '-':
		tok = Token{Type: TokenMinus, Literal: "-", Pos: pos}
		l.readChar()
	case '*':
		if l.peekChar() == '*' {
			l.readChar()
			tok = Token{Type: TokenPower, Literal: "**", Pos: pos}
			l.readChar()
		} else {
			tok = Token{Type: TokenStar, Literal: "*", Pos: pos}
			l.readChar()
		}
	case '/':
		tok = Token{Type: TokenSlash, Literal: "/", Pos: pos}
		l.readChar()
	case '^':
		tok = Token{Type: TokenPower, Literal: "^", Pos: pos}
		l.readChar()
	case '(':
		tok = Token{Type: TokenLParen, Literal: "(", Pos: pos}
		l.readChar()
	case ')':
		tok = Token{Type: TokenRParen, Literal: ")", Pos: pos}
		l.readChar()
	case ',':
		tok = Token{Type: TokenComma, Literal: ",", Pos: pos}
		l.readChar()
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenLessEq, Literal: "<=", Pos: pos}
		} else {
			tok = Token{Type: TokenLess, Literal: "<", Pos: pos}
		}
		l.readChar()
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenGreatEq, Literal: ">=", Pos: pos}
		} else {
			tok = Token{Type: TokenGreater, Literal: ">", Pos: pos}
		}
		l.readChar()
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenEq, Literal: "==", Pos: pos}
			l.readChar()
		} else {
			tok = Token{Type: TokenIllegal, Literal: "=", Pos: pos}
			l.readChar()
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenNotEq, Literal: "!=", Pos: pos}
			l.readChar()
		} else {
			tok = Token{Type: TokenBang, Literal: "!", Pos: pos}
			l.readChar()
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = Token{Type: TokenAnd, Literal: "&&", Pos: pos}
			l.readChar()
		} else {
			tok = Token{Type: TokenIllegal, Literal: "&", Pos: pos}
			l.readChar()
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = Token{Type: TokenOr, Literal: "||", Pos: pos}
			l.readChar()
		} else {
			tok = Token{Type: TokenIllegal, Literal: "|", Pos: pos}
			l.readChar()
		}
	default:
		if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
			return Token{Type: TokenNumber, Literal: l.readNumber(), Pos: pos}
		}
		if isIdentStart(l.ch) {
			return Token{Type: TokenIdent, Literal: l.readIdentifier(), Pos: pos}
		}
		tok = Token{Type: TokenIllegal, Literal: string(l.ch), Pos: pos}
		l.readChar()
	}

	return tok
}

// readNumber reads a decimal literal with optional fraction and exponent.
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) {
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		} else if (next == '+' || next == '-') && l.readPos+1 < len(l.input) && isDigit(l.input[l.readPos+1]) {
			l.readChar()
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
