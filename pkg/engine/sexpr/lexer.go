package sexpr

import (
	"strconv"
	"strings"
	"unicode"
)

// TokenKind classifies a Token.
type TokenKind int

const (
	TokenLParen TokenKind = iota
	TokenRParen
	TokenSymbol
	TokenNumber
)

// Token is one lexeme and where it was found.
type Token struct {
	Kind   TokenKind
	Region Region
	Text   string  // symbol text
	Number float64 // numeric value
}

// Lexer turns source text into tokens.
// Lexing continues past bad characters so every error in the input is reported.
type Lexer struct {
	input []rune
	pos   int

	line, col           int
	startLine, startCol int

	tokens []Token
	errors ErrorList
}

// Lex tokenizes input, returning every valid token and every error found.
func Lex(input string) ([]Token, ErrorList) {
	l := &Lexer{
		input: []rune(input),
		line:  1,
		col:   1,
	}
	for l.pos < len(l.input) {
		l.next()
	}
	return l.tokens, l.errors
}

func (l *Lexer) next() {
	l.startLine = l.line
	l.startCol = l.col
	c := l.advance()

	switch {
	case c == '\n':
		l.line++
		l.col = 1
	case c == '(':
		l.emit(Token{Kind: TokenLParen})
	case c == ')':
		l.emit(Token{Kind: TokenRParen})
	case unicode.IsSpace(c):
	case c >= '0' && c <= '9':
		l.number(c)
	case isSymbolStart(c):
		l.symbol(c)
	default:
		l.errors = append(l.errors, &SyntaxError{Kind: ErrBadChar, Line: l.line, Col: l.col - 1, Char: c})
	}
}

func (l *Lexer) number(first rune) {
	var b strings.Builder
	b.WriteRune(first)
	l.digits(&b)

	if c, ok := l.peek(); ok && c == '.' {
		b.WriteRune(l.advance())
		l.digits(&b)
	}

	n, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		l.errors = append(l.errors, &SyntaxError{Kind: ErrNumber, Line: l.line, Col: l.col - 1, Detail: err.Error()})
		return
	}
	l.emit(Token{Kind: TokenNumber, Number: n})
}

func (l *Lexer) digits(b *strings.Builder) {
	for {
		c, ok := l.peek()
		if !ok || c < '0' || c > '9' {
			return
		}
		b.WriteRune(l.advance())
	}
}

func (l *Lexer) symbol(first rune) {
	var b strings.Builder
	b.WriteRune(first)
	for {
		c, ok := l.peek()
		if !ok || !isSymbol(c) {
			break
		}
		b.WriteRune(l.advance())
	}
	l.emit(Token{Kind: TokenSymbol, Text: b.String()})
}

// emit records a token spanning from the token start to the last consumed character.
func (l *Lexer) emit(tok Token) {
	tok.Region = NewRegion(l.startLine, l.startCol, l.line, l.col-1)
	l.tokens = append(l.tokens, tok)
}

func (l *Lexer) peek() (rune, bool) {
	if l.pos >= len(l.input) {
		return 0, false
	}
	return l.input[l.pos], true
}

func (l *Lexer) advance() rune {
	c := l.input[l.pos]
	l.pos++
	l.col++
	return c
}

func isMisc(c rune) bool {
	return strings.ContainsRune("*.!-_?$%&=<>/:#+", c)
}

func isSymbolStart(c rune) bool {
	return unicode.IsLetter(c) || isMisc(c)
}

func isSymbol(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsNumber(c) || isMisc(c)
}
