package front

import (
	"strconv"

	"tlog.app/go/errors"
)

type (
	kind int

	token struct {
		kind kind
		text string // raw text, unescaped value for char and string
		pos  int
	}
)

const (
	tEOF kind = iota
	tIdent
	tInt
	tChar
	tString
	tPunct
)

// longest first
var puncts = []string{
	"<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "++", "--",
	"(", ")", "{", "}", ",", ";", "=",
	"+", "-", "*", "/", "%", "^", "&", "|", "!", "~", "<", ">",
}

func (k kind) String() string {
	switch k {
	case tEOF:
		return "end of file"
	case tIdent:
		return "identifier"
	case tInt:
		return "integer"
	case tChar:
		return "char"
	case tString:
		return "string"
	case tPunct:
		return "punctuation"
	default:
		return "token?"
	}
}

// lex returns all tokens or the error offset.
func lex(b []byte) (ts []token, i int, err error) {
	var t token

	for {
		t, i, err = next(b, i)
		if err != nil {
			return nil, i, err
		}

		ts = append(ts, t)

		if t.kind == tEOF {
			return ts, i, nil
		}
	}
}

func next(b []byte, st int) (t token, i int, err error) {
	i, err = skipSpaces(b, st)
	if err != nil {
		return
	}

	st = i

	if i == len(b) {
		return token{kind: tEOF, pos: i}, i, nil
	}

	c := b[i]

	switch {
	case isLetter(c):
		i = skipIdent(b, i+1)

		return token{kind: tIdent, text: string(b[st:i]), pos: st}, i, nil
	case c >= '0' && c <= '9':
		i = skipIdent(b, i+1)

		return token{kind: tInt, text: string(b[st:i]), pos: st}, i, nil
	case c == '\'':
		var v []byte

		v, i, err = quoted(b, i)
		if err != nil {
			return
		}

		if len(v) != 1 {
			return t, st, errors.New("char literal must be one byte: %s", b[st:i])
		}

		return token{kind: tChar, text: string(v), pos: st}, i, nil
	case c == '"':
		var v []byte

		v, i, err = quoted(b, i)
		if err != nil {
			return
		}

		return token{kind: tString, text: string(v), pos: st}, i, nil
	}

	for _, p := range puncts {
		if i+len(p) <= len(b) && string(b[i:i+len(p)]) == p {
			return token{kind: tPunct, text: p, pos: st}, i + len(p), nil
		}
	}

	return t, st, errors.New("unexpected character: %q", c)
}

func quoted(b []byte, st int) (v []byte, i int, err error) {
	q := b[st]

	for i = st + 1; i < len(b); {
		c := b[i]

		switch c {
		case q:
			return v, i + 1, nil
		case '\n':
			return nil, st, errors.New("newline in literal")
		case '\\':
		default:
			v = append(v, c)
			i++

			continue
		}

		i++

		if i == len(b) {
			break
		}

		switch c = b[i]; c {
		case 'n':
			v = append(v, '\n')
		case 't':
			v = append(v, '\t')
		case 'r':
			v = append(v, '\r')
		case '0':
			v = append(v, 0)
		case '\\', '\'', '"':
			v = append(v, c)
		case 'x':
			if i+3 > len(b) {
				return nil, st, errors.New("bad hex escape")
			}

			x, err := strconv.ParseUint(string(b[i+1:i+3]), 16, 8)
			if err != nil {
				return nil, st, errors.Wrap(err, "hex escape")
			}

			v = append(v, byte(x))
			i += 2
		default:
			return nil, st, errors.New("unknown escape: \\%c", c)
		}

		i++
	}

	return nil, st, errors.New("unterminated literal")
}

func skipSpaces(b []byte, i int) (int, error) {
	for i < len(b) {
		switch {
		case b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r':
			i++
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '/':
			i = skipLine(b, i)
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '*':
			st := i

			for i += 2; i+1 < len(b) && (b[i] != '*' || b[i+1] != '/'); i++ {
			}

			if i+1 >= len(b) {
				return st, errors.New("unterminated comment")
			}

			i += 2
		default:
			return i, nil
		}
	}

	return i, nil
}

func isLetter(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_'
}

func skipIdent(b []byte, i int) int {
	for i < len(b) && (isLetter(b[i]) || b[i] >= '0' && b[i] <= '9') {
		i++
	}

	return i
}

func skipLine(b []byte, i int) int {
	for i < len(b) && b[i] != '\n' {
		i++
	}

	return i
}
