package container

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	rePDFRef     = regexp.MustCompile(`^(\d+)\s+(\d+)\s+R$`)
	rePDFXRefObj = regexp.MustCompile(`/Type\s*/XRef\b`)
)

// pdfDict maps the top-level keys of a PDF dictionary to the raw bytes of
// their values. Nested dictionaries are kept as raw values.
type pdfDict map[string][]byte

func (d pdfDict) intValue(key string) (int, bool) {
	raw, ok := d[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

func (d pdfDict) nameValue(key string) string {
	raw := d[key]
	if len(raw) < 2 || raw[0] != '/' {
		return ""
	}
	return string(raw[1:])
}

func (d pdfDict) boolValue(key string, def bool) bool {
	switch string(d[key]) {
	case "true":
		return true
	case "false":
		return false
	}
	return def
}

func (d pdfDict) refValue(key string) (num, gen int, ok bool) {
	m := rePDFRef.FindSubmatch(d[key])
	if m == nil {
		return 0, 0, false
	}
	num, _ = strconv.Atoi(string(m[1]))
	gen, _ = strconv.Atoi(string(m[2]))
	return num, gen, true
}

func (d pdfDict) stringValue(key string) ([]byte, error) {
	raw, ok := d[key]
	if !ok {
		return nil, fmt.Errorf("key /%s missing", key)
	}
	return decodePDFString(raw)
}

// firstArrayString returns the first string element of an array value.
func (d pdfDict) firstArrayString(key string) ([]byte, error) {
	raw, ok := d[key]
	if !ok || len(raw) < 2 || raw[0] != '[' {
		return nil, fmt.Errorf("key /%s missing or not an array", key)
	}
	lx := &pdfLexer{data: raw, pos: 1}
	lx.skipSpace()
	elem, err := lx.value()
	if err != nil {
		return nil, fmt.Errorf("key /%s: %w", key, err)
	}
	return decodePDFString(elem)
}

type pdfLexer struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *pdfLexer) eof() bool {
	return l.pos >= len(l.data)
}

func (l *pdfLexer) skipSpace() {
	for !l.eof() {
		c := l.data[l.pos]
		switch {
		case isPDFSpace(c):
			l.pos++
		case c == '%':
			for !l.eof() && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *pdfLexer) peek(s string) bool {
	return bytes.HasPrefix(l.data[l.pos:], []byte(s))
}

func (l *pdfLexer) token() []byte {
	start := l.pos
	for !l.eof() && !isPDFSpace(l.data[l.pos]) && !isPDFDelim(l.data[l.pos]) {
		l.pos++
	}
	return l.data[start:l.pos]
}

// value consumes one object and returns its raw bytes. An integer followed
// by "gen R" is consumed as a single indirect reference.
func (l *pdfLexer) value() ([]byte, error) {
	l.skipSpace()
	if l.eof() {
		return nil, errors.New("unexpected end of data")
	}
	start := l.pos

	switch c := l.data[l.pos]; {
	case l.peek("<<"):
		l.pos += 2
		for {
			l.skipSpace()
			if l.eof() {
				return nil, errors.New("unterminated dictionary")
			}
			if l.peek(">>") {
				l.pos += 2
				return l.data[start:l.pos], nil
			}
			if _, err := l.value(); err != nil {
				return nil, err
			}
		}
	case c == '<':
		end := bytes.IndexByte(l.data[l.pos:], '>')
		if end < 0 {
			return nil, errors.New("unterminated hex string")
		}
		l.pos += end + 1
		return l.data[start:l.pos], nil
	case c == '(':
		depth := 0
		for ; !l.eof(); l.pos++ {
			switch l.data[l.pos] {
			case '\\':
				l.pos++
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					l.pos++
					return l.data[start:l.pos], nil
				}
			}
		}
		return nil, errors.New("unterminated literal string")
	case c == '[':
		l.pos++
		for {
			l.skipSpace()
			if l.eof() {
				return nil, errors.New("unterminated array")
			}
			if l.data[l.pos] == ']' {
				l.pos++
				return l.data[start:l.pos], nil
			}
			if _, err := l.value(); err != nil {
				return nil, err
			}
		}
	case c == '/':
		l.pos++
		l.token()
		return l.data[start:l.pos], nil
	case isPDFDelim(c):
		return nil, fmt.Errorf("unexpected %q at offset %d", c, l.pos)
	}

	tok := l.token()
	if len(tok) == 0 {
		return nil, fmt.Errorf("empty token at offset %d", l.pos)
	}
	if _, err := strconv.Atoi(string(tok)); err == nil {
		save := l.pos
		l.skipSpace()
		if gen := l.token(); len(gen) > 0 {
			if _, err := strconv.Atoi(string(gen)); err == nil {
				l.skipSpace()
				if r := l.token(); string(r) == "R" {
					return l.data[start:l.pos], nil
				}
			}
		}
		l.pos = save
	}
	return tok, nil
}

// parsePDFDict parses the dictionary starting at data[start], which must be
// the "<<" opener.
func parsePDFDict(data []byte, start int) (pdfDict, error) {
	lx := &pdfLexer{data: data, pos: start}
	if !lx.peek("<<") {
		return nil, errors.New("dictionary start not found")
	}
	lx.pos += 2

	dict := pdfDict{}
	for {
		lx.skipSpace()
		if lx.eof() {
			return nil, errors.New("unterminated dictionary")
		}
		if lx.peek(">>") {
			return dict, nil
		}
		key, err := lx.value()
		if err != nil {
			return nil, err
		}
		if len(key) < 2 || key[0] != '/' {
			return nil, fmt.Errorf("dictionary key expected, got %q", key)
		}
		val, err := lx.value()
		if err != nil {
			return nil, fmt.Errorf("value of %s: %w", key, err)
		}
		dict[string(key[1:])] = bytes.TrimSpace(val)
	}
}

// trailerDicts returns the document trailers, newest first: classic
// "trailer" dictionaries followed by cross-reference stream dictionaries.
func trailerDicts(data []byte) []pdfDict {
	var out []pdfDict

	for end := len(data); ; {
		idx := bytes.LastIndex(data[:end], []byte("trailer"))
		if idx < 0 {
			break
		}
		end = idx
		open := bytes.Index(data[idx:], []byte("<<"))
		if open < 0 {
			continue
		}
		if dict, err := parsePDFDict(data, idx+open); err == nil {
			out = append(out, dict)
		}
	}

	matches := rePDFXRefObj.FindAllIndex(data, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		header := bytes.LastIndex(data[:matches[i][0]], []byte("obj"))
		if header < 0 {
			continue
		}
		open := bytes.Index(data[header:], []byte("<<"))
		if open < 0 {
			continue
		}
		if dict, err := parsePDFDict(data, header+open); err == nil && dict.nameValue("Type") == "XRef" {
			out = append(out, dict)
		}
	}
	return out
}

// findPDFObject returns the dictionary of the newest "num gen obj".
func findPDFObject(data []byte, num, gen int) (pdfDict, error) {
	re := regexp.MustCompile(fmt.Sprintf(`(?:^|[^0-9])%d\s+%d\s+obj\b`, num, gen))
	matches := re.FindAllIndex(data, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("object %d %d not found", num, gen)
	}
	last := matches[len(matches)-1]
	open := bytes.Index(data[last[1]:], []byte("<<"))
	if open < 0 {
		return nil, fmt.Errorf("object %d %d has no dictionary", num, gen)
	}
	return parsePDFDict(data, last[1]+open)
}

func compactHexSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if isPDFSpace(s[i]) {
			continue
		}
		b.WriteByte(s[i])
	}
	out := b.String()
	if len(out)%2 == 1 {
		return out + "0"
	}
	return out
}

// decodePDFString decodes a hex or literal string token.
func decodePDFString(tok []byte) ([]byte, error) {
	tok = bytes.TrimSpace(tok)
	if len(tok) < 2 {
		return nil, errors.New("invalid string token")
	}
	if tok[0] == '<' && tok[len(tok)-1] == '>' {
		return hex.DecodeString(compactHexSpaces(string(tok[1 : len(tok)-1])))
	}
	if tok[0] != '(' || tok[len(tok)-1] != ')' {
		return nil, errors.New("unsupported string format")
	}

	src := tok[1 : len(tok)-1]
	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(src) {
			break
		}
		switch src[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				i++
			}
		case '\n':
		default:
			if src[i] >= '0' && src[i] <= '7' {
				val := int(src[i] - '0')
				for j := 0; j < 2 && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '7'; j++ {
					i++
					val = val<<3 + int(src[i]-'0')
				}
				out = append(out, byte(val))
			} else {
				out = append(out, src[i])
			}
		}
	}
	return out, nil
}
