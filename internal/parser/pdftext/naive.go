package pdftext

import (
	"bytes"
	"compress/zlib"
	"io"
	"unicode/utf8"
)

// maxInflated bounds a single decompressed stream.
const maxInflated = 16 << 20

// Naive extracts string operands from the text objects of a PDF. It handles
// uncompressed and Flate-compressed content streams and ignores fonts, so
// text in custom encodings comes out garbled or not at all.
func Naive(data []byte) []byte {
	var out bytes.Buffer
	for _, content := range contentStreams(data) {
		scanText(content, &out)
	}
	if out.Len() == 0 {
		scanText(data, &out)
	}
	return out.Bytes()
}

// contentStreams returns every stream body, inflated when it is zlib data.
func contentStreams(data []byte) [][]byte {
	var streams [][]byte
	rest := data
	for {
		start := bytes.Index(rest, []byte("stream"))
		if start < 0 {
			break
		}
		body := rest[start+len("stream"):]
		body = bytes.TrimPrefix(body, []byte("\r"))
		body = bytes.TrimPrefix(body, []byte("\n"))
		end := bytes.Index(body, []byte("endstream"))
		if end < 0 {
			break
		}
		raw := body[:end]
		rest = body[end+len("endstream"):]
		if inflated, ok := inflate(raw); ok {
			streams = append(streams, inflated)
			continue
		}
		streams = append(streams, raw)
	}
	return streams
}

func inflate(raw []byte) ([]byte, bool) {
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	defer func() { _ = r.Close() }()
	out, err := io.ReadAll(io.LimitReader(r, maxInflated))
	if err != nil && len(out) == 0 {
		return nil, false
	}
	return out, true
}

// scanText walks BT/ET blocks, writing literal strings and breaking lines at
// positioning operators.
func scanText(data []byte, out *bytes.Buffer) {
	inText := false
	for i := 0; i < len(data); i++ {
		switch {
		case isOperator(data, i, "BT"):
			inText = true
			i++
		case isOperator(data, i, "ET"):
			if inText {
				newline(out)
			}
			inText = false
			i++
		case !inText:
		case data[i] == '(':
			s, next := literal(data, i)
			out.Write(s)
			i = next
		case isOperator(data, i, "T*"), isOperator(data, i, "Td"), isOperator(data, i, "TD"), data[i] == '\'' || data[i] == '"':
			newline(out)
		}
	}
}

func newline(out *bytes.Buffer) {
	if out.Len() > 0 && out.Bytes()[out.Len()-1] != '\n' {
		out.WriteByte('\n')
	}
}

func isOperator(data []byte, i int, op string) bool {
	if !bytes.HasPrefix(data[i:], []byte(op)) {
		return false
	}
	if i > 0 && isRegular(data[i-1]) {
		return false
	}
	end := i + len(op)
	return end >= len(data) || !isRegular(data[end])
}

func isRegular(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '*'
}

// literal decodes a PDF string starting at data[i] == '(' and returns the
// index of its closing parenthesis.
func literal(data []byte, i int) ([]byte, int) {
	var s []byte
	depth := 0
	for j := i; j < len(data); j++ {
		c := data[j]
		switch c {
		case '\\':
			if j+1 >= len(data) {
				return s, j
			}
			j++
			switch e := data[j]; e {
			case 'n':
				s = append(s, '\n')
			case 'r':
				s = append(s, '\r')
			case 't':
				s = append(s, '\t')
			case 'b', 'f':
			case '\r', '\n':
			default:
				if e >= '0' && e <= '7' {
					v, k := 0, 0
					for ; k < 3 && j+k < len(data) && data[j+k] >= '0' && data[j+k] <= '7'; k++ {
						v = v*8 + int(data[j+k]-'0')
					}
					j += k - 1
					s = appendByte(s, byte(v))
					continue
				}
				s = appendByte(s, e)
			}
		case '(':
			if depth > 0 {
				s = append(s, c)
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s, j
			}
			s = append(s, c)
		default:
			s = appendByte(s, c)
		}
	}
	return s, len(data)
}

// appendByte maps single-byte string encodings onto Latin-1 so the output
// stays valid UTF-8.
func appendByte(s []byte, b byte) []byte {
	if b < utf8.RuneSelf {
		return append(s, b)
	}
	return utf8.AppendRune(s, rune(b))
}
