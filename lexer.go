package cod

import (
	"strings"
)

// Line is a cleaned source line.
type Line struct {
	Number int    // 1-based line number in the decrypted stream
	Indent int    // leading spaces after tab expansion
	Text   string // trimmed, comment-free text
}

// Decrypt negates every byte of data. The transform is its own inverse, so
// Decrypt also encrypts plaintext into COD form.
func Decrypt(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = -b
	}
	return out
}

// Lex decrypts raw COD bytes and returns the non-empty cleaned lines.
func Lex(data []byte) []Line {
	return splitCRLF(Decrypt(data))
}

// SplitLines cleans plaintext that has already been decrypted. Both "\r\n"
// and bare "\n" terminate a line, and a trailing unterminated line is kept.
func SplitLines(text string) []Line {
	var lines []Line
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, r := range raw {
		if line, ok := cleanLine(r, i+1); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitCRLF splits the decrypted stream at "\r\n" pairs. Bytes after the
// last pair are not a line.
func splitCRLF(data []byte) []Line {
	var lines []Line
	start, number := 0, 0
	for i := 0; i+1 < len(data); i++ {
		if data[i] == '\r' && data[i+1] == '\n' {
			number++
			if line, ok := cleanLine(string(data[start:i]), number); ok {
				lines = append(lines, line)
			}
			i++
			start = i + 1
		}
	}
	return lines
}

func cleanLine(raw string, number int) (Line, bool) {
	text := strings.ReplaceAll(raw, "\t", "  ")
	text = stripComment(text)
	indent := len(text) - len(strings.TrimLeft(text, " "))
	text = strings.TrimSpace(text)
	if text == "" {
		return Line{}, false
	}
	return Line{Number: number, Indent: indent, Text: text}, true
}

// stripComment removes everything from the first ';' that is not escaped
// with a backslash.
func stripComment(line string) string {
	var prev byte
	for i := 0; i < len(line); i++ {
		if line[i] == ';' && prev != '\\' {
			return line[:i]
		}
		prev = line[i]
	}
	return line
}
