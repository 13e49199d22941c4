package http

import "strings"

func hexToByte(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 255 // Invalid hex
}

// unescape decodes %XX sequences. Broken escapes are kept as they are. When
// plusAsSpace is set '+' decodes to ' ' (query and form encoding).
func unescape(s string, plusAsSpace bool) string {
	if strings.IndexByte(s, '%') < 0 && (!plusAsSpace || strings.IndexByte(s, '+') < 0) {
		return s
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s):
			hi, lo := hexToByte(s[i+1]), hexToByte(s[i+2])
			if hi == 255 || lo == 255 {
				buf = append(buf, c)
				continue
			}
			buf = append(buf, hi<<4|lo)
			i += 2
		case c == '+' && plusAsSpace:
			buf = append(buf, ' ')
		default:
			buf = append(buf, c)
		}
	}

	return string(buf)
}

func hasControl(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7f {
			return true
		}
	}
	return false
}
