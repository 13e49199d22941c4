package transport

import "errors"

var errInvalidNumber = errors.New("transport: invalid number")

// atoi parses a non-negative decimal without allocating.
func atoi(b []byte) (int64, error) {
	if len(b) == 0 || len(b) > 18 {
		return 0, errInvalidNumber
	}

	var n int64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, errInvalidNumber
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}

// writeIntToBuffer writes n in decimal to buf and returns the digit count.
func writeIntToBuffer(n int, buf []byte) int {
	if n == 0 {
		buf[0] = '0'
		return 1
	}

	temp := n
	digits := 0
	for temp > 0 {
		digits++
		temp /= 10
	}

	for i := digits - 1; i >= 0; i-- {
		buf[i] = '0' + byte(n%10)
		n /= 10
	}

	return digits
}

// writeHexToBuffer writes n in lowercase hex, as used for chunk sizes.
func writeHexToBuffer(n int, buf []byte) int {
	if n == 0 {
		buf[0] = '0'
		return 1
	}

	const hexDigits = "0123456789abcdef"
	digits := 0
	temp := n

	for temp > 0 {
		digits++
		temp >>= 4
	}

	for i := digits - 1; i >= 0; i-- {
		buf[i] = hexDigits[n&0xF]
		n >>= 4
	}

	return digits
}

func toLower(data []byte) {
	for i := range data {
		if data[i] >= 'A' && data[i] <= 'Z' {
			data[i] += 'a' - 'A'
		}
	}
}

func trimSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t' || b[len(b)-1] == '\r' || b[len(b)-1] == '\n') {
		b = b[:len(b)-1]
	}
	return b
}
