// Package conv holds allocation-free numeric formatting for display lines.
// No fmt/strconv dependency; safe on MCU targets.
package conv

// Itoa writes the base-10 representation of n into buf and returns the used
// slice. buf should be length >= 20 for int64. Negative numbers supported.
func Itoa(buf []byte, n int64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	i := len(buf)
	neg := n < 0
	var u uint64
	if neg {
		u = uint64(-n)
	} else {
		u = uint64(n)
	}
	if u == 0 {
		i--
		buf[i] = '0'
	} else {
		for u > 0 && i > 0 {
			i--
			buf[i] = byte('0' + (u % 10))
			u /= 10
		}
	}
	if neg && i > 0 {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}

// ParseUint reads a non-negative decimal. Reports false on empty input,
// stray characters, or overflow past int range.
func ParseUint(s string) (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
		if n < 0 {
			return 0, false
		}
	}
	return n, true
}

// AppendInt appends the base-10 representation of n to dst.
func AppendInt(dst []byte, n int64) []byte {
	var scratch [20]byte
	return append(dst, Itoa(scratch[:], n)...)
}

// Pad2 writes n (0..99) as exactly two digits into dst[0:2].
func Pad2(dst []byte, n int) {
	if n < 0 {
		n = 0
	}
	n %= 100
	dst[0] = byte('0' + n/10)
	dst[1] = byte('0' + n%10)
}
