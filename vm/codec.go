package vm

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Codec: classifying and rendering cell codes
// ---------------------------------------------------------------------------

// EOT is the end-of-input sentinel code (ASCII "end of transmission").
const EOT = 4

// Space is the code used to pad rows.
const Space = ' '

// IsRepresentable reports whether code can be turned into a character.
func IsRepresentable(code int) bool {
	if code < 0 || code > utf8.MaxRune {
		return false
	}
	return utf8.ValidRune(rune(code))
}

// IsPrintable reports whether code is a standard ASCII character that fits in
// a single cell. Newlines and tabs are not included. In long mode the space
// is excluded too, since it is ambiguous in stack listings.
func IsPrintable(code int, long bool) bool {
	if long && code == Space {
		return false
	}
	return code >= 32 && code <= 126
}

// Character returns the UTF-8 text for a representable code, or the Unicode
// replacement character otherwise.
func Character(code int) string {
	if !IsRepresentable(code) {
		return string(utf8.RuneError)
	}
	return string(rune(code))
}

// ToPrintable renders code in a readable form. Short form always yields a
// single character; long form may be several characters (e.g. "\n", "EOF",
// "0x1f600").
func ToPrintable(code int, long bool) string {
	if long && code == Space {
		return "SP"
	}
	if IsPrintable(code, false) {
		return string(rune(code))
	}

	var escape string
	switch {
	case code == EOT:
		if long {
			return "EOF"
		}
		return "E"
	case code == '\t':
		escape = "t"
	case code >= 0 && code <= 9:
		escape = strconv.Itoa(code)
	case code == '\n':
		escape = "n"
	case code == '\r':
		escape = "r"
	case code < 0:
		if long {
			return strconv.Itoa(code)
		}
		return "-"
	default:
		if long {
			return fmt.Sprintf("0x%x", code)
		}
		return "?"
	}

	if long {
		return `\` + escape
	}
	return escape
}
