package assemble

import (
	"fmt"
	"strconv"
	"strings"
)

// parseImmediate parses a decimal, 0x-hex, or 'c' char-literal constant, as
// accepted in operand position for addi/ori/li/.word and friends.
func parseImmediate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty immediate")
	}
	if len(s) >= 3 && s[0] == '\'' && s[len(s)-1] == '\'' {
		inner := s[1 : len(s)-1]
		if inner == `\n` {
			return int64('\n'), nil
		}
		if inner == `\t` {
			return int64('\t'), nil
		}
		if inner == `\0` {
			return 0, nil
		}
		if len(inner) == 1 {
			return int64(inner[0]), nil
		}
		return 0, fmt.Errorf("malformed character literal %q", s)
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	var v int64
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseInt(s[2:], 16, 64)
	} else {
		v, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return v, nil
}

// isNumericLiteral reports whether s looks like a constant rather than a
// symbol reference, without needing a successful parse.
func isNumericLiteral(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '-' || c == '+' || (c >= '0' && c <= '9') || c == '\''
}
