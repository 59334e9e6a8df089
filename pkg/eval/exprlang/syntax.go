package exprlang

import (
	"strings"
)

// scan calls fn for each byte of src outside string literals, with the
// bracket depth after that byte. Scanning stops when fn returns false.
func scan(src string, fn func(i, depth int) bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
		if !fn(i, depth) {
			return
		}
	}
}

// rewrite normalizes JavaScript-style operators and the $ sigil outside
// string literals.
func rewrite(src string) string {
	if !strings.ContainsAny(src, "=$") {
		return src
	}
	var sb strings.Builder
	last := 0
	scan(src, func(i, _ int) bool {
		switch {
		case strings.HasPrefix(src[i:], "===") || strings.HasPrefix(src[i:], "!=="):
			if i < last {
				return true
			}
			sb.WriteString(src[last:i])
			sb.WriteString(src[i : i+2])
			last = i + 3
		case src[i] == '$' && i >= last && i+1 < len(src) && isIdentStart(src[i+1]) && (i == 0 || !isIdentPart(src[i-1])):
			if strings.HasPrefix(src[i:], "$env") && (i+4 == len(src) || !isIdentPart(src[i+4])) {
				return true
			}
			sb.WriteString(src[last:i])
			sb.WriteString(sigilPrefix)
			last = i + 1
		}
		return true
	})
	sb.WriteString(src[last:])
	return sb.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

func isIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

// splitStatements splits src at top-level ';' and at newlines that end a
// complete statement. A line ending in an operator, or followed by a line
// starting with one, continues the statement.
func splitStatements(src string) []string {
	var out []string
	start := 0
	push := func(end int) {
		if s := strings.TrimSpace(src[start:end]); s != "" {
			out = append(out, s)
		}
		start = end + 1
	}
	scan(src, func(i, depth int) bool {
		if depth != 0 {
			return true
		}
		if src[i] == ';' || src[i] == '\n' && !continues(src[start:i], src[i+1:]) {
			push(i)
		}
		return true
	})
	if s := strings.TrimSpace(src[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

var (
	trailingOps = []string{"&&", "||", "??", "+", "-", "*", "/", "%", "<", ">", "=", "!", "?", ":", ",", ".", "&", "|", "^"}
	leadingOps  = []string{"&&", "||", "??", "==", "!=", "<", ">", "+", "-", "*", "/", "%", "?", ":", ".", "&", "|", "^"}
)

// continues reports whether a newline between prev and next sits inside one
// statement.
func continues(prev, next string) bool {
	prev = strings.TrimSpace(prev)
	next = strings.TrimSpace(next)
	if prev == "" || next == "" {
		return false
	}
	if !strings.HasSuffix(prev, "++") && !strings.HasSuffix(prev, "--") {
		for _, op := range trailingOps {
			if strings.HasSuffix(prev, op) {
				return true
			}
		}
	}
	if strings.HasPrefix(next, "++") || strings.HasPrefix(next, "--") {
		return false
	}
	for _, op := range leadingOps {
		if strings.HasPrefix(next, op) {
			return true
		}
	}
	return false
}

type assignment struct {
	target string
	// op is the arithmetic operator of compound assignments, or 0.
	op  byte
	rhs string
}

var declKeywords = []string{"let ", "var ", "const "}

// parseAssignment recognizes "target = rhs", "target op= rhs", "target++"
// and "target--" statements, with an optional declaration keyword.
func parseAssignment(stmt string) (assignment, bool) {
	s := strings.TrimSpace(stmt)
	for _, kw := range declKeywords {
		if rest, ok := strings.CutPrefix(s, kw); ok {
			s = strings.TrimSpace(rest)
			break
		}
	}

	for _, suffix := range []string{"++", "--"} {
		if target, ok := strings.CutSuffix(s, suffix); ok {
			target = strings.TrimSpace(target)
			if assignable(target) {
				return assignment{target: target, op: suffix[0], rhs: "1"}, true
			}
		}
		if target, ok := strings.CutPrefix(s, suffix); ok {
			target = strings.TrimSpace(target)
			if assignable(target) {
				return assignment{target: target, op: suffix[0], rhs: "1"}, true
			}
		}
	}

	eq := -1
	scan(s, func(i, depth int) bool {
		if depth != 0 || s[i] != '=' {
			return true
		}
		if i+1 < len(s) && (s[i+1] == '=' || s[i+1] == '>') {
			return true
		}
		if i > 0 && strings.IndexByte("=!<>", s[i-1]) >= 0 {
			return true
		}
		eq = i
		return false
	})
	if eq <= 0 {
		return assignment{}, false
	}

	a := assignment{rhs: strings.TrimSpace(s[eq+1:])}
	lhs := s[:eq]
	if strings.IndexByte("+-*/", lhs[len(lhs)-1]) >= 0 {
		a.op = lhs[len(lhs)-1]
		lhs = lhs[:len(lhs)-1]
	}
	a.target = strings.TrimSpace(lhs)
	if !assignable(a.target) || a.rhs == "" {
		return assignment{}, false
	}
	return a, true
}

func assignable(target string) bool {
	_, _, _, ok := splitTarget(target)
	return ok
}

// splitTarget splits an assignable path into the expression of the owning
// object and the final key. obj is empty for a bare identifier. index
// reports whether key is an expression (a[key]) rather than a name (a.key).
func splitTarget(target string) (obj, key string, index, ok bool) {
	t := strings.TrimSpace(target)
	if isIdent(t) {
		return "", t, false, true
	}
	if strings.HasSuffix(t, "]") {
		open := -1
		scan(t, func(i, depth int) bool {
			if t[i] == '[' && depth == 1 {
				open = i
			}
			return true
		})
		if open <= 0 {
			return "", "", false, false
		}
		obj, key = t[:open], t[open+1:len(t)-1]
		if !assignable(obj) || strings.TrimSpace(key) == "" {
			return "", "", false, false
		}
		return obj, key, true, true
	}
	dot := -1
	scan(t, func(i, depth int) bool {
		if t[i] == '.' && depth == 0 {
			dot = i
		}
		return true
	})
	if dot <= 0 {
		return "", "", false, false
	}
	obj, key = t[:dot], strings.TrimSpace(t[dot+1:])
	obj = strings.TrimSuffix(obj, "?")
	if !isIdent(key) || !assignable(obj) {
		return "", "", false, false
	}
	return obj, key, false, true
}
