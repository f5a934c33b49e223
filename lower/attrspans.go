package lower

// scanAttributeValueSpans scans the raw bytes of a start tag token to find
// each attribute's value's byte range within raw. Returns spans aligned
// by index to the order html.Token.Attr iterates attributes in — adapted
// from chtml/attr_scanner.go's scanAttributeSpans, keyed by index instead
// of name since attribute names are assumed unique per the HTML spec but
// original-case recovery (spec 4.1) can make two source attributes fold
// to the same lowercased key.
type attrValueSpan struct {
	start int // byte offset of the value within raw
	end   int
}

func scanAttributeValueSpans(raw []byte, count int) []attrValueSpan {
	spans := make([]attrValueSpan, 0, count)

	pos := 0
	if pos < len(raw) && raw[pos] == '<' {
		pos++
	}
	for pos < len(raw) && !isAttrSpace(raw[pos]) && raw[pos] != '>' && raw[pos] != '/' {
		pos++
	}

	for len(spans) < count && pos < len(raw) {
		for pos < len(raw) && isAttrSpace(raw[pos]) {
			pos++
		}
		if pos >= len(raw) || raw[pos] == '>' || raw[pos] == '/' {
			break
		}

		for pos < len(raw) && raw[pos] != '=' && !isAttrSpace(raw[pos]) && raw[pos] != '>' && raw[pos] != '/' {
			pos++
		}
		for pos < len(raw) && isAttrSpace(raw[pos]) {
			pos++
		}

		if pos >= len(raw) || raw[pos] != '=' {
			// Attribute without a value: the value span is empty at the
			// current position so later offset math still lines up.
			spans = append(spans, attrValueSpan{start: pos, end: pos})
			continue
		}
		pos++ // skip '='
		for pos < len(raw) && isAttrSpace(raw[pos]) {
			pos++
		}
		if pos >= len(raw) {
			break
		}

		var valueStart, valueEnd int
		if raw[pos] == '"' || raw[pos] == '\'' {
			quote := raw[pos]
			pos++
			valueStart = pos
			for pos < len(raw) && raw[pos] != quote {
				if raw[pos] == '\\' && pos+1 < len(raw) {
					pos += 2
				} else {
					pos++
				}
			}
			valueEnd = pos
			if pos < len(raw) {
				pos++
			}
		} else {
			valueStart = pos
			for pos < len(raw) && !isAttrSpace(raw[pos]) && raw[pos] != '>' && raw[pos] != '/' {
				pos++
			}
			valueEnd = pos
		}

		spans = append(spans, attrValueSpan{start: valueStart, end: valueEnd})
	}

	return spans
}

func isAttrSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

// rawAttrSpan is one attribute's original-case name text plus its value's
// byte range, both relative to the start tag's raw bytes.
type rawAttrSpan struct {
	name             string
	valueStart       int
	valueEnd         int
	hasValue         bool
}

// scanAttributeSpans is scanAttributeValueSpans generalized to also recover
// each attribute's original-case name text: golang.org/x/net/html lowercases
// html.Token.Attr[i].Key, but meta extraction needs the authored case for
// names like "DateFormat.as" (spec 4.1).
func scanAttributeSpans(raw []byte, count int) []rawAttrSpan {
	spans := make([]rawAttrSpan, 0, count)

	pos := 0
	if pos < len(raw) && raw[pos] == '<' {
		pos++
	}
	for pos < len(raw) && !isAttrSpace(raw[pos]) && raw[pos] != '>' && raw[pos] != '/' {
		pos++
	}

	for len(spans) < count && pos < len(raw) {
		for pos < len(raw) && isAttrSpace(raw[pos]) {
			pos++
		}
		if pos >= len(raw) || raw[pos] == '>' || raw[pos] == '/' {
			break
		}

		nameStart := pos
		for pos < len(raw) && raw[pos] != '=' && !isAttrSpace(raw[pos]) && raw[pos] != '>' && raw[pos] != '/' {
			pos++
		}
		name := string(raw[nameStart:pos])
		for pos < len(raw) && isAttrSpace(raw[pos]) {
			pos++
		}

		if pos >= len(raw) || raw[pos] != '=' {
			spans = append(spans, rawAttrSpan{name: name, valueStart: pos, valueEnd: pos})
			continue
		}
		pos++ // skip '='
		for pos < len(raw) && isAttrSpace(raw[pos]) {
			pos++
		}
		if pos >= len(raw) {
			spans = append(spans, rawAttrSpan{name: name, valueStart: pos, valueEnd: pos})
			break
		}

		var valueStart, valueEnd int
		if raw[pos] == '"' || raw[pos] == '\'' {
			quote := raw[pos]
			pos++
			valueStart = pos
			for pos < len(raw) && raw[pos] != quote {
				if raw[pos] == '\\' && pos+1 < len(raw) {
					pos += 2
				} else {
					pos++
				}
			}
			valueEnd = pos
			if pos < len(raw) {
				pos++
			}
		} else {
			valueStart = pos
			for pos < len(raw) && !isAttrSpace(raw[pos]) && raw[pos] != '>' && raw[pos] != '/' {
				pos++
			}
			valueEnd = pos
		}

		spans = append(spans, rawAttrSpan{name: name, valueStart: valueStart, valueEnd: valueEnd, hasValue: true})
	}

	return spans
}
