// Package extract provides heuristic function-boundary extraction for
// multiple source languages. It is intentionally regex-based: the goal is
// stable, best-effort identification of function-like units for diffing,
// not grammar-correct parsing. Braces inside string literals or comments
// can skew body capture; callers must treat results as approximate.
package extract

import (
	"path/filepath"
	"regexp"
	"strings"
)

// FunctionRecord describes one function-like unit found in source text.
type FunctionRecord struct {
	Name      string `json:"name"`
	Signature string `json:"signature"` // name + parameter list as written
	StartLine int    `json:"startLine"` // 1-based
	Body      string `json:"body"`
}

var (
	// function name(params)   (export/default/async/generator prefixes allowed)
	reJSFunc = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(([^)]*)\)`)

	// const name = function(params)
	reJSFuncExpr = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?function\s*\*?\s*\(([^)]*)\)`)

	// const name = (params) =>
	reJSArrow = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?\(([^)]*)\)\s*=>`)

	// const name = param =>
	reJSArrowBare = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?([A-Za-z_$][\w$]*)\s*=>`)

	// name(params) {   — method style, only honored inside a class body.
	// An optional TS return annotation may sit between ')' and '{'.
	reJSMethod = regexp.MustCompile(`^\s*(?:static\s+)?(?:async\s+)?(?:get\s+|set\s+)?([A-Za-z_$][\w$]*)\s*\(([^)]*)\)\s*(?::\s*[^{]+)?\{`)

	reClassOpen = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+[A-Za-z_$][\w$]*`)

	// def name(params):   (optional return annotation)
	rePyDef = regexp.MustCompile(`^([ \t]*)def\s+([A-Za-z_]\w*)\s*\(([^)]*)\)\s*(?:->\s*[^:]+)?:`)

	// fn name(params) -> Ret   (pub/async/unsafe prefixes, optional generics)
	reRustFn = regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+([A-Za-z_]\w*)\s*(?:<[^>]*>)?\s*\(([^)]*)\)`)

	// func name(params)  |  func (recv) name(params)
	reGoFunc = regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s+)?([A-Za-z_]\w*)\s*\(([^)]*)\)`)

	// Coarse fallback: something that looks like a declaration with a body.
	reGeneric = regexp.MustCompile(`^\s*(?:[\w$.*&:\[\]<>]+\s+)*([A-Za-z_$][\w$]*)\s*\(([^)]*)\)\s*\{`)
)

// controlKeywords are names that look like calls or blocks but never
// denote a function declaration.
var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"do": true, "else": true, "return": true, "new": true, "function": true,
}

// Extract returns the function-like units found in code, in source order.
// The language tag selects the extraction strategy; unrecognized tags fall
// back to a coarse generic extractor that may return nothing. An empty
// result is a valid state, not an error.
func Extract(code, language string) []FunctionRecord {
	if code == "" {
		return nil
	}
	switch normalizeLang(language) {
	case "js", "ts":
		return extractJS(code)
	case "py":
		return extractPython(code)
	case "rust":
		return extractLineDecls(code, reRustFn)
	case "go":
		return extractLineDecls(code, reGoFunc)
	default:
		return extractGeneric(code)
	}
}

// DetectLang infers a language tag from a file path's extension.
// Unknown extensions yield "" (generic extraction).
func DetectLang(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx", ".mjs", ".cjs":
		return "javascript"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".go":
		return "go"
	default:
		return ""
	}
}

func normalizeLang(language string) string {
	switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(language, "."))) {
	case "js", "jsx", "mjs", "cjs", "javascript":
		return "js"
	case "ts", "tsx", "typescript":
		return "ts"
	case "py", "python", "python3":
		return "py"
	case "rs", "rust":
		return "rust"
	case "go", "golang":
		return "go"
	default:
		return ""
	}
}

// extractJS handles the JS/TS family: keyword declarations, function
// expressions, arrow assignments, and method definitions inside class
// bodies. TS type annotations ride along inside the captured text.
func extractJS(code string) []FunctionRecord {
	lines := strings.Split(code, "\n")
	offsets := lineOffsets(code)

	var recs []FunctionRecord
	depth := 0    // running brace balance before the current line
	classAt := -1 // brace depth at which an open class body started

	for i, line := range lines {
		lineNo := i + 1
		if m := reJSFunc.FindStringSubmatchIndex(line); m != nil {
			recs = append(recs, bracedRecord(code, line, offsets[i], lineNo, m))
		} else if m := reJSFuncExpr.FindStringSubmatchIndex(line); m != nil {
			recs = append(recs, bracedRecord(code, line, offsets[i], lineNo, m))
		} else if m := reJSArrow.FindStringSubmatchIndex(line); m != nil {
			recs = append(recs, arrowRecord(code, line, offsets[i], lineNo, m))
		} else if m := reJSArrowBare.FindStringSubmatchIndex(line); m != nil {
			recs = append(recs, arrowRecord(code, line, offsets[i], lineNo, m))
		} else if classAt >= 0 && depth == classAt+1 {
			if m := reJSMethod.FindStringSubmatchIndex(line); m != nil {
				name := line[m[2]:m[3]]
				if !controlKeywords[name] {
					recs = append(recs, bracedRecord(code, line, offsets[i], lineNo, m))
				}
			}
		}

		if classAt < 0 && reClassOpen.MatchString(line) {
			classAt = depth
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if classAt >= 0 && depth <= classAt {
			classAt = -1
		}
	}
	return recs
}

// extractPython handles indentation-delimited def blocks. Nested defs and
// class methods land in the same flat list as top-level functions.
func extractPython(code string) []FunctionRecord {
	lines := strings.Split(code, "\n")

	var recs []FunctionRecord
	for i, line := range lines {
		m := rePyDef.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent := len(m[1])

		var body []string
		for j := i + 1; j < len(lines); j++ {
			l := lines[j]
			if strings.TrimSpace(l) == "" {
				body = append(body, l)
				continue
			}
			if leadingWhitespace(l) <= indent {
				break
			}
			body = append(body, l)
		}
		for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
			body = body[:len(body)-1]
		}

		recs = append(recs, FunctionRecord{
			Name:      m[2],
			Signature: m[2] + "(" + m[3] + ")",
			StartLine: i + 1,
			Body:      strings.Join(body, "\n"),
		})
	}
	return recs
}

// extractLineDecls handles single-regex brace languages (Rust, Go).
func extractLineDecls(code string, re *regexp.Regexp) []FunctionRecord {
	lines := strings.Split(code, "\n")
	offsets := lineOffsets(code)

	var recs []FunctionRecord
	for i, line := range lines {
		if m := re.FindStringSubmatchIndex(line); m != nil {
			recs = append(recs, bracedRecord(code, line, offsets[i], i+1, m))
		}
	}
	return recs
}

// extractGeneric is the fallback for unknown language tags: anything that
// reads like `name(params) {`. It may legitimately find nothing.
func extractGeneric(code string) []FunctionRecord {
	lines := strings.Split(code, "\n")
	offsets := lineOffsets(code)

	var recs []FunctionRecord
	for i, line := range lines {
		m := reGeneric.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		name := line[m[2]:m[3]]
		if controlKeywords[name] {
			continue
		}
		recs = append(recs, bracedRecord(code, line, offsets[i], i+1, m))
	}
	return recs
}

// bracedRecord builds a record for a declaration whose body is a balanced
// brace block starting at the first '{' after the match. A ';' before any
// '{' means a body-less declaration (empty body).
func bracedRecord(code, line string, lineOffset, lineNo int, m []int) FunctionRecord {
	name := line[m[2]:m[3]]
	params := line[m[4]:m[5]]
	return FunctionRecord{
		Name:      name,
		Signature: name + "(" + params + ")",
		StartLine: lineNo,
		Body:      braceBodyAfter(code, lineOffset+m[1]),
	}
}

// arrowRecord builds a record for an arrow assignment. A block body is
// captured by brace matching; an expression body is the rest of the line.
func arrowRecord(code, line string, lineOffset, lineNo int, m []int) FunctionRecord {
	name := line[m[2]:m[3]]
	params := line[m[4]:m[5]]
	rest := line[m[1]:]

	var body string
	if idx := strings.Index(rest, "{"); idx >= 0 {
		body = braceBody(code, lineOffset+m[1]+idx)
	} else {
		body = strings.TrimSpace(rest)
	}
	return FunctionRecord{
		Name:      name,
		Signature: name + "(" + params + ")",
		StartLine: lineNo,
		Body:      body,
	}
}

func braceBodyAfter(code string, at int) string {
	for i := at; i < len(code); i++ {
		switch code[i] {
		case '{':
			return braceBody(code, i)
		case ';':
			return ""
		}
	}
	return ""
}

// braceBody returns the balanced block starting at the '{' at open,
// inclusive of both braces. An unterminated block runs to end of input.
func braceBody(code string, open int) string {
	depth := 0
	for i := open; i < len(code); i++ {
		switch code[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return code[open : i+1]
			}
		}
	}
	return code[open:]
}

func leadingWhitespace(line string) int {
	n := 0
	for _, r := range line {
		if r != ' ' && r != '\t' {
			break
		}
		n++
	}
	return n
}

// lineOffsets returns the byte offset of the start of each line.
func lineOffsets(code string) []int {
	offsets := []int{0}
	for i := 0; i < len(code); i++ {
		if code[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}
