package api

import (
	"errors"
	"fmt"
	"strings"
)

type sqlTokenKind int

const (
	sqlWord   sqlTokenKind = iota //unquoted identifier or keyword
	sqlQuoted                     //"ident", `ident` or [ident]
	sqlString                     //'literal'
	sqlNumber
	sqlPunct
)

type sqlToken struct {
	kind sqlTokenKind
	text string //for quoted identifiers and strings, the unquoted contents
}

func (t sqlToken) is(word string) bool {
	return t.kind == sqlWord && strings.EqualFold(t.text, word)
}

func (t sqlToken) isPunct(p string) bool {
	return t.kind == sqlPunct && t.text == p
}

//forbiddenWords can't appear as keywords or function names in a query
var forbiddenWords = map[string]bool{
	"insert": true, "update": true, "delete": true, "drop": true, "alter": true, "create": true,
	"truncate": true, "attach": true, "detach": true, "pragma": true, "grant": true, "revoke": true,
	"vacuum": true, "into": true, "load_file": true, "load_extension": true, "handler": true,
	"table": true, "outfile": true, "dumpfile": true,
}

//clauseWords end the FROM clause of the select they appear in
var clauseWords = map[string]bool{
	"select": true, "where": true, "group": true, "having": true, "order": true, "limit": true,
	"union": true, "intersect": true, "except": true, "window": true, "values": true,
}

//joinWords are followed by a table reference
var joinWords = map[string]bool{
	"from": true, "join": true, "straight_join": true,
}

//fromFuncs take FROM as an argument separator, not a table list
var fromFuncs = map[string]bool{
	"extract": true, "trim": true, "substring": true, "overlay": true,
}

func isWordChar(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

//tokenizeSQL splits query into tokens. Comments and backslashes are rejected since
//drivers disagree on how to read them.
func tokenizeSQL(query string) ([]sqlToken, error) {
	if strings.ContainsRune(query, '\\') {
		return nil, errors.New("query must not contain backslashes")
	}

	var toks []sqlToken
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '#' || strings.HasPrefix(query[i:], "--") || strings.HasPrefix(query[i:], "/*"):
			return nil, errors.New("query must not contain comments")
		case c == '\'' || c == '"' || c == '`' || c == '[':
			end := c
			kind := sqlQuoted
			if c == '[' {
				end = ']'
			}
			if c == '\'' {
				kind = sqlString
			}
			var b strings.Builder
			j := i + 1
			for {
				if j >= len(query) {
					return nil, errors.New("query has an unterminated quote")
				}
				if query[j] == end {
					if end != ']' && j+1 < len(query) && query[j+1] == end {
						b.WriteByte(end)
						j += 2
						continue
					}
					break
				}
				b.WriteByte(query[j])
				j++
			}
			toks = append(toks, sqlToken{kind: kind, text: b.String()})
			i = j + 1
		case c >= '0' && c <= '9':
			j := i
			for j < len(query) && (isWordChar(query[j]) || query[j] == '.') {
				j++
			}
			toks = append(toks, sqlToken{kind: sqlNumber, text: query[i:j]})
			i = j
		case isWordChar(c):
			j := i
			for j < len(query) && isWordChar(query[j]) {
				j++
			}
			toks = append(toks, sqlToken{kind: sqlWord, text: query[i:j]})
			i = j
		default:
			toks = append(toks, sqlToken{kind: sqlPunct, text: string(c)})
			i++
		}
	}
	return toks, nil
}

//sqlScope is one level of parentheses
type sqlScope struct {
	fn     string //word before the opening parenthesis
	inFrom bool
	inWith bool
	ctes   map[string]bool
}

//checkTables returns an error unless every table query reads is one of views or a common table expression
//defined before it in an enclosing scope.
func checkTables(toks []sqlToken, views map[string]bool, hint string) error {
	scopes := []*sqlScope{{ctes: make(map[string]bool)}}

	visible := func(name string) bool {
		for _, s := range scopes {
			if s.ctes[name] {
				return true
			}
		}
		return false
	}

	//checkRef checks the table reference at toks[j]
	checkRef := func(j int) error {
		ref := toks[j]
		if ref.kind != sqlWord && ref.kind != sqlQuoted && ref.kind != sqlString {
			return fmt.Errorf("unexpected %q where a table was expected", ref.text)
		}
		if j+1 < len(toks) && (toks[j+1].isPunct(".") || toks[j+1].isPunct("(")) {
			return fmt.Errorf("table %s is not available; use the %s views", ref.text, hint)
		}
		name := strings.ToLower(ref.text)
		if !views[name] && !visible(name) {
			return fmt.Errorf("table %s is not available; use the %s views", ref.text, hint)
		}
		return nil
	}

	for i, t := range toks {
		cur := scopes[len(scopes)-1]

		switch {
		case t.kind == sqlWord && forbiddenWords[strings.ToLower(t.text)]:
			return fmt.Errorf("query must be read only (found %s)", strings.ToUpper(t.text))

		case t.is("with"):
			cur.inWith = true

		case cur.inWith && (t.kind == sqlWord || t.kind == sqlQuoted) && i+2 < len(toks) && toks[i+1].is("as") && toks[i+2].isPunct("("):
			cur.ctes[strings.ToLower(t.text)] = true

		case t.isPunct("("):
			next := &sqlScope{ctes: make(map[string]bool)}
			if i > 0 {
				prev := toks[i-1]
				if prev.kind == sqlWord {
					next.fn = strings.ToLower(prev.text)
				}
				//parenthesized table lists, as in JOIN (a, b)
				next.inFrom = cur.inFrom && (joinWords[next.fn] || prev.isPunct("("))
			}
			scopes = append(scopes, next)

		case t.isPunct(")"):
			if len(scopes) == 1 {
				return errors.New("query has unbalanced parentheses")
			}
			scopes = scopes[:len(scopes)-1]

		case t.isPunct(","):
			if cur.inFrom {
				return fmt.Errorf("tables must be joined with JOIN ... ON, not commas")
			}

		case t.isPunct(";"):
			return errors.New("query must be a single statement")

		case t.kind == sqlWord && joinWords[strings.ToLower(t.text)]:
			if t.is("from") && fromFuncs[cur.fn] {
				continue
			}
			cur.inFrom = true

			j := i + 1
			for j < len(toks) && toks[j].isPunct("(") {
				j++
			}
			if j >= len(toks) {
				return fmt.Errorf("query ends after %s", strings.ToUpper(t.text))
			}
			if toks[j].is("select") || toks[j].is("with") || toks[j].is("values") {
				continue
			}
			if err := checkRef(j); err != nil {
				return err
			}

		//x IN table
		case t.is("in") && cur.fn != "position" && i+1 < len(toks) && !toks[i+1].isPunct("("):
			if err := checkRef(i + 1); err != nil {
				return err
			}
		}

		if t.kind == sqlWord && clauseWords[strings.ToLower(t.text)] {
			cur.inFrom = false
			if t.is("select") || t.is("values") {
				cur.inWith = false
			}
		}
	}

	if len(scopes) != 1 {
		return errors.New("query has unbalanced parentheses")
	}
	return nil
}
