package classes

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Group names of the built-in taxonomy.
const (
	GroupUpper       = "Upper case"
	GroupLower       = "Lower case"
	GroupDigits      = "Digits"
	GroupPunctuation = "Common"
	GroupSymbols     = "Symbols"
)

const (
	lowerSuffix   = "_small"
	symbolsPrefix = "sym_"
	digitsPrefix  = "num_"
)

// Group is a named branch of the taxonomy, as shown in a class picker.
type Group struct {
	Name    string
	Classes []Class
}

type punct struct {
	label, name string
}

var punctuation = map[rune]punct{
	'\'': {"apostrophe", "apos"}, ',': {"comma", "comma"},
	':': {"colon", "colon"}, '-': {"hyphen", "hyphen"},
	'!': {"exclamation mark", "exclmark"},
	'"': {"quote mark", "quotmark"}, ' ': {"space", "space"},
	'{': {"left curly bracket", "lcbracket"},
	'(': {"left parenthesis", "lparen"},
	'[': {"left square bracket", "lsqbracket"},
	'.': {"point", "point"}, '?': {"question mark", "questmark"},
	'}': {"right curly bracket", "rcbracket"},
	')': {"right parenthesis", "rparen"},
	']': {"right square bracket", "rsqbracket"},
	';': {"semicolon", "scolon"}, '/': {"slash", "slash"},
}

var symbols = map[rune]punct{
	'&': {"ampersand", "amper"},
	'@': {"at sign", "arob"}, '`': {"back quote", "bquote"},
	'\\': {"backslash", "bslash"}, '^': {"caret", "caret"},
	'$': {"dollar", "dollar"}, '=': {"equal", "equal"},
	'>': {"greater than", "gthan"},
	'<': {"lower than", "lthan"}, '#': {"number sign", "num"},
	'%': {"percent", "pcent"},
	'|': {"pipe", "pipe"}, '+': {"plus", "plus"},
	'*': {"star", "star"},
	'~': {"tilde", "tilde"}, '_': {"underscore", "under"},
}

// asciiPunctuation lists punctuation in ASCII order, followed by space.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~ "

// capitalize upper-cases the first letter of a label.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return cases.Upper(language.English).String(string(r)) + s[size:]
}

// BuiltinGroups returns the default taxonomy grouped for display.
func BuiltinGroups() []Group {
	upper := Group{Name: GroupUpper}
	lower := Group{Name: GroupLower}
	for c := 'a'; c <= 'z'; c++ {
		l := string(c)
		u := strings.ToUpper(l)
		upper.Classes = append(upper.Classes, Class{Value: u, Repr: u, Folder: l})
		lower.Classes = append(lower.Classes, Class{Value: l, Repr: l, Folder: l + lowerSuffix})
	}

	digits := Group{Name: GroupDigits}
	for c := '0'; c <= '9'; c++ {
		d := string(c)
		digits.Classes = append(digits.Classes, Class{Value: d, Repr: d, Folder: digitsPrefix + d})
	}

	common := Group{Name: GroupPunctuation}
	syms := Group{Name: GroupSymbols}
	for _, r := range asciiPunctuation {
		if p, ok := punctuation[r]; ok {
			common.Classes = append(common.Classes, punctClass(r, p))
		} else if p, ok := symbols[r]; ok {
			syms.Classes = append(syms.Classes, punctClass(r, p))
		}
	}
	return []Group{upper, lower, digits, common, syms}
}

func punctClass(r rune, p punct) Class {
	return Class{
		Value:  string(r),
		Repr:   string(r) + " (" + capitalize(p.label) + ")",
		Folder: symbolsPrefix + p.name,
	}
}

// Builtin returns every class of the default taxonomy as one set. Each call
// builds a fresh value; there is no shared registry.
func Builtin() Set {
	var all []Class
	for _, g := range BuiltinGroups() {
		all = append(all, g.Classes...)
	}
	return MustNew(all...)
}
