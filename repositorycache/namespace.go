package repositorycache

import (
	"reflect"
	"strings"
	"unicode"
)

const defaultNamespace = "entity"

// namespaceFor derives the cache namespace from the entity type name, so that
// *model.BookCategory becomes "book_category".
func namespaceFor[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if ns := snakeName(t.Name()); ns != "" {
		return ns
	}
	return defaultNamespace
}

// snakeName lower-cases name and joins its words with underscores. A word starts
// at an upper-case letter that follows a lower-case letter or digit, or that ends
// an acronym ("ISBNCode" is "isbn_code"). Anything that is not a letter or digit,
// such as the brackets of an instantiated generic type, separates words.
func snakeName(name string) string {
	var words []string
	var word []rune

	flush := func() {
		if len(word) > 0 {
			words = append(words, strings.ToLower(string(word)))
			word = word[:0]
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(word) > 0 {
			prev := word[len(word)-1]
			switch {
			case unicode.IsUpper(r) && !unicode.IsUpper(prev):
				flush()
			case unicode.IsUpper(r) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				flush()
			case unicode.IsDigit(r) != unicode.IsDigit(prev) && !unicode.IsUpper(r):
				flush()
			}
		}
		word = append(word, r)
	}
	flush()

	return strings.Join(words, "_")
}
