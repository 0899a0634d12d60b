package anychar

import "fmt"

// A Charset maps transcription characters to class
// indices.
type Charset interface {
	// Len returns the number of classes.
	Len() int

	// Index returns the class of a character.
	Index(r rune) (int, error)

	// Rune returns the character for a class.
	// It is the inverse of Index, up to case folding.
	Rune(idx int) rune
}

// AlnumCharset is a case-sensitive charset covering
// digits, lowercase and uppercase letters, in that order.
type AlnumCharset struct{}

// Len returns 62.
func (a AlnumCharset) Len() int {
	return 10 + 26*2
}

// Index returns the class index of r.
func (a AlnumCharset) Index(r rune) (int, error) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), nil
	case r >= 'a' && r <= 'z':
		return 10 + int(r-'a'), nil
	case r >= 'A' && r <= 'Z':
		return 36 + int(r-'A'), nil
	default:
		return 0, fmt.Errorf("character %q not in charset", r)
	}
}

// Rune returns the character for a class index.
func (a AlnumCharset) Rune(idx int) rune {
	switch {
	case idx < 10:
		return rune('0' + idx)
	case idx < 36:
		return rune('a' + idx - 10)
	default:
		return rune('A' + idx - 36)
	}
}

// FoldedCharset is like AlnumCharset, except that it
// treats uppercase and lowercase letters as the same
// class.
type FoldedCharset struct{}

// Len returns 36.
func (f FoldedCharset) Len() int {
	return 10 + 26
}

// Index returns the class index of r.
func (f FoldedCharset) Index(r rune) (int, error) {
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}
	return AlnumCharset{}.Index(r)
}

// Rune returns the lowercase character for a class index.
func (f FoldedCharset) Rune(idx int) rune {
	return AlnumCharset{}.Rune(idx)
}

// CharsetForSize picks the largest built-in charset
// whose class count fits in embedSize.
func CharsetForSize(embedSize int) (Charset, error) {
	if embedSize >= (AlnumCharset{}).Len() {
		return AlnumCharset{}, nil
	} else if embedSize >= (FoldedCharset{}).Len() {
		return FoldedCharset{}, nil
	}
	return nil, fmt.Errorf("embed size %d is smaller than any charset", embedSize)
}

// EncodeWord converts a transcription into class indices.
func EncodeWord(c Charset, word string) ([]int, error) {
	var res []int
	for _, r := range word {
		idx, err := c.Index(r)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %s", word, err)
		}
		res = append(res, idx)
	}
	return res, nil
}
