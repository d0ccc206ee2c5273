// Package boardidx is a lightweight, word-only index over board node
// text. Titles and note bodies are tokenized into ident-like words;
// lookups are exact word matches, case-folded.
package boardidx

import (
	"hash/fnv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ref ties a word occurrence to the node it appears in. Line is
// 1-based within the node's text; title matches report line 0.
type Ref struct {
	NodeID string `json:"nodeId"`
	Line   int    `json:"line"`
}

// Index holds hash-based postings across all indexed nodes.
type Index struct {
	byHash map[uint64][]posting
}

type posting struct {
	word string
	ref  Ref
}

func New() *Index {
	return &Index{byHash: make(map[uint64][]posting)}
}

// Add indexes one node's title and text. Re-adding a node id appends;
// build a fresh Index to reflect deletions.
func (x *Index) Add(nodeID, title, text string) {
	if x == nil || nodeID == "" {
		return
	}
	for _, w := range tokenize(title) {
		x.add(w.text, Ref{NodeID: nodeID, Line: 0})
	}
	for _, w := range tokenize(text) {
		x.add(w.text, Ref{NodeID: nodeID, Line: w.line})
	}
}

// Find returns postings for exact matches of the given word.
func (x *Index) Find(word string) []Ref {
	if x == nil || x.byHash == nil {
		return nil
	}
	word = fold(word)
	if word == "" {
		return nil
	}
	var out []Ref
	for _, p := range x.byHash[hashWord(word)] {
		if p.word == word {
			out = append(out, p.ref)
		}
	}
	return out
}

func (x *Index) add(word string, ref Ref) {
	x.byHash[hashWord(word)] = append(x.byHash[hashWord(word)], posting{word: word, ref: ref})
}

func hashWord(word string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(word))
	return h.Sum64()
}

func fold(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

type token struct {
	text string
	line int
}

// tokenize keeps only ident-like words: a Unicode letter or '_'
// followed by letters, digits or '_'. Numbers and symbols are
// delimiters. Lines are 1-based.
func tokenize(src string) []token {
	isStart := func(r rune) bool { return r == '_' || unicode.IsLetter(r) }
	isCont := func(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

	var out []token
	line := 1
	i := 0
	for i < len(src) {
		r, w := utf8.DecodeRuneInString(src[i:])
		if r == '\n' {
			line++
			i += w
			continue
		}
		if r == utf8.RuneError && w == 1 {
			i++
			continue
		}
		if isStart(r) {
			start := i
			i += w
			for i < len(src) {
				rc, wc := utf8.DecodeRuneInString(src[i:])
				if rc == '\n' || !isCont(rc) {
					break
				}
				i += wc
			}
			out = append(out, token{text: fold(src[start:i]), line: line})
			continue
		}
		i += w
	}
	return out
}
