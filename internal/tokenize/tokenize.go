// Copyright (c) 2021 Canonical Ltd
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License version 3 as
// published by the Free Software Foundation.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package tokenize splits a raw command line into the token sequence
// the Pipeline Launcher consumes. It is one of the external
// collaborators the core treats as given: no quoting, no variable
// expansion, no history or line-editing.
package tokenize

// Kind identifies what a Token represents.
type Kind int

const (
	// Word is a literal argument word.
	Word Kind = iota
	// Input marks the following word as an input-redirection target.
	Input
	// Output marks the following word as an output-redirection target.
	Output
	// Pipe separates two pipeline stages.
	Pipe
	// Background is an "&" marker. The launcher treats it as marking a
	// background job only when it is the last token.
	Background
)

// Token is one element of a tokenized command line.
type Token struct {
	Kind Kind
	Text string
}

// Tokenize splits line on whitespace, recognizing the markers "<",
// ">", "|" and "&" as Input, Output, Pipe and Background tokens
// respectively, wherever they appear (they need not be separated from
// neighboring words by whitespace). Anything else is a Word. There is no
// quoting: a word containing one of the marker characters cannot be
// expressed, matching the Non-goals this core assumes of its
// tokenizer collaborator.
func Tokenize(line string) []Token {
	var tokens []Token
	var word []rune
	flush := func() {
		if len(word) > 0 {
			tokens = append(tokens, Token{Kind: Word, Text: string(word)})
			word = word[:0]
		}
	}

	for _, r := range line {
		switch r {
		case ' ', '\t':
			flush()
		case '<':
			flush()
			tokens = append(tokens, Token{Kind: Input, Text: "<"})
		case '>':
			flush()
			tokens = append(tokens, Token{Kind: Output, Text: ">"})
		case '|':
			flush()
			tokens = append(tokens, Token{Kind: Pipe, Text: "|"})
		case '&':
			flush()
			tokens = append(tokens, Token{Kind: Background, Text: "&"})
		default:
			word = append(word, r)
		}
	}
	flush()

	return tokens
}
