// Package textproc holds the text helpers shared by keyword scoring,
// relevance validation and context assembly: tokenization, stop words,
// phrase extraction, snippets and HTML flattening.
package textproc
