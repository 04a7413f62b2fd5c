// Package extract finds link references in document content.
//
// Every document kind is scanned for two reference shapes:
//   - explicit http(s) URLs, optionally written with an AsciiDoc "link:" prefix
//   - short video macros of the form video::<11 character id>
//
// Markdown documents additionally contribute link, image and autolink
// destinations from the goldmark AST, and HTML documents contribute href and
// src attribute values. All candidates are canonicalized with link.Canonicalize
// and only valid http(s) URLs are kept.
package extract
