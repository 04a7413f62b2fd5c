// Package link turns raw reference tokens into comparable URL keys and
// decides which of them need a network check.
//
// Normalize and Canonicalize produce the keys used by both the extractor and
// the exclusion set, so a URL written with a trailing slash in a document and
// without it in the exclusion file still matches. Blacklist implements the
// domain rules that bypass the checker entirely.
package link
