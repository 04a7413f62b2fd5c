// Package main provides the entry point for the linkcheck CLI.
//
// linkcheck scans a tree of documentation files, extracts every link and
// reports the ones that are no longer reachable.
//
// Usage:
//
//	linkcheck check-links docs/ -o broken_links.json
//	linkcheck history docs/ --diff
//
// See --help for all available options.
package main

func main() {
	Execute()
}
