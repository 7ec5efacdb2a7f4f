// Package main provides the entry point for the blockphrase CLI.
//
// blockphrase hides text blocks of HTML pages that are semantically similar
// to a blocked phrase, or that contain blocked words.
//
// Usage:
//
//	blockphrase options set-phrase "discount offers"
//	blockphrase options set-key --from-env
//	blockphrase redact page.html > clean.html
//
// See --help for all available options.
package main

func main() {
	Execute()
}
