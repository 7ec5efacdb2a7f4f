// Package page loads HTML pages from files, standard input or HTTP(S) URLs
// and selects the subtree that is scanned.
//
// Remote pages can be fetched through a SOCKS5 proxy. Response bodies are
// decoded to UTF-8 based on the Content-Type header and the document's own
// meta tags.
package page
