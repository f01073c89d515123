// Package render turns a markdown source into a PDF, EPUB or MOBI artifact.
//
// The Go side prepares the input (page breaks, print-only section filtering,
// title extraction, HTML assembly with profile CSS) and hands the heavy lifting
// to external tools described by argv templates: a headless browser prints the
// HTML to PDF, pandoc builds EPUBs and calibre's ebook-convert builds MOBIs.
package render
