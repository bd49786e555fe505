// Package extract turns document files into plain text for chunking.
//
// Each supported format has its own Extractor variant; a Set owns the fixed
// list of variants and dispatches on the lowercased file extension. PDF pages
// are concatenated with blank lines between them, DOCX documents are rendered
// as Markdown so headings and tables survive chunking, and plain-text files
// fall back through common legacy encodings when they are not valid UTF-8.
package extract
