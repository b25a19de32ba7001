// Package normalisers turns stored uploads into plain text. Each
// sub-package handles one file format; Registry dispatches on the
// document's declared file type and reads the bytes from the file store.
package normalisers
