// Package pkgformat identifies native package files and extracts the
// exportable artifacts (binaries and desktop entries) from package file
// listings.
//
// Detection is heuristic: extension first, then magic bytes, then a scan
// for the "debian-binary" member name. A corrupt file may be misclassified;
// the package manager inside the container is the final authority.
package pkgformat
