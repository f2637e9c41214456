// Package artpub converts web articles into a single offline-readable EPUB.
// It fetches each page, extracts the main article text and images, renders
// every article as a chapter, and packages the chapters with a table of
// contents.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, epub/, sqlite/).
package artpub
