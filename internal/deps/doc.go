// Package deps holds the two pure collaborators of a traversal: extracting the
// dependency specifiers a module source references, and resolving a specifier
// against the module that imported it.
package deps
