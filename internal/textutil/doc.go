// Package textutil holds the pure helpers every site adapter shares: URL resolution,
// location, experience and education parsing, and technology keyword scanning.
package textutil
