// Package textnorm canonicalizes text before it is embedded.
//
// The same folding must be applied to stored content and to every query;
// otherwise distances between the two are not comparable.
package textnorm
