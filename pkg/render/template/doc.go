// Package template defines the contract controls render their markup
// through. Package pongo implements it on a pongo2 template set.
package template
