// Package model holds the mutable record a dialog edits. A Model stores
// dot-path addressable attributes, carries an attached error model, and
// notifies subscribers per top-level attribute ("change:<attr>") and once per
// mutation ("change"). Collections hold ordered child models of a single type
// and re-emit their children's change events.
//
// Every Model and Collection created through the same root shares one
// Dispatcher. Work queued with Dispatcher.Defer while an event is being
// dispatched runs only after the outermost dispatch returns, which lets
// listeners request collection mutations without touching a collection that is
// still being iterated.
package model
