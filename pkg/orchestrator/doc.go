// Package orchestrator wires the catalog, resolver, control factories,
// templates, theme, scheduler and SQL preview fetcher together and opens
// dialogs for a node type and view mode.
package orchestrator
