// Package processor wires configuration, storage, the AI gateway and the
// learning session together and runs the command-line modes: a single
// lookup, batch lookups, Anki export, model listing and the interactive
// shell.
package processor
