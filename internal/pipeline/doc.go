// Package pipeline runs one sales report job end to end.
//
// A Run validates the output directory, then executes four stages in order:
//
//	load → clean → aggregate → export
//
// Each stage gets its own span under a root "pipeline" span and logs with the
// run id carried in the context. Cancellation is checked between stages. Any
// failure stops the run before the workbook is renamed into place, so a
// failed run never leaves a report file. Run metrics are written to the
// configured textfile whether the run succeeds or not.
package pipeline
