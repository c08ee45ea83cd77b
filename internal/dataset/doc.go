// Package dataset reads the inputs of a labelling run: the counts matrix
// header and sample index, the saved gene list, and the sample metadata table
// that carries the raw annotations.
//
// Only the parts of the counts matrix that labelling needs are kept. Cell
// values are never parsed.
package dataset
