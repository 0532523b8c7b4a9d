// Package pipeline runs raster operations described as text.
//
// A pipeline is a '|' separated list of steps, each a name followed by
// ':' separated arguments:
//
//	grayscale|blur:2|resize:64x64:nearest
//	crop:10:10:200:100|sharpen|overlay:logo.png:8:8:0.5
//
// Names lists every step. Batch applies one pipeline to many files with a
// bounded number of workers.
package pipeline
