// Package anywin cuts word images into overlapping
// fixed-width windows and stores them, together with
// the word labels, in a padded Dataset container.
//
// A word image is first resized to a fixed height.
// A window of width WindowSize then slides across it
// with a step of Stride pixels, starting and ending with
// windows that are mostly outside the image.
// Those outer parts are filled by repeating the nearest
// image column, and the first and last Drop windows are
// discarded altogether.
package anywin
