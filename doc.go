// Package anychar provides the shared pieces of a
// character recognition pipeline: the configuration
// format and the character set used to turn
// transcriptions into class indices.
//
// The pipeline itself lives in sub-packages.
// Package anysrc reads dataset indexes.
// Package anywin slices word images into sliding windows
// and stores them in a padded dataset container.
// Package anybatch produces character batches.
// Package anystn and anymodel implement the classifier.
// Package anyckpt trains it and keeps the current,
// best-loss and best-accuracy checkpoints.
package anychar
