// Package reindex rebuilds the vector index for a whole corpus, typically
// after the embedding model changes.
//
// Documents are processed in ID order and in batches. After each batch a
// checkpoint is saved so an interrupted run resumes where it stopped, as
// long as the embedding model is unchanged.
package reindex
