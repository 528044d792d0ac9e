// Package blobstore reads corpora and writes results on local disk, in
// memory or in object storage.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic writes via rename
//   - MemoryStore: in-memory, for tests
//   - CachingStore: read-through cache of a remote store in another store
//   - s3.Store: Amazon S3 via the transfer manager
//   - minio.Store: MinIO and other S3-compatible servers
//
// Locations are addressed with URIs (see Parse):
//
//	articles.json
//	s3://bucket/corpora/articles.json.zst
//	minio://bucket/embeddings.txt
package blobstore
