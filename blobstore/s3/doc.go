// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("corpora/"),
//	    s3.WithRegion("us-east-1"),
//	)
//	data, err := store.Get(ctx, "articles.json.zst")
//
// # Features
//
//   - Concurrent ranged downloads via the transfer manager
//   - Multipart uploads for large results
//   - Automatic pagination for listing
//   - Configurable prefix
package s3
