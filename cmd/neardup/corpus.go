package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/hupe1980/neardup/blobstore"
	"github.com/hupe1980/neardup/blobstore/minio"
	"github.com/hupe1980/neardup/blobstore/s3"
	"github.com/hupe1980/neardup/codec"
)

// article is one entry of an articles corpus.
type article struct {
	Content string `json:"content" msgpack:"content"`
}

// openStore returns the store serving loc. Remote stores are wrapped in a
// CachingStore when cacheDir is set.
func openStore(ctx context.Context, loc blobstore.Location, cacheDir string, logger *slog.Logger) (blobstore.Store, error) {
	var store blobstore.Store

	switch loc.Scheme {
	case blobstore.SchemeFile:
		return blobstore.NewLocalStore(""), nil
	case blobstore.SchemeS3:
		s, err := s3.New(ctx, loc.Bucket)
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		store = s
	case blobstore.SchemeMinio:
		client, err := minio.Dial(minio.ConfigFromEnv())
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		store = minio.NewStore(client, loc.Bucket, "")
	default:
		return nil, fmt.Errorf("unsupported scheme %q", loc.Scheme)
	}

	if cacheDir != "" {
		cache := blobstore.NewLocalStore(path.Join(cacheDir, string(loc.Scheme), loc.Bucket))
		store = blobstore.NewCachingStore(store, cache, logger)
	}
	return store, nil
}

// readBlob reads the blob at uri and decompresses it by extension.
func readBlob(ctx context.Context, uri, cacheDir string, logger *slog.Logger) ([]byte, error) {
	loc, err := blobstore.Parse(uri)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, loc, cacheDir, logger)
	if err != nil {
		return nil, err
	}
	data, err := store.Get(ctx, loc.Key)
	if err != nil {
		return nil, err
	}
	return codec.Decompress(data, codec.CompressionForPath(loc.Key))
}

// shard is one decompressed blob of a corpus.
type shard struct {
	name string
	data []byte
}

// readCorpus reads the corpus at uri. A uri ending in "/" names a sharded
// corpus: every blob below that prefix is read in name order. Names whose
// base starts with "." are ignored.
func readCorpus(ctx context.Context, uri, cacheDir string, logger *slog.Logger) ([]shard, error) {
	if !strings.HasSuffix(uri, "/") {
		data, err := readBlob(ctx, uri, cacheDir, logger)
		if err != nil {
			return nil, err
		}
		return []shard{{name: uri, data: data}}, nil
	}

	loc, err := blobstore.Parse(uri)
	if err != nil {
		return nil, err
	}

	var (
		store  blobstore.Store
		prefix = loc.Key
	)
	if loc.Scheme == blobstore.SchemeFile {
		store, prefix = blobstore.NewLocalStore(loc.Key), ""
	} else if store, err = openStore(ctx, loc, cacheDir, logger); err != nil {
		return nil, err
	}

	names, err := store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	shards := make([]shard, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(path.Base(name), ".") {
			continue
		}
		data, err := store.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if data, err = codec.Decompress(data, codec.CompressionForPath(name)); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		shards = append(shards, shard{name: name, data: data})
	}
	if len(shards) == 0 {
		return nil, fmt.Errorf("no blobs below %s: %w", uri, blobstore.ErrNotFound)
	}
	return shards, nil
}

// writeBlob encodes v by the extension of uri and writes it.
func writeBlob(ctx context.Context, uri string, v any) error {
	loc, err := blobstore.Parse(uri)
	if err != nil {
		return err
	}
	c, comp := codec.ForPath(loc.Key)
	data, err := codec.Encode(c, comp, v)
	if err != nil {
		return err
	}
	return putBlob(ctx, loc, data)
}

// writeRawBlob compresses data by the extension of uri and writes it.
func writeRawBlob(ctx context.Context, uri string, data []byte) error {
	loc, err := blobstore.Parse(uri)
	if err != nil {
		return err
	}
	data, err = codec.Compress(data, codec.CompressionForPath(loc.Key))
	if err != nil {
		return err
	}
	return putBlob(ctx, loc, data)
}

func putBlob(ctx context.Context, loc blobstore.Location, data []byte) error {
	store, err := openStore(ctx, loc, "", nil)
	if err != nil {
		return err
	}
	return store.Put(ctx, loc.Key, data)
}

// corpusFormat returns the extension of uri with any compression suffix
// removed.
func corpusFormat(uri string) string {
	base := uri[:len(uri)-len(codec.CompressionForPath(uri).Ext())]
	return strings.ToLower(path.Ext(base))
}

// decodeArticles decodes an articles corpus. Entries without content are
// kept as empty texts so ids stay positional.
func decodeArticles(data []byte, format string) ([]string, error) {
	c := codec.Default
	if format == ".msgpack" || format == ".mpk" {
		c = codec.Msgpack{}
	}

	var articles []article
	if err := c.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}

	texts := make([]string, len(articles))
	for i, a := range articles {
		texts[i] = a.Content
	}
	return texts, nil
}

// decodeEmbeddings decodes an embeddings corpus: JSON or msgpack arrays of
// arrays, or whitespace-separated text rows.
func decodeEmbeddings(data []byte, format string) ([][]float32, error) {
	var c codec.Codec
	switch format {
	case ".json":
		c = codec.JSON{}
	case ".msgpack", ".mpk":
		c = codec.Msgpack{}
	default:
		return parseRows(data)
	}

	var vecs [][]float32
	if err := c.Unmarshal(data, &vecs); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	return vecs, nil
}

// parseRows parses one vector per non-empty line. Lines starting with '#'
// are comments.
func parseRows(data []byte) ([][]float32, error) {
	var vecs [][]float32

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		vec := make([]float32, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %d: %w", line, i+1, err)
			}
			vec[i] = float32(v)
		}
		if len(vecs) > 0 && len(vec) != len(vecs[0]) {
			return nil, fmt.Errorf("line %d: %d values, want %d", line, len(vec), len(vecs[0]))
		}
		vecs = append(vecs, vec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return vecs, nil
}
