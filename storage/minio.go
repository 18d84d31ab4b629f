package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MinioStore keeps blobs in a MinIO (or any S3-compatible) bucket. Object keys
// are the relative blob paths below an optional prefix.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	prefix    string
	publicURL string
}

type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
	// PublicURL is the base URL blobs are served from
	PublicURL string
}

// NewMinioStore connects to the endpoint and creates the bucket when it does not exist yet
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", opts.Bucket, err)
		}
		log.Info().Str("bucket", opts.Bucket).Msg("created storage bucket")
	}

	return &MinioStore{
		client:    client,
		bucket:    opts.Bucket,
		prefix:    strings.Trim(opts.Prefix, "/"),
		publicURL: opts.PublicURL,
	}, nil
}

func (s *MinioStore) Store(ctx context.Context, projectID uuid.UUID, originalName string, r io.Reader) (string, int64, error) {
	name, err := GenerateFilename(originalName)
	if err != nil {
		return "", 0, err
	}
	rel := projectID.String() + "/" + name

	info, err := s.client.PutObject(ctx, s.bucket, s.key(rel), r, -1, minio.PutObjectOptions{
		ContentType: mime.TypeByExtension(path.Ext(name)),
	})
	if err != nil {
		return "", 0, fmt.Errorf("put object %q: %w", rel, err)
	}
	return rel, info.Size, nil
}

// Remove deletes the object. S3 treats removing a missing key as success.
func (s *MinioStore) Remove(ctx context.Context, relPath string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(relPath), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", relPath, err)
	}
	return nil
}

// Stage copies the object to a trash key and removes the original
func (s *MinioStore) Stage(ctx context.Context, relPath string) (Removal, error) {
	original := s.key(relPath)
	staged := path.Join(path.Dir(original), trashPrefix+path.Base(original))

	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: staged},
		minio.CopySrcOptions{Bucket: s.bucket, Object: original},
	)
	if err != nil {
		if isNoSuchKey(err) {
			return noopRemoval{}, nil
		}
		return nil, fmt.Errorf("stage object %q for removal: %w", relPath, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, original, minio.RemoveObjectOptions{}); err != nil {
		_ = s.client.RemoveObject(ctx, s.bucket, staged, minio.RemoveObjectOptions{})
		return nil, fmt.Errorf("remove object %q: %w", relPath, err)
	}
	return &minioRemoval{store: s, original: original, staged: staged}, nil
}

func (s *MinioStore) Walk(ctx context.Context, fn func(BlobInfo) error) error {
	listPrefix := ""
	if s.prefix != "" {
		listPrefix = s.prefix + "/"
	}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: listPrefix, Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("list objects: %w", obj.Err)
		}
		rel := strings.TrimPrefix(obj.Key, listPrefix)
		if err := fn(BlobInfo{Path: rel, Size: obj.Size, ModTime: obj.LastModified}); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (s *MinioStore) PublicURL(relPath string) string {
	return joinURL(s.publicURL, relPath)
}

func (s *MinioStore) key(relPath string) string {
	rel := strings.TrimLeft(path.Clean("/"+relPath), "/")
	if s.prefix == "" {
		return rel
	}
	return s.prefix + "/" + rel
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

type minioRemoval struct {
	store    *MinioStore
	original string
	staged   string
}

func (r *minioRemoval) Commit(ctx context.Context) error {
	return r.store.client.RemoveObject(ctx, r.store.bucket, r.staged, minio.RemoveObjectOptions{})
}

func (r *minioRemoval) Rollback(ctx context.Context) error {
	_, err := r.store.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: r.store.bucket, Object: r.original},
		minio.CopySrcOptions{Bucket: r.store.bucket, Object: r.staged},
	)
	if err != nil {
		return fmt.Errorf("restore staged object: %w", err)
	}
	return r.store.client.RemoveObject(ctx, r.store.bucket, r.staged, minio.RemoveObjectOptions{})
}
