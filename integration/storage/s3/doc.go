// Package s3 stores finished render artifacts in Amazon S3 or any
// S3-compatible service.
//
// S3Storage implements artifact.Storage on the AWS SDK v2. The render
// worker uploads each finished video through it and records the public
// URL on the job; everything S3-specific (credentials, endpoints, URL
// derivation) stays behind the artifact.Storage interface.
//
// # Configuration
//
// S3Config is env-tagged for core/config loading:
//
//	S3_BUCKET            required
//	S3_REGION            required
//	S3_ACCESS_KEY_ID     static credentials; empty means IAM role / env chain
//	S3_SECRET_KEY        paired with the access key
//	S3_ENDPOINT          set for MinIO, Wasabi, Spaces and other compatibles
//	S3_BASE_URL          CDN or custom public base; derived when empty
//	S3_FORCE_PATH_STYLE  required by MinIO and most self-hosted services
//
// # Usage
//
//	var cfg s3.S3Config
//	config.MustLoad(&cfg)
//
//	store, err := s3.New(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	art, err := store.Upload(ctx, "renders/sunset-flight.mp4",
//		bytes.NewReader(video), int64(len(video)), "video/mp4")
//	if err != nil {
//		log.Fatal(err)
//	}
//	_ = art.URL // where the render is publicly served
//
// Against a local MinIO the only differences are Endpoint and path style:
//
//	cfg := s3.S3Config{
//		Bucket:         "renders",
//		Region:         "us-east-1",
//		AccessKeyID:    "minioadmin",
//		SecretKey:      "minioadmin",
//		Endpoint:       "http://localhost:9000",
//		ForcePathStyle: true,
//	}
//
// Behind a CDN, set BaseURL and URL() returns CDN links instead of raw
// bucket URLs.
//
// # Options
//
//   - WithS3UploadTimeout caps a single upload; rendered videos are large
//     and a stalled upload otherwise holds its worker slot.
//   - WithHTTPClient replaces the SDK's HTTP client (proxies, TLS).
//   - WithS3Client injects a mock implementing S3Client; tests use it to
//     avoid AWS config loading entirely.
//   - WithS3ConfigOption / WithS3ClientOption pass raw SDK options through.
//
// # Errors
//
// SDK failures are classified into the artifact package's sentinels
// (artifact.ErrNotFound, artifact.ErrAccessDenied,
// artifact.ErrBucketNotFound, ...) so callers never match on SDK types.
package s3
