package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options mirrors the [S3] config section.
type S3Options struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
	// FetchTimeout covers GetObject including the body read; ProbeTimeout covers HeadObject.
	FetchTimeout time.Duration
	ProbeTimeout time.Duration
}

// s3API is the subset of *s3.Client the fetcher needs.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Fetcher reads s3://bucket/key objects.
type S3Fetcher struct {
	client       s3API
	fetchTimeout time.Duration
	probeTimeout time.Duration
}

var _ Fetcher = (*S3Fetcher)(nil)

// NewS3Fetcher loads the default AWS credential chain and builds an S3 client.
func NewS3Fetcher(ctx context.Context, opts S3Options) (*S3Fetcher, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
	return newS3FetcherWithClient(client, opts), nil
}

func newS3FetcherWithClient(client s3API, opts S3Options) *S3Fetcher {
	f := &S3Fetcher{
		client:       client,
		fetchTimeout: opts.FetchTimeout,
		probeTimeout: opts.ProbeTimeout,
	}
	if f.fetchTimeout <= 0 {
		f.fetchTimeout = defaultFetchTimeout
	}
	if f.probeTimeout <= 0 {
		f.probeTimeout = defaultProbeTimeout
	}
	return f
}

func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Reason: "invalid s3 url", Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	obj, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		cancel()
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, &DownloadError{URL: rawURL, Status: http.StatusNotFound, Reason: "no such key", Err: err}
		}
		return nil, &DownloadError{URL: rawURL, Reason: s3Reason("get object", err), Err: err}
	}
	if obj.Body == nil {
		cancel()
		return nil, &DownloadError{URL: rawURL, Reason: "empty response body"}
	}
	sig := objectSignature(obj.ETag, obj.LastModified, obj.ContentLength)
	return &Download{
		Body:      &cancelOnClose{ReadCloser: obj.Body, cancel: cancel},
		Signature: sig,
		ModTime:   parseModTime(sig.LastModified),
	}, nil
}

func (f *S3Fetcher) Probe(ctx context.Context, rawURL string) (Signature, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return Signature{}, &ProbeError{URL: rawURL, Reason: "invalid s3 url", Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, f.probeTimeout)
	defer cancel()
	obj, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return Signature{}, &ProbeError{URL: rawURL, Status: http.StatusNotFound, Reason: "not found", Err: err}
		}
		return Signature{}, &ProbeError{URL: rawURL, Reason: s3Reason("head object", err), Err: err}
	}
	sig := objectSignature(obj.ETag, obj.LastModified, obj.ContentLength)
	if sig.Empty() {
		return Signature{}, &ProbeError{URL: rawURL, Reason: "no freshness metadata"}
	}
	return sig, nil
}

func s3Reason(op string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return fmt.Sprintf("%s: %v", op, err)
}

func objectSignature(etag *string, lastModified *time.Time, length *int64) Signature {
	sig := Signature{ETag: normalizeETag(aws.ToString(etag))}
	if lastModified != nil && !lastModified.IsZero() {
		sig.LastModified = lastModified.UTC().Format(http.TimeFormat)
	}
	if length != nil && *length >= 0 {
		sig.ContentLength = int64Ptr(*length)
	}
	return sig
}

// parseS3URL splits s3://bucket/key.
func parseS3URL(rawURL string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("scheme %q is not s3", u.Scheme)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.New("expected s3://bucket/key")
	}
	return u.Host, key, nil
}

// IsS3URL reports whether rawURL uses the s3 scheme.
func IsS3URL(rawURL string) bool {
	_, _, err := parseS3URL(rawURL)
	return err == nil
}
