package storage

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeshare/internal/config"
)

type fakePresigner struct {
	input *s3.PutObjectInput
	opts  s3.PresignOptions
}

func (f *fakePresigner) PresignPutObject(_ context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.input = params
	for _, fn := range optFns {
		fn(&f.opts)
	}
	return &v4.PresignedHTTPRequest{URL: "https://upload.example/" + *params.Key, Method: "PUT"}, nil
}

func newFakeUploader(p *fakePresigner) *S3Uploader {
	return &S3Uploader{
		presign:   p,
		bucket:    "freeshare",
		publicURL: "https://cdn.example",
		ttl:       5 * time.Minute,
		now:       func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
		newKey:    func() string { return "abc" },
	}
}

func TestPresignUploadBuildsKeyAndURLs(t *testing.T) {
	p := &fakePresigner{}
	u := newFakeUploader(p)

	up, err := u.PresignUpload(context.Background(), "image/JPEG")
	require.NoError(t, err)

	assert.Equal(t, "items/abc.jpg", up.Key)
	assert.Equal(t, "https://upload.example/items/abc.jpg", up.UploadURL)
	assert.Equal(t, "https://cdn.example/items/abc.jpg", up.ImageURL)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC), up.ExpiresAt)
	assert.Equal(t, "freeshare", *p.input.Bucket)
	assert.Equal(t, "image/jpeg", *p.input.ContentType)
	assert.Equal(t, 5*time.Minute, p.opts.Expires)
}

func TestPresignUploadRejectsNonImages(t *testing.T) {
	u := newFakeUploader(&fakePresigner{})

	for _, ct := range []string{"", "text/plain", "application/pdf", "image/x-unknown-thing"} {
		_, err := u.PresignUpload(context.Background(), ct)
		assert.ErrorIs(t, err, ErrUnsupportedContentType, ct)
	}
}

func TestNewS3UploaderSignsAgainstEndpoint(t *testing.T) {
	cfg := config.Config{
		S3Endpoint:       "http://localhost:9000/",
		S3Region:         "us-east-1",
		S3Bucket:         "freeshare",
		S3AccessKey:      "minio",
		S3SecretKey:      "minio-secret",
		S3ForcePathStyle: true,
	}

	u, err := NewS3Uploader(context.Background(), cfg)
	require.NoError(t, err)

	up, err := u.PresignUpload(context.Background(), "image/png")
	require.NoError(t, err)

	parsed, err := url.Parse(up.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", parsed.Host)
	assert.True(t, strings.HasPrefix(parsed.Path, "/freeshare/items/"))
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
	assert.True(t, strings.HasPrefix(up.ImageURL, "http://localhost:9000/freeshare/items/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
}

func writeCABundle(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "freeshare-test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	return path
}

func TestNewS3UploaderHonorsCABundle(t *testing.T) {
	t.Setenv("AWS_CA_BUNDLE", writeCABundle(t))

	u, err := NewS3Uploader(context.Background(), config.Config{
		S3Endpoint:       "https://storage.internal:9000",
		S3Region:         "us-east-1",
		S3Bucket:         "freeshare",
		S3AccessKey:      "minio",
		S3SecretKey:      "minio-secret",
		S3ForcePathStyle: true,
	})
	require.NoError(t, err)

	up, err := u.PresignUpload(context.Background(), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.UploadURL, "https://storage.internal:9000/freeshare/items/"))
}

func TestNewS3UploaderRequiresBucket(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), config.Config{S3Region: "us-east-1"})
	assert.Error(t, err)
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://img.example", publicBaseURL(config.Config{S3PublicURL: "https://img.example/"}, ""))
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com", publicBaseURL(config.Config{S3Bucket: "b", S3Region: "eu-west-1"}, ""))
}
