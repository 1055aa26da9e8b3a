package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/upload"
)

type fakeRequest struct {
	method      string
	path        string
	acl         string
	contentType string
	body        []byte
}

// fakeS3 answers every request with status and body and records what it got.
func fakeS3(t *testing.T, status int, body string) (*httptest.Server, *[]fakeRequest) {
	t.Helper()

	var got []fakeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		got = append(got, fakeRequest{
			method:      r.Method,
			path:        r.URL.Path,
			acl:         r.Header.Get("X-Amz-Acl"),
			contentType: r.Header.Get("Content-Type"),
			body:        data,
		})
		if body != "" {
			w.Header().Set("Content-Type", "application/xml")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, &got
}

func newTestStore(srv *httptest.Server, creds aws.CredentialsProvider) *Store {
	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		Credentials:                creds,
		BaseEndpoint:               aws.String(srv.URL),
		UsePathStyle:               true,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		RetryMaxAttempts:           1,
	})
	return newStore(client, creds, Config{
		Bucket:        "images",
		Region:        "us-east-1",
		PublicBaseURL: "https://cdn.example.com/",
	})
}

func staticCreds() aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", "")
}

func TestStore_Put(t *testing.T) {
	srv, got := fakeS3(t, http.StatusOK, "")
	store := newTestStore(srv, staticCreds())

	content := []byte("\x89PNG\r\n\x1a\nimage")
	url, err := store.Put(context.Background(), "product-images/bag-1.png", bytes.NewReader(content), int64(len(content)), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/product-images/bag-1.png", url)

	require.Len(t, *got, 1)
	req := (*got)[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/images/product-images/bag-1.png", req.path)
	assert.Equal(t, "public-read", req.acl)
	assert.Equal(t, "image/png", req.contentType)
	assert.Equal(t, content, req.body)
}

func TestStore_Put_Errors(t *testing.T) {
	const invalidKey = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>InvalidAccessKeyId</Code><Message>The AWS Access Key Id you provided does not exist in our records.</Message></Error>`
	const noBucket = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchBucket</Code><Message>The specified bucket does not exist</Message></Error>`

	tests := []struct {
		name          string
		status        int
		body          string
		notConfigured bool
	}{
		{name: "rejected credentials", status: http.StatusForbidden, body: invalidKey, notConfigured: true},
		{name: "missing bucket", status: http.StatusNotFound, body: noBucket, notConfigured: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := fakeS3(t, tt.status, tt.body)
			store := newTestStore(srv, staticCreds())

			_, err := store.Put(context.Background(), "k.png", bytes.NewReader([]byte("x")), 1, "image/png")
			require.Error(t, err)
			assert.Equal(t, tt.notConfigured, errors.Is(err, upload.ErrStoreNotConfigured))
			assert.Len(t, *got, 1)
		})
	}
}

func TestStore_Put_CredentialsUnavailable(t *testing.T) {
	srv, got := fakeS3(t, http.StatusOK, "")
	creds := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{}, errors.New("no EC2 IMDS role found")
	})
	store := newTestStore(srv, creds)

	_, err := store.Put(context.Background(), "k.png", bytes.NewReader([]byte("x")), 1, "image/png")
	require.ErrorIs(t, err, upload.ErrStoreNotConfigured)
	assert.Empty(t, *got, "nothing is sent without credentials")
}

func TestNew_NotConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "no bucket", cfg: Config{Region: "us-east-1"}},
		{name: "half key pair", cfg: Config{Bucket: "images", Region: "us-east-1", AccessKeyID: "AKID"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(context.Background(), tt.cfg)
			require.NoError(t, err)

			_, err = store.Put(context.Background(), "k.png", bytes.NewReader([]byte("x")), 1, "image/png")
			require.ErrorIs(t, err, upload.ErrStoreNotConfigured)
		})
	}
}

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "explicit",
			cfg:  Config{Bucket: "b", PublicBaseURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com",
		},
		{
			name: "path style endpoint",
			cfg:  Config{Bucket: "b", Endpoint: "http://localhost:9000", UsePathStyle: true},
			want: "http://localhost:9000/b",
		},
		{
			name: "virtual host endpoint",
			cfg:  Config{Bucket: "b", Endpoint: "https://fra1.digitaloceanspaces.com"},
			want: "https://b.fra1.digitaloceanspaces.com",
		},
		{
			name: "aws",
			cfg:  Config{Bucket: "b", Region: "eu-west-1"},
			want: "https://b.s3.eu-west-1.amazonaws.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publicBaseURL(tt.cfg))
		})
	}
}

func TestEscapeKey(t *testing.T) {
	assert.Equal(t, "product-images/red%20bag.png", escapeKey("product-images/red bag.png"))
}
