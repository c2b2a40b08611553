package objstore

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	// Drain the body so piped uploads complete like a real put would.
	if body != nil {
		io.Copy(io.Discard, body)
	}
	args := m.Called(bucket, key, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(bucket, key)
	if rc, ok := args.Get(0).(io.ReadCloser); ok {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockObjectStore) Presign(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	args := m.Called(bucket, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) PublicURL(bucket, key string) string {
	args := m.Called(bucket, key)
	return args.String(0)
}
