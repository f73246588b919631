package model

import (
	"context"
	"io"
)

// Storage keeps avatar objects addressed by key.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Download returns ErrObjectNotFound when key is absent.
	Download(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ErrObjectNotFound is returned by Storage for missing keys.
var ErrObjectNotFound = &Error{Kind: KindNotFound, Message: "object not found"}

// Avatar is an uploaded profile image.
type Avatar struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

// Object is a stored blob being read back. Callers close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}
