package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Upload drivers.
const (
	DriverFilesystem = "fs"
	DriverS3         = "s3"
)

// ObjectStore keeps uploaded student documents (resumes, photos).
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	URL(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
	Driver() string
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

// ObjectKey builds a unique key of the form folder/owner/yyyymmdd-uuid-name.
func ObjectKey(folder, owner, originalName string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(originalName, "\\", "/"))
	safe := unsafeNameChars.ReplaceAllString(base, "_")
	if safe == "" || safe == "." || safe == "_" {
		safe = "file"
	}
	owner = unsafeNameChars.ReplaceAllString(owner, "_")
	return fmt.Sprintf("%s/%s/%s-%s-%s", folder, owner, now.Format("20060102"), uuid.NewString(), safe)
}
