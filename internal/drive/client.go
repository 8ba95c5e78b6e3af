// Package drive lists and downloads exam documents from a Google Drive
// folder tree.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/cloo-solutions/examvault/internal/domain"
)

const (
	MimeTypeFolder = "application/vnd.google-apps.folder"
	MimeTypePDF    = "application/pdf"
	MimeTypeDocx   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTypeText   = "text/plain"
	MimeTypeMD     = "text/markdown"

	pageSize = 100

	// MaxDownloadBytes caps a single file download.
	MaxDownloadBytes = 200 << 20
)

// SupportedMimeTypes are the file kinds returned by List.
var SupportedMimeTypes = map[string]bool{
	MimeTypePDF:  true,
	MimeTypeDocx: true,
	MimeTypeText: true,
	MimeTypeMD:   true,
}

const listFields googleapi.Field = "nextPageToken, files(id, name, mimeType, size, md5Checksum, modifiedTime)"

type Config struct {
	ClientID          string
	ClientSecret      string
	RefreshToken      string
	RequestsPerSecond float64
	// Exclude holds doublestar patterns matched against file paths.
	Exclude []string
}

// NewTokenSource returns a refreshing token source for a read-only Drive grant.
func NewTokenSource(ctx context.Context, cfg Config) oauth2.TokenSource {
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gdrive.DriveReadonlyScope},
	}
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
}

// Client implements the remote file store over the Drive v3 API.
type Client struct {
	svc     *gdrive.Service
	limiter *RateLimiter
	exclude []string
}

// New creates a Client. Without opts it authenticates with the refresh token in cfg.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	for _, p := range cfg.Exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	if len(opts) == 0 {
		opts = []option.ClientOption{option.WithTokenSource(NewTokenSource(ctx, cfg))}
	}
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &Client{
		svc:     svc,
		limiter: NewRateLimiter(cfg.RequestsPerSecond),
		exclude: cfg.Exclude,
	}, nil
}

// List walks rootID recursively and returns every supported file. Paths are
// built from folder names and prefixed with pathPrefix.
func (c *Client) List(ctx context.Context, rootID, pathPrefix string) ([]domain.RemoteFile, error) {
	var files []domain.RemoteFile
	if err := c.walk(ctx, rootID, strings.Trim(pathPrefix, "/"), &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *Client) walk(ctx context.Context, folderID, dir string, out *[]domain.RemoteFile) error {
	pageToken := ""
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		call := c.svc.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
			Fields(listFields).
			PageSize(pageSize).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			err = classify(err)
			if errors.Is(err, ErrRateLimited) {
				c.limiter.Backoff(0)
			}
			return fmt.Errorf("failed to list folder %s: %w", folderID, err)
		}

		for _, f := range res.Files {
			p := joinPath(dir, f.Name)
			if c.excluded(p) {
				continue
			}
			if f.MimeType == MimeTypeFolder {
				if err := c.walk(ctx, f.Id, p, out); err != nil {
					return err
				}
				continue
			}
			if !SupportedMimeTypes[f.MimeType] {
				continue
			}
			*out = append(*out, toRemoteFile(f, p))
		}

		if res.NextPageToken == "" {
			return nil
		}
		pageToken = res.NextPageToken
	}
}

// Download fetches the raw bytes of fileID.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrRateLimited) {
			c.limiter.Backoff(0)
		}
		return nil, fmt.Errorf("failed to download %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fileID, err)
	}
	if len(data) > MaxDownloadBytes {
		return nil, fmt.Errorf("%s: %w", fileID, ErrTooLarge)
	}
	return data, nil
}

func (c *Client) excluded(p string) bool {
	for _, pattern := range c.exclude {
		ok, err := doublestar.Match(pattern, p)
		if err != nil {
			log.Printf("[drive] bad exclude pattern %q: %v", pattern, err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}

func toRemoteFile(f *gdrive.File, p string) domain.RemoteFile {
	rf := domain.RemoteFile{
		ID:        f.Id,
		Name:      f.Name,
		Path:      p,
		Checksum:  f.Md5Checksum,
		MimeType:  f.MimeType,
		SizeBytes: f.Size,
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		rf.ModifiedTime = &t
	}
	return rf
}
