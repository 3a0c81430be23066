package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdk "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/calderhq/storefront-backend/pkg/config"
	"github.com/calderhq/storefront-backend/pkg/storage"
)

const pingTimeout = 5 * time.Second

// Client adapts the Cloudinary SDK to the storage.Provider surface.
type Client struct {
	cld    *sdk.Cloudinary
	folder string
}

// NewClient validates the credentials and builds a client.
func NewClient(cfg config.CloudinaryConfig) (*Client, error) {
	if cfg.CloudName == "" {
		return nil, errors.New("cloudinary cloud name is required")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary api credentials are required")
	}
	cld, err := sdk.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("initialising cloudinary: %w", err)
	}
	if cfg.Timeout > 0 {
		seconds := int64(cfg.Timeout / time.Second)
		cld.Config.API.Timeout = seconds
		cld.Upload.Config.API.Timeout = seconds
		cld.Admin.Config.API.Timeout = seconds
	}
	return &Client{cld: cld, folder: cfg.UploadPrefix}, nil
}

// Upload streams the blob to Cloudinary and returns the stored object.
func (c *Client) Upload(ctx context.Context, blob storage.Blob, opts storage.UploadOptions) (*storage.UploadResult, error) {
	if blob.Reader == nil {
		return nil, errors.New("blob reader is required")
	}

	folder := opts.Folder
	if folder == "" {
		folder = c.folder
	}
	res, err := c.cld.Upload.Upload(ctx, blob.Reader, uploader.UploadParams{
		PublicID:     opts.PublicID,
		Folder:       folder,
		ResourceType: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}

	result := &storage.UploadResult{
		PublicID:     res.PublicID,
		URL:          res.SecureURL,
		ResourceType: res.ResourceType,
		SizeBytes:    int64(res.Bytes),
		Format:       res.Format,
	}
	if result.URL == "" {
		result.URL = res.URL
	}
	return result, nil
}

// Delete destroys the object. A missing object counts as success so
// compensation retries stay idempotent.
func (c *Client) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return errors.New("public id is required")
	}

	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	switch res.Result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("destroy returned %q", res.Result)
	}
}

// Ping verifies the configured credentials against the admin API.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	res, err := c.cld.Admin.Ping(ctx)
	if err != nil {
		return fmt.Errorf("cloudinary ping: %w", err)
	}
	if res.Status != "ok" {
		return fmt.Errorf("cloudinary ping returned %q", res.Status)
	}
	return nil
}
