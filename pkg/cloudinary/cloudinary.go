// Package cloudinary uploads product media to Cloudinary with delivery-optimized eager transforms.
package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// ErrNotCloudinaryURL is returned when a URL does not point at a Cloudinary upload.
var ErrNotCloudinaryURL = errors.New("not a cloudinary upload url")

// Client uploads and removes product media.
type Client interface {
	UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (*Asset, error)
	UploadVideo(ctx context.Context, file io.Reader, folder, publicID string) (*Asset, error)
	DeleteByURL(ctx context.Context, url string) error
}

// Asset is a stored upload.
type Asset struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	PublicID     string `json:"public_id"`
}

const (
	ImageWidth = 800
	ThumbWidth = 200
)

// Eager transformations for upload (single string per SDK)
const (
	imageEager = "q_auto,f_auto,w_800,c_fill"
	videoEager = "q_auto:low,f_auto,w_1280"
)

var eagerAsyncFalse = false

// BuildOptimizedImageURL returns a Cloudinary URL with transformations for optimized delivery.
func BuildOptimizedImageURL(cloudName, publicID string, width int) string {
	if width <= 0 {
		width = ImageWidth
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,c_fill/%s",
		cloudName, width, publicID)
}

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{cloudName: cloudName, uploader: up}, nil
}

func (c *clientImpl) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (*Asset, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     folder,
		PublicID:   publicID,
		Eager:      imageEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return nil, err
	}
	if result.Error.Message != "" {
		return nil, errors.New(result.Error.Message)
	}
	a := &Asset{URL: result.SecureURL, PublicID: result.PublicID}
	if len(result.Eager) > 0 {
		a.ThumbnailURL = result.Eager[0].SecureURL
	}
	if a.ThumbnailURL == "" {
		a.ThumbnailURL = BuildOptimizedImageURL(c.cloudName, result.PublicID, ThumbWidth)
	}
	return a, nil
}

func (c *clientImpl) UploadVideo(ctx context.Context, file io.Reader, folder, publicID string) (*Asset, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "video",
		Eager:        videoEager,
		EagerAsync:   &eagerAsyncFalse,
	})
	if err != nil {
		return nil, err
	}
	if result.Error.Message != "" {
		return nil, errors.New(result.Error.Message)
	}
	a := &Asset{URL: result.SecureURL, PublicID: result.PublicID}
	if len(result.Eager) > 0 {
		a.ThumbnailURL = result.Eager[0].SecureURL
	}
	if a.ThumbnailURL == "" {
		a.ThumbnailURL = fmt.Sprintf("https://res.cloudinary.com/%s/video/upload/so_0/%s.jpg", c.cloudName, result.PublicID)
	}
	return a, nil
}

func (c *clientImpl) DeleteByURL(ctx context.Context, url string) error {
	resourceType, publicID, err := ParseUploadURL(url)
	if err != nil {
		return err
	}
	_, err = c.uploader.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: resourceType})
	return err
}

var (
	versionSegment   = regexp.MustCompile(`^v\d+$`)
	transformSegment = regexp.MustCompile(`^[a-z]{1,2}_[a-z0-9:.]+$`)
)

// ParseUploadURL extracts the resource type and public id from a delivery URL such as
// https://res.cloudinary.com/demo/image/upload/q_auto,w_800/v1712/products/12/img_ab.jpg.
func ParseUploadURL(url string) (resourceType, publicID string, err error) {
	const host = "res.cloudinary.com/"
	i := strings.Index(url, host)
	if i < 0 {
		return "", "", ErrNotCloudinaryURL
	}
	parts := strings.Split(url[i+len(host):], "/")
	// cloud name, resource type, "upload", then transforms, version, public id
	if len(parts) < 4 || parts[2] != "upload" {
		return "", "", ErrNotCloudinaryURL
	}
	resourceType = parts[1]
	rest := parts[3:]
	versioned := false
	for j, seg := range rest {
		if versionSegment.MatchString(seg) && j < len(rest)-1 {
			rest, versioned = rest[j+1:], true
			break
		}
	}
	if !versioned {
		for len(rest) > 1 && (strings.Contains(rest[0], ",") || transformSegment.MatchString(rest[0])) {
			rest = rest[1:]
		}
	}
	id := strings.Join(rest, "/")
	id = strings.TrimSuffix(id, path.Ext(id))
	if id == "" {
		return "", "", ErrNotCloudinaryURL
	}
	return resourceType, id, nil
}
