package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"verdict/pkg/lifecycle"
)

type azure struct {
	client    *azblob.Client
	container string
	endpoint  *url.URL
	canSign   bool
	logger    *slog.Logger
}

// newAzure creates the Azure backend. A connection string yields a shared-key
// client able to mint SAS URLs; with only an account URL the client
// authenticates through the default credential chain and SignedURL reports
// ErrSigningUnavailable.
func newAzure(cfg *Config, logger *slog.Logger) (System, error) {
	endpoint, err := parseEndpoint(cfg.PublicEndpoint)
	if err != nil {
		return nil, err
	}

	// Sync failures must surface to the caller immediately instead of
	// stalling inside the SDK retry loop.
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	}

	a := &azure{
		container: cfg.ContainerName,
		endpoint:  endpoint,
		logger:    logger.With("system", "storage"),
	}

	if cfg.ConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, opts)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.client = client
		a.canSign = true
		return a, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("create storage credential: %w", err)
	}
	client, err := azblob.NewClient(cfg.AccountURL, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	a.client = client
	return a, nil
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	a.logger.Info("starting storage system")

	lc.OnStartup(func() {
		_, err := a.client.CreateContainer(lc.Context(), a.container, nil)
		if err != nil {
			if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
				a.logger.Error("storage container initialization failed", "error", err)
				return
			}
		}

		a.logger.Info("storage container ready", "container", a.container)
	})

	return nil
}

func (a *azure) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}

	_, err := a.client.UploadStream(ctx, a.container, key, reader, opts)
	if err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}

	return nil
}

func (a *azure) Download(ctx context.Context, key string) (*DownloadResult, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download blob %s: %w", key, err)
	}

	result := &DownloadResult{Body: resp.Body}
	if resp.ContentType != nil {
		result.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		result.ContentLength = *resp.ContentLength
	}
	return result, nil
}

func (a *azure) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := a.client.DeleteBlob(ctx, a.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete blob %s: %w", key, err)
	}

	return nil
}

func (a *azure) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	_, err := a.blobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check blob existence %s: %w", key, err)
	}

	return true, nil
}

func (a *azure) Find(ctx context.Context, key string) (*Object, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	props, err := a.blobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find blob %s: %w", key, err)
	}

	obj := &Object{Key: key}
	if props.ContentLength != nil {
		obj.Size = *props.ContentLength
	}
	if props.ContentType != nil {
		obj.ContentType = *props.ContentType
	}
	if props.LastModified != nil {
		obj.LastModified = *props.LastModified
	}
	return obj, nil
}

func (a *azure) List(ctx context.Context, prefix, marker string, maxResults int32) (*ListResult, error) {
	if maxResults < 1 {
		maxResults = 1
	}
	maxResults = min(maxResults, MaxListCap)

	opts := &azblob.ListBlobsFlatOptions{MaxResults: &maxResults}
	if prefix != "" {
		opts.Prefix = &prefix
	}
	if marker != "" {
		opts.Marker = &marker
	}

	result := &ListResult{Objects: []Object{}}

	pager := a.client.NewListBlobsFlatPager(a.container, opts)
	if !pager.More() {
		return result, nil
	}

	page, err := pager.NextPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blobs under %q: %w", prefix, err)
	}

	for _, item := range page.Segment.BlobItems {
		if item == nil || item.Name == nil {
			continue
		}
		obj := Object{Key: *item.Name}
		if props := item.Properties; props != nil {
			if props.ContentLength != nil {
				obj.Size = *props.ContentLength
			}
			if props.ContentType != nil {
				obj.ContentType = *props.ContentType
			}
			if props.LastModified != nil {
				obj.LastModified = *props.LastModified
			}
		}
		result.Objects = append(result.Objects, obj)
	}

	if page.NextMarker != nil && *page.NextMarker != "" {
		result.NextMarker = *page.NextMarker
	}
	return result, nil
}

// SignedURL mints a read-only SAS URL for the blob. When a public endpoint is
// configured, the signed URL is rewritten onto that host so keys derived from
// it stay stable across storage accounts.
func (a *azure) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if !a.canSign {
		return "", ErrSigningUnavailable
	}

	expiry := time.Now().UTC().Add(ttl)
	signed, err := a.blobClient(key).GetSASURL(sas.BlobPermissions{Read: true}, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("sign blob %s: %w", key, err)
	}

	if a.endpoint == nil {
		return signed, nil
	}

	u, err := url.Parse(signed)
	if err != nil {
		return "", fmt.Errorf("parse signed url: %w", err)
	}
	u.Scheme = a.endpoint.Scheme
	u.Host = a.endpoint.Host
	return u.String(), nil
}

func (a *azure) blobClient(key string) *blob.Client {
	return a.client.
		ServiceClient().
		NewContainerClient(a.container).
		NewBlobClient(key)
}

func parseEndpoint(endpoint string) (*url.URL, error) {
	if endpoint == "" {
		return nil, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse public_endpoint: %w", err)
	}
	return u, nil
}
