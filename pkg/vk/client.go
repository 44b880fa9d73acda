package vk

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"catalogsync/pkg/errors"
	"catalogsync/pkg/logger"
	"catalogsync/pkg/models"
	"catalogsync/pkg/photos"
	"catalogsync/pkg/ratelimit"
)

// ClientConfig holds the connection settings of the API client
type ClientConfig struct {
	BaseURL           string
	APIVersion        string
	AccessToken       string
	Timeout           time.Duration
	RequestsPerSecond float64
	// CoverQuality selects the album cover variant
	CoverQuality photos.Quality
}

// Client performs single calls to the catalog API. It classifies failures
// but never retries; see Fetcher for the retrying layer
type Client struct {
	httpClient   *http.Client
	baseURL      string
	version      string
	token        string
	limiter      ratelimit.Limiter
	coverQuality photos.Quality
	logger       logger.Logger
}

// NewClient creates a new API client
func NewClient(cfg ClientConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = APIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CoverQuality == "" {
		cfg.CoverQuality = photos.QualityHigh
	}

	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      cfg.BaseURL,
		version:      cfg.APIVersion,
		token:        cfg.AccessToken,
		limiter:      ratelimit.NewRequestLimiter(cfg.RequestsPerSecond),
		coverQuality: cfg.CoverQuality,
		logger:       log.WithField("component", "vk_client"),
	}
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// call performs one API method call and decodes the response payload into target
func (c *Client) call(ctx context.Context, method string, params url.Values, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL(method, params), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(method, err)
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, method, resp.StatusCode, time.Since(start))

	if err := c.checkResponseStatus(method, resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(method, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse API response", map[string]interface{}{
			"method":       method,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return fmt.Errorf("failed to parse %s response: %w", method, err)
	}

	if env.Error != nil {
		return classifyAPIError(method, env.Error)
	}

	if err := json.Unmarshal(env.Response, target); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", method, err)
	}
	return nil
}

// checkResponseStatus maps HTTP-level failures to classified errors
func (c *Client) checkResponseStatus(method string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	errorType := errors.ClassifyStatusCode(resp.StatusCode)
	c.logger.WarnWithFields("API returned error status", map[string]interface{}{
		"method":     method,
		"status":     resp.StatusCode,
		"error_type": string(errorType),
	})
	return errors.New(errorType, resp.StatusCode, "%s returned HTTP %d", method, resp.StatusCode)
}

// classifyAPIError maps an error embedded in a 200 body
func classifyAPIError(method string, apiErr *APIError) error {
	var errorType errors.ErrorType
	switch apiErr.Code {
	case CodeTooManyRequests, CodeFloodControl, CodeRateLimitReached:
		errorType = errors.ErrorTypeRateLimited
	case CodeInternalError:
		errorType = errors.ErrorTypeServerUnavailable
	default:
		errorType = errors.ErrorTypeClient
	}
	return errors.New(errorType, apiErr.Code, "%s: %s", method, apiErr.Message)
}

// classifyTransportError maps failures that happened before a response was read.
// Cancellation is returned unclassified so it propagates
func classifyTransportError(method string, err error) error {
	if stderrors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.New(errors.ErrorTypeTimeout, 0, "%s timed out: %v", method, err)
	}
	return errors.New(errors.ErrorTypeServerUnavailable, 0, "%s network error: %v", method, err)
}

// ListCollections fetches one page of albums of the owner
func (c *Client) ListCollections(ctx context.Context, ownerID int64, offset, count int) (models.Page[models.Collection], error) {
	params := url.Values{}
	params.Set("owner_id", strconv.FormatInt(ownerID, 10))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("count", strconv.Itoa(count))

	var resp listResponse[Album]
	if err := c.call(ctx, MethodGetAlbums, params, &resp); err != nil {
		return models.Page[models.Collection]{}, err
	}

	page := models.Page[models.Collection]{Total: resp.Count}
	for _, album := range resp.Items {
		page.Items = append(page.Items, album.toCollection(c.coverQuality))
	}
	return page, nil
}

// ListProducts fetches one page of products of an album with full photo payloads
func (c *Client) ListProducts(ctx context.Context, ownerID, albumID int64, offset, count int) (models.Page[models.Product], error) {
	params := url.Values{}
	params.Set("owner_id", strconv.FormatInt(ownerID, 10))
	params.Set("album_id", strconv.FormatInt(albumID, 10))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("count", strconv.Itoa(count))
	params.Set("extended", "1")

	var resp listResponse[Item]
	if err := c.call(ctx, MethodGet, params, &resp); err != nil {
		return models.Page[models.Product]{}, err
	}

	page := models.Page[models.Product]{Total: resp.Count}
	for _, item := range resp.Items {
		page.Items = append(page.Items, item.toProduct(albumID))
	}
	return page, nil
}

// GetProduct fetches one product with full photo payload
func (c *Client) GetProduct(ctx context.Context, ownerID, itemID, collectionID int64) (*models.Product, error) {
	params := url.Values{}
	params.Set("item_ids", itemRef(ownerID, itemID))
	params.Set("extended", "1")

	var resp listResponse[Item]
	if err := c.call(ctx, MethodGetByID, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, errors.New(errors.ErrorTypeClient, 0, "product %s not found", itemRef(ownerID, itemID))
	}

	p := resp.Items[0].toProduct(collectionID)
	return &p, nil
}

// GetPhotosByID resolves bare photo IDs into photo objects
func (c *Client) GetPhotosByID(ctx context.Context, ownerID int64, ids []int64) ([]models.RawPhoto, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	params := url.Values{}
	params.Set("photos", joinRefs(ownerID, ids))
	params.Set("photo_sizes", "1")

	var resp []json.RawMessage
	if err := c.call(ctx, MethodPhotosByID, params, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// DownloadPhoto downloads a photo from the CDN. It bypasses the API
// rate limiter. Failures are classified as download failures
func (c *Client) DownloadPhoto(ctx context.Context, photoURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeDownload, 0, "invalid photo URL %q: %v", photoURL, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeDownload, 0, "failed to download photo: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrorTypeDownload, resp.StatusCode, "photo download returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeDownload, resp.StatusCode, "failed to read photo data: %v", err)
	}
	return data, nil
}
