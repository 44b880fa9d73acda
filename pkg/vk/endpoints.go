package vk

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// BaseURL is the base URL of the catalog API
	BaseURL = "https://api.vk.com/method"

	// APIVersion is the API version the client speaks
	APIVersion = "5.199"

	MethodGetAlbums    = "market.getAlbums"
	MethodGet          = "market.get"
	MethodGetByID      = "market.getById"
	MethodPhotosByID   = "photos.getById"
	MaxAlbumsPageSize  = 100
	MaxProductPageSize = 200
)

// Error codes returned inside a 200 response body
const (
	CodeUnknown          = 1
	CodeAuthFailed       = 5
	CodeTooManyRequests  = 6
	CodePermissionDenied = 7
	CodeFloodControl     = 9
	CodeInternalError    = 10
	CodeAccessDenied     = 15
	CodeRateLimitReached = 29
	CodeInvalidParameter = 100
)

// methodURL builds the request URL for an API method
func (c *Client) methodURL(method string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("v", c.version)
	if c.token != "" {
		params.Set("access_token", c.token)
	}
	return fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.baseURL, "/"), method, params.Encode())
}

// itemRef formats an owner/object pair the way the API expects it, e.g. -123_456
func itemRef(ownerID, id int64) string {
	return strconv.FormatInt(ownerID, 10) + "_" + strconv.FormatInt(id, 10)
}

func joinRefs(ownerID int64, ids []int64) string {
	refs := make([]string, len(ids))
	for i, id := range ids {
		refs[i] = itemRef(ownerID, id)
	}
	return strings.Join(refs, ",")
}
