package hostapi

import "context"

// Host API operation names.
const (
	OpBrowse       = "browse"
	OpResolve      = "resolve"
	OpGetConfig    = "getConfig"
	OpGetThumbnail = "getThumbnail"
)

// BrowseChild is one entry in a browse listing.
type BrowseChild struct {
	ContentID string `json:"contentId"`
	Kind      string `json:"kind"` // "container", "image" or "video"
	Title     string `json:"title"`
	CanExpand bool   `json:"canExpand"`
}

// BrowseResult is the listing for one path.
type BrowseResult struct {
	Title    string        `json:"title"`
	Children []BrowseChild `json:"children"`
}

// ResolveResult carries the playable URL for one item.
type ResolveResult struct {
	URL string `json:"url"`
}

// ThumbnailConfig reports the host-side thumbnail tooling state.
type ThumbnailConfig struct {
	Configured    bool `json:"configured"`
	ToolAvailable bool `json:"toolAvailable"`
}

// ThumbnailResult carries a pre-rendered thumbnail, base64-encoded for
// transport.
type ThumbnailResult struct {
	Success       bool   `json:"success"`
	PayloadBase64 string `json:"payloadBase64"`
	ContentType   string `json:"contentType"`
}

// Browse lists the children of the given path identifier.
func (c *Client) Browse(ctx context.Context, id string) (*BrowseResult, error) {
	var result BrowseResult
	if err := c.Call(ctx, OpBrowse, id, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Resolve returns the playable URL for one item.
func (c *Client) Resolve(ctx context.Context, id string) (string, error) {
	var result ResolveResult
	if err := c.Call(ctx, OpResolve, id, &result); err != nil {
		return "", err
	}
	return result.URL, nil
}

// GetThumbnailConfig queries the host-side thumbnail generator state.
func (c *Client) GetThumbnailConfig(ctx context.Context) (*ThumbnailConfig, error) {
	var result ThumbnailConfig
	if err := c.Call(ctx, OpGetConfig, "", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetThumbnail requests a pre-rendered thumbnail for one item.
func (c *Client) GetThumbnail(ctx context.Context, id string) (*ThumbnailResult, error) {
	var result ThumbnailResult
	if err := c.Call(ctx, OpGetThumbnail, id, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
