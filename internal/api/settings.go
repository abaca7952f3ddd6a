package api

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"
)

// Settings returns the server's settings object as raw JSON, "{}" when the
// server has none.
func (c *Client) Settings(ctx context.Context) (string, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/settings", nil, nil)
	if err != nil {
		return "", err
	}
	res := gjson.GetBytes(data, "settings")
	if !res.IsObject() {
		res = gjson.ParseBytes(data)
	}
	if !res.IsObject() {
		return "{}", nil
	}
	return res.Raw, nil
}

// UpdateSettings pushes the server-mirrored subset of the user's settings.
func (c *Client) UpdateSettings(ctx context.Context, payload map[string]any) error {
	return c.send(ctx, http.MethodPut, "/settings", payload, nil)
}
