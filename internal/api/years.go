package api

import (
	"context"

	"github.com/JssMedrano/aqualab-go/internal/portal"
)

func (c *Client) Years(ctx context.Context) ([]portal.Year, error) {
	raw, err := c.do(ctx, "GET", "/years", nil)
	if err != nil {
		return nil, err
	}
	return portal.DecodeList[portal.Year](raw, "years")
}

// YearsPublic lists cohorts without authentication, for registration pages.
// Any failure (the endpoint may well require auth) degrades to an empty list;
// the error is returned for logging but callers render the empty result.
func (c *Client) YearsPublic(ctx context.Context) ([]portal.Year, error) {
	raw, err := c.doPublic(ctx, "GET", "/years")
	if err != nil {
		return []portal.Year{}, err
	}
	years, err := portal.DecodeList[portal.Year](raw, "years")
	if err != nil {
		return []portal.Year{}, err
	}
	return years, nil
}

func (c *Client) CreateYear(ctx context.Context, year int) (portal.Year, error) {
	raw, err := c.do(ctx, "POST", "/years", map[string]int{"year": year})
	if err != nil {
		return portal.Year{}, err
	}
	var y portal.Year
	if err := decodeInto(raw, &y); err != nil {
		return portal.Year{}, err
	}
	return y, nil
}

func (c *Client) UpdateYear(ctx context.Context, id string, year int) (portal.Year, error) {
	raw, err := c.do(ctx, "PUT", "/years/"+id, map[string]int{"year": year})
	if err != nil {
		return portal.Year{}, err
	}
	var y portal.Year
	if err := decodeInto(raw, &y); err != nil {
		return portal.Year{}, err
	}
	return y, nil
}

func (c *Client) DeleteYear(ctx context.Context, id string) error {
	_, err := c.do(ctx, "DELETE", "/years/"+id, nil)
	return err
}
