package receipt

import (
	"context"
	"fmt"
)

// Pages runs a lookup and follows its cursor, calling fn for every page.
//
// It stops once totalCount ids have been seen, a page comes back empty or
// without a tag, or fn returns an error. A protocol error on any page is
// returned as an error.
func (c *Client) Pages(ctx context.Context, f Filter, id string, fn func(page *LookupResult) error) error {
	resp, err := c.Lookup(ctx, f, id)
	if err != nil {
		return err
	}

	seen := 0
	for {
		page, err := DecodeLookup(resp)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}

		seen += len(page.IDs)
		if seen >= page.TotalCount || len(page.IDs) == 0 || page.LookupTag == "" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("receipt pages: %w", err)
		}

		resp, err = c.LookupNext(ctx, page.LookupTag, f, id)
		if err != nil {
			return err
		}
	}
}

// CollectIDs gathers every id matching f across all pages.
func (c *Client) CollectIDs(ctx context.Context, f Filter, id string) ([]string, error) {
	var ids []string
	err := c.Pages(ctx, f, id, func(page *LookupResult) error {
		ids = append(ids, page.IDs...)
		return nil
	})
	return ids, err
}
