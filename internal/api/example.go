package api

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/fragmede/authdesk/internal/cache"
)

// Example fetches the protected example resource and caches its user_info.
func (c *Client) Example(ctx context.Context) (*ExampleResponse, error) {
	resp, err := c.Do(ctx, NewRequest(http.MethodGet, PathExample, nil))
	if err != nil {
		return nil, err
	}

	var ex ExampleResponse
	if err := resp.Decode(&ex); err != nil {
		return nil, fmt.Errorf("decoding example: %w", err)
	}

	if c.profiles != nil {
		err := c.profiles.PutProfile(cache.Profile{
			Username:    ex.UserInfo.Username,
			Message:     ex.Message,
			BankBalance: ex.UserInfo.BankBalance,
		})
		if err != nil {
			c.log.Warnw("caching profile", "error", err)
		}
	}
	return &ex, nil
}

// Overview is what the example screen shows.
type Overview struct {
	Authenticated bool
	Example       *ExampleResponse
}

// Overview runs check-auth and the example fetch concurrently. Both may hit
// an expired session at once; they share one refresh.
func (c *Client) Overview(ctx context.Context) (*Overview, error) {
	var ov Overview

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ov.Authenticated = c.CheckAuth(ctx)
		return nil
	})
	g.Go(func() error {
		ex, err := c.Example(ctx)
		if err != nil {
			return err
		}
		ov.Example = ex
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ov, nil
}
