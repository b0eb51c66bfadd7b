package apiclient

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/sharebox/pkg/credstore"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

// refreshExpired returns a usable pair after stale.AccessToken was rejected
// as expired. The refreshed pair is saved before it is returned; on any
// failure the store is left untouched.
func (c *Client) refreshExpired(ctx context.Context, stale credstore.TokenPair, status int) (credstore.TokenPair, error) {
	current, err := credstore.LoadOrEmpty(ctx, c.store)
	if err != nil {
		return credstore.TokenPair{}, fmt.Errorf("failed to load credentials: %w", err)
	}

	// A concurrent call already replaced the token we sent.
	if c.coalesce && current.AccessToken != "" && current.AccessToken != stale.AccessToken {
		return current, nil
	}

	if current.RefreshToken == "" {
		return credstore.TokenPair{}, &Error{
			Kind:       KindUnauthenticated,
			StatusCode: status,
			Message:    MessageNoRefreshToken,
		}
	}

	if !c.coalesce {
		return c.refreshAndSave(ctx, current.RefreshToken)
	}

	key := current.RefreshToken
	ch := c.flight.DoChan(key, func() (any, error) {
		// The flight outlives any single caller.
		fctx := context.WithoutCancel(ctx)

		latest, err := credstore.LoadOrEmpty(fctx, c.store)
		if err == nil && latest.AccessToken != "" && latest.RefreshToken != key {
			return latest, nil
		}
		return c.refreshAndSave(fctx, key)
	})

	select {
	case <-ctx.Done():
		return credstore.TokenPair{}, &Error{Kind: KindTransport, Message: "refresh interrupted", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return credstore.TokenPair{}, res.Err
		}
		return res.Val.(credstore.TokenPair), nil
	}
}

func (c *Client) refreshAndSave(ctx context.Context, refreshToken string) (credstore.TokenPair, error) {
	log := slogx.FromContext(ctx)

	pair, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		log.WarnContext(ctx, "token_refresh_failed",
			"refresh_fp", cryptox.ShortFingerprint(refreshToken),
			"error", err,
		)
		return credstore.TokenPair{}, err
	}

	if err := c.store.Save(ctx, pair); err != nil {
		return credstore.TokenPair{}, fmt.Errorf("failed to save refreshed credentials: %w", err)
	}

	log.InfoContext(ctx, "token_refreshed",
		"refresh_fp", cryptox.ShortFingerprint(refreshToken),
		"new_refresh_fp", cryptox.ShortFingerprint(pair.RefreshToken),
	)
	return pair, nil
}
