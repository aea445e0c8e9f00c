// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

// Package friends fetches the complete friends list.
package friends

import (
	"context"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/vfriends/vfriends/internal/vrchat"
)

// PageSize is the number of friends requested per page.
const PageSize = 100

// Lister fetches one page of friends.
type Lister interface {
	Friends(ctx context.Context, offset, n int, offline bool) ([]vrchat.Friend, error)
}

// FetchAll pages through online and offline friends concurrently and merges
// them by id, online entries first. Any page error fails the whole fetch.
func FetchAll(ctx context.Context, lister Lister) ([]vrchat.Friend, error) {
	var online, offline []vrchat.Friend

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		online, err = fetchPages(ctx, lister, false)
		return err
	})
	g.Go(func() error {
		var err error
		offline, err = fetchPages(ctx, lister, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Merge(online, offline), nil
}

func fetchPages(ctx context.Context, lister Lister, offline bool) ([]vrchat.Friend, error) {
	var all []vrchat.Friend
	for offset := 0; ; offset += PageSize {
		page, err := lister.Friends(ctx, offset, PageSize, offline)
		if err != nil {
			return nil, oops.Code("FRIENDS_FETCH").
				With("offset", offset).
				With("offline", offline).
				Wrap(err)
		}
		all = append(all, page...)
		if len(page) < PageSize {
			return all, nil
		}
	}
}

// Merge concatenates lists, keeping the first entry seen for each id.
func Merge(lists ...[]vrchat.Friend) []vrchat.Friend {
	seen := make(map[string]struct{})
	var out []vrchat.Friend
	for _, list := range lists {
		for _, f := range list {
			if _, dup := seen[f.ID]; dup {
				continue
			}
			seen[f.ID] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}
