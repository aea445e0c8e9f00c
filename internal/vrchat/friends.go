// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package vrchat

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// Friends lists one page of friends. offline selects offline friends
// instead of online ones.
func (c *Client) Friends(ctx context.Context, offset, n int, offline bool) ([]Friend, error) {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("n", strconv.Itoa(n))
	query.Set("offline", strconv.FormatBool(offline))

	var friends []Friend
	if err := c.do(ctx, http.MethodGet, "/auth/user/friends", query, nil, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// World fetches a world by id.
func (c *Client) World(ctx context.Context, id string) (*World, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, oops.Code("VRCHAT_WORLD_ID").Public("World id is required").Errorf("empty world id")
	}
	var world World
	if err := c.do(ctx, http.MethodGet, "/worlds/"+url.PathEscape(id), nil, nil, &world); err != nil {
		return nil, err
	}
	return &world, nil
}
