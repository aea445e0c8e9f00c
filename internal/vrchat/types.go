// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package vrchat

// Icons holds the picture fields shared by user shapes.
type Icons struct {
	ProfilePicOverride             string `json:"profilePicOverride,omitempty"`
	UserIcon                       string `json:"userIcon,omitempty"`
	CurrentAvatarImageURL          string `json:"currentAvatarImageUrl,omitempty"`
	CurrentAvatarThumbnailImageURL string `json:"currentAvatarThumbnailImageUrl,omitempty"`
}

// IconURL returns the first non-empty picture in display priority order.
func (i Icons) IconURL() string {
	for _, candidate := range []string{
		i.ProfilePicOverride,
		i.UserIcon,
		i.CurrentAvatarImageURL,
		i.CurrentAvatarThumbnailImageURL,
	} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// User is the authenticated account returned by the current-user probe.
type User struct {
	ID                string `json:"id"`
	Username          string `json:"username,omitempty"`
	DisplayName       string `json:"displayName"`
	Status            string `json:"status,omitempty"`
	StatusDescription string `json:"statusDescription,omitempty"`
	Icons
}

// Friend is one entry of the friends list.
type Friend struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Status            string `json:"status,omitempty"`
	StatusDescription string `json:"statusDescription,omitempty"`
	Location          string `json:"location,omitempty"`
	Platform          string `json:"platform,omitempty"`
	LastPlatform      string `json:"last_platform,omitempty"`
	Icons
}

// World describes an instance location a friend may be in.
type World struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	AuthorName        string `json:"authorName,omitempty"`
	ImageURL          string `json:"imageUrl,omitempty"`
	ThumbnailImageURL string `json:"thumbnailImageUrl,omitempty"`
	Capacity          int    `json:"capacity,omitempty"`
	Occupants         int    `json:"occupants,omitempty"`
}

// CurrentUserResult is either a resolved User or a second-factor challenge.
type CurrentUserResult struct {
	User             *User
	TwoFactorMethods []string
}

// RequiresTwoFactor reports whether the probe returned a challenge.
func (r *CurrentUserResult) RequiresTwoFactor() bool {
	return r.User == nil
}
