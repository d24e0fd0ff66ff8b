/*
Package user contains the client-side representation of a chat participant.

A Profile is derived entirely from the display name: the avatar URL is a fixed template
parameterized only by the name, so identical names always resolve to identical avatars and
nothing about a profile is ever stored on its own.
*/
package user

import (
	"net/url"
)

const (
	// avatarTemplate is the avatar service prefix; the escaped name and ".svg" are appended.
	avatarTemplate = "https://avatars.dicebear.com/api/adventurer-neutral/"

	// PlaceholderAvatarURL is shown for senders that are not in the current roster. It lives
	// outside avatarTemplate's collection, and an escaped name never contains a slash, so no
	// roster member can resolve to it.
	PlaceholderAvatarURL = "https://avatars.dicebear.com/api/identicon/unknown.svg"
)

// Profile is the identity information of a roster member.
// Fields use JSON tags for the HTTP surface.
type Profile struct {
	// Name is the self-declared display name and the unique key within a roster.
	Name string `json:"name"`

	// AvatarURL is a pure function of Name.
	AvatarURL string `json:"avatarUrl"`
}

// AvatarURL returns the deterministic avatar address for name.
func AvatarURL(name string) string {
	return avatarTemplate + url.PathEscape(name) + ".svg"
}

// NewProfile builds the profile for a roster member.
func NewProfile(name string) Profile {
	return Profile{Name: name, AvatarURL: AvatarURL(name)}
}

// Placeholder builds the fallback profile for a sender missing from the roster.
// The name is kept so the message stays attributed; only the avatar is generic.
func Placeholder(name string) Profile {
	return Profile{Name: name, AvatarURL: PlaceholderAvatarURL}
}
