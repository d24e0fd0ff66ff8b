package user

import (
	"strings"
	"testing"
)

func TestAvatarURLIsDeterministic(t *testing.T) {
	if AvatarURL("alice") != AvatarURL("alice") {
		t.Fatal("same name produced different avatars")
	}
	if AvatarURL("alice") == AvatarURL("bob") {
		t.Fatal("different names produced the same avatar")
	}

	want := "https://avatars.dicebear.com/api/adventurer-neutral/alice.svg"
	if got := AvatarURL("alice"); got != want {
		t.Fatalf("Expectation: %s, Received: %s", want, got)
	}
}

func TestAvatarURLEscapesName(t *testing.T) {
	got := AvatarURL("a b/c")
	want := "https://avatars.dicebear.com/api/adventurer-neutral/a%20b%2Fc.svg"
	if got != want {
		t.Fatalf("Expectation: %s, Received: %s", want, got)
	}
}

func TestPlaceholderKeepsName(t *testing.T) {
	p := Placeholder("bob")
	if p.Name != "bob" {
		t.Fatalf("placeholder lost the sender name: %#v", p)
	}
	if p.AvatarURL != PlaceholderAvatarURL {
		t.Fatalf("placeholder avatar = %s", p.AvatarURL)
	}
}

func TestPlaceholderIsDistinctFromEveryName(t *testing.T) {
	for _, name := range []string{"unknown", "unknown.svg", "../identicon/unknown", "", "identicon/unknown"} {
		if got := AvatarURL(name); got == PlaceholderAvatarURL {
			t.Fatalf("name %q resolves to the placeholder avatar", name)
		}
	}
	if strings.HasPrefix(PlaceholderAvatarURL, avatarTemplate) {
		t.Fatal("placeholder shares the roster avatar collection")
	}
}
