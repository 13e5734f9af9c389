package normalize

import "testing"

func TestURL_StripsTrackingParams(t *testing.T) {
	t.Parallel()

	got := URL("https://Example.COM/news/item/?utm_source=abc&utm_medium=rss&fbclid=123")
	if got != "https://example.com/news/item" {
		t.Fatalf("unexpected normalized url: %q", got)
	}
}

func TestURL_KeepsRealParams(t *testing.T) {
	t.Parallel()

	got := URL("https://example.com/release?v=2&utm_campaign=x")
	if got != "https://example.com/release?v=2" {
		t.Fatalf("expected non-tracking params to survive, got %q", got)
	}
}

func TestURL_MalformedReturnsInput(t *testing.T) {
	t.Parallel()

	if got := URL("not a url"); got != "not a url" {
		t.Fatalf("expected malformed input unchanged, got %q", got)
	}
	if got := URL(""); got != "" {
		t.Fatalf("expected empty input to stay empty, got %q", got)
	}
}

func TestCleanURL_DropsQueryAndFragment(t *testing.T) {
	t.Parallel()

	got := CleanURL("HTTPS://X.com/1?utm_source=foo#frag")
	if got != "https://x.com/1" {
		t.Fatalf("unexpected cleaned url: %q", got)
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"  Foo   Launch!! ", "foo launch"},
		{"Bitcoin: $100K?!", "bitcoin 100k"},
		{"", ""},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := Title(tc.in); got != tc.want {
			t.Fatalf("Title(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCompositeKey(t *testing.T) {
	t.Parallel()

	got := CompositeKey("GitHub", "https://Example.com/r/", "Foo Launch v2")
	want := "github:https://example.com/r:foolaunchv2"
	if got != want {
		t.Fatalf("unexpected composite key: got %q want %q", got, want)
	}

	if got := CompositeKey("", "", ""); got != "::" {
		t.Fatalf("expected empty segments for empty input, got %q", got)
	}
}

func TestIdentityKeys_WithLink(t *testing.T) {
	t.Parallel()

	keys := IdentityKeys("A", "http://x.com/1?utm_source=foo", "Foo Launch")
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys for linked signal, got %d: %v", len(keys), keys)
	}
	if keys[0] != "url:http://x.com/1?utm_source=foo" {
		t.Fatalf("unexpected exact-link key: %q", keys[0])
	}
	if keys[1] != "nurl:http://x.com/1" {
		t.Fatalf("unexpected cleaned-link key: %q", keys[1])
	}
	if keys[2] != "st:a:foo launch" {
		t.Fatalf("unexpected source-title key: %q", keys[2])
	}
}

func TestIdentityKeys_TitleOnlyWhenLinkEmpty(t *testing.T) {
	t.Parallel()

	keys := IdentityKeys("A", "", "Foo Launch")
	found := false
	for _, k := range keys {
		if k == "title:foo launch" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected title-only key for linkless signal, got %v", keys)
	}

	// With a link present the bare-title key must not appear, so identical
	// titles from different sources with different links stay distinct.
	keys = IdentityKeys("A", "http://x.com/1", "Foo Launch")
	for _, k := range keys {
		if k == "title:foo launch" {
			t.Fatalf("did not expect title-only key for linked signal: %v", keys)
		}
	}
}

func TestIdentityKeys_SharedNormalizedURLCollide(t *testing.T) {
	t.Parallel()

	a := IdentityKeys("A", "http://x.com/1?utm_source=foo", "Foo Launch")
	b := IdentityKeys("A", "http://x.com/1", "Foo Launch")

	shared := map[string]struct{}{}
	for _, k := range a {
		shared[k] = struct{}{}
	}
	collides := false
	for _, k := range b {
		if _, ok := shared[k]; ok {
			collides = true
		}
	}
	if !collides {
		t.Fatalf("expected key collision between tracking-param variants: %v vs %v", a, b)
	}
}
