package curseforge

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver("")

	tests := []struct {
		name     string
		url      string
		filename string
		want     string
	}{
		{
			name:     "files page",
			url:      "https://www.curseforge.com/minecraft/mc-mods/jei/files/1234567",
			filename: "mod.jar",
			want:     "https://edge.forgecdn.net/files/1234/567/mod.jar",
		},
		{
			name:     "download page with subdirectory filename",
			url:      "https://www.curseforge.com/minecraft/mc-mods/jei/download/7654321",
			filename: "mods/client/jei.jar",
			want:     "https://edge.forgecdn.net/files/7654/321/jei.jar",
		},
		{
			name:     "trailing path after id",
			url:      "https://www.curseforge.com/minecraft/mc-mods/jei/download/1234567/file",
			filename: "jei.jar",
			want:     "https://edge.forgecdn.net/files/1234/567/jei.jar",
		},
		{
			name:     "filename with spaces is escaped",
			url:      "https://www.curseforge.com/minecraft/mc-mods/foo/files/1111222",
			filename: "My Mod.jar",
			want:     "https://edge.forgecdn.net/files/1111/222/My%20Mod.jar",
		},
		{
			name:     "six digit id passes through",
			url:      "https://www.curseforge.com/minecraft/mc-mods/jei/files/123456",
			filename: "mod.jar",
			want:     "https://www.curseforge.com/minecraft/mc-mods/jei/files/123456",
		},
		{
			name:     "eight digit id passes through",
			url:      "https://www.curseforge.com/minecraft/mc-mods/jei/files/12345678",
			filename: "mod.jar",
			want:     "https://www.curseforge.com/minecraft/mc-mods/jei/files/12345678",
		},
		{
			name:     "other host passes through",
			url:      "https://github.com/owner/repo/releases/download/v1/mod.jar",
			filename: "mod.jar",
			want:     "https://github.com/owner/repo/releases/download/v1/mod.jar",
		},
		{
			name:     "malformed input passes through",
			url:      "::not a url::",
			filename: "mod.jar",
			want:     "::not a url::",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.url, tt.filename))
		})
	}
}

func TestResolver_CustomCDNBase(t *testing.T) {
	r := NewResolver("https://mirror.example.com/files/")

	got := r.Resolve("https://www.curseforge.com/minecraft/mc-mods/jei/files/1234567", "mod.jar")
	assert.Equal(t, "https://mirror.example.com/files/1234/567/mod.jar", got)
}

func TestResolver_PathOrder(t *testing.T) {
	r := NewResolver("")

	got := r.Resolve("https://www.curseforge.com/minecraft/mc-mods/x/files/1234567", "mod.jar")
	assert.Contains(t, got, "1234/567/mod.jar")
}

func TestResolver_Match(t *testing.T) {
	r := NewResolver("")

	id, ok := r.Match("https://www.curseforge.com/minecraft/mc-mods/jei/files/1234567?foo=bar")
	assert.True(t, ok)
	assert.Equal(t, "1234567", id)

	_, ok = r.Match("https://edge.forgecdn.net/files/1234/567/mod.jar")
	assert.False(t, ok)
}

// TestResolver_Idempotent checks that resolving twice yields the same URL as
// resolving once, for both landing pages and arbitrary URLs.
func TestResolver_Idempotent(t *testing.T) {
	r := NewResolver("")

	rapid.Check(t, func(t *rapid.T) {
		id := rapid.StringMatching(`[0-9]{7}`).Draw(t, "id")
		slug := rapid.StringMatching(`[a-z][a-z0-9-]{0,15}`).Draw(t, "slug")
		kind := rapid.SampledFrom([]string{"files", "download"}).Draw(t, "kind")
		filename := rapid.StringMatching(`[A-Za-z0-9_.-]{1,20}\.jar`).Draw(t, "filename")

		landing := fmt.Sprintf("https://www.curseforge.com/minecraft/mc-mods/%s/%s/%s", slug, kind, id)
		once := r.Resolve(landing, filename)
		twice := r.Resolve(once, filename)

		if once != twice {
			t.Fatalf("Resolve not idempotent: %q then %q", once, twice)
		}
		if !strings.HasSuffix(once, id[:4]+"/"+id[4:]+"/"+filename) {
			t.Fatalf("Resolve(%q) = %q, missing id/filename suffix", landing, once)
		}

		other := rapid.StringMatching(`https://[a-z]{1,10}\.example/[a-z0-9/]{0,20}`).Draw(t, "other")
		if got := r.Resolve(other, filename); got != other {
			t.Fatalf("Resolve(%q) = %q, want unchanged", other, got)
		}
	})
}
