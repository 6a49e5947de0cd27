package blog

import (
	"strings"
	"testing"
	"time"
)

func TestStore_ListNewestFirst(t *testing.T) {
	s := NewStore()
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Add(Post{Slug: "old", Published: day})
	s.Add(Post{Slug: "new", Published: day.AddDate(0, 1, 0)})
	s.Add(Post{Slug: "also-old", Published: day})

	var got []string
	for _, p := range s.List() {
		got = append(got, p.Slug)
	}
	if strings.Join(got, ",") != "new,also-old,old" {
		t.Errorf("List() = %v", got)
	}
	if s.Count() != 3 {
		t.Errorf("Count() = %d, want 3", s.Count())
	}
}

func TestStore_HTMLSanitizes(t *testing.T) {
	s := NewStore()
	html, err := s.HTML(&Post{Slug: "x", Markdown: "**bold**\n\n<script>alert(1)</script>"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Errorf("HTML() = %q, want rendered markdown", html)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("HTML() = %q, want scripts removed", html)
	}
}

func TestDefault(t *testing.T) {
	if _, ok := Default().Get("hello-world"); !ok {
		t.Error("default store is missing the sample post")
	}
}
