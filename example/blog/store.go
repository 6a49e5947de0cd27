// Package blog is the in-memory post store of the example blog.
package blog

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Post is a blog post written in Markdown.
type Post struct {
	Slug      string
	Title     string
	Summary   string
	Markdown  string
	Tags      []string
	Published time.Time
}

// Store is an in-memory post store.
type Store struct {
	mu    sync.RWMutex
	posts map[string]*Post

	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		posts:  make(map[string]*Post),
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
}

var defaultStore = sync.OnceValue(func() *Store {
	s := NewStore()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.Add(Post{
		Slug:      "hello-world",
		Title:     "Hello, world",
		Summary:   "The first post.",
		Markdown:  "# Hello\n\nThis blog is rendered by **hxpage**.",
		Tags:      []string{"meta"},
		Published: day,
	})
	s.Add(Post{
		Slug:      "streaming",
		Title:     "Streaming documents",
		Summary:   "Sending HTML before the page is done.",
		Markdown:  "Render hooks may return `hxpage.Stream(c)`:\n\n- the status is sent first\n- the body follows as it renders",
		Tags:      []string{"rendering"},
		Published: day.AddDate(0, 0, 7),
	})
	return s
})

// Default returns the store shared by the pages, seeded with sample posts.
func Default() *Store {
	return defaultStore()
}

// Add stores p, replacing a post with the same slug.
func (s *Store) Add(p Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.Slug] = &p
}

// Get returns a post by slug.
func (s *Store) Get(slug string) (*Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[slug]
	return p, ok
}

// List returns every post, newest first.
func (s *Store) List() []*Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Post, 0, len(s.posts))
	for _, p := range s.posts {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Published.Equal(result[j].Published) {
			return result[i].Published.After(result[j].Published)
		}
		return result[i].Slug < result[j].Slug
	})
	return result
}

// Count returns the number of posts.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

// HTML renders the Markdown of p. The output is sanitized: posts may come
// from untrusted authors.
func (s *Store) HTML(p *Post) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(p.Markdown), &buf); err != nil {
		return "", fmt.Errorf("render %s: %w", p.Slug, err)
	}
	return s.policy.Sanitize(buf.String()), nil
}
