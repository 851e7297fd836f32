package cleanup

import (
	"context"
	"fmt"
	"log"
)

// ContentStore is the slice of Store the purge needs; narrowed to an
// interface so the orchestration is testable without PostgreSQL.
type ContentStore interface {
	AuthoredMediaURLs(ctx context.Context, uid string) ([]string, error)
	ConversationMediaURLs(ctx context.Context, uid string) ([]string, error)
	DeleteFeedEntries(ctx context.Context, uid string) (int64, error)
	DeleteComments(ctx context.Context, uid string) (int64, error)
	DeleteNotifications(ctx context.Context, uid string) (int64, error)
	DeleteChatMessages(ctx context.Context, uid string) (int64, error)
	DeleteConversations(ctx context.Context, uid string) (int64, error)
	DeletePosts(ctx context.Context, uid string) (int64, error)
}

// ObjectDeleter removes a single object from blob storage.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Report tallies what one purge removed and which steps failed.
type Report struct {
	FeedEntries   int64
	Comments      int64
	Notifications int64
	ChatMessages  int64
	Conversations int64
	Posts         int64
	Objects       int
	Failures      []string
}

// Service orchestrates a full user purge.
type Service struct {
	store   ContentStore
	objects ObjectDeleter
}

// NewService wires the purge over a content store and an object deleter.
func NewService(store ContentStore, objects ObjectDeleter) *Service {
	return &Service{store: store, objects: objects}
}

// Purge removes everything the user left behind. Steps are isolated: a
// failing category is recorded in the report and the purge moves on, so
// one bad row never blocks the rest of the deletion. Every step is
// idempotent, so a failed purge can simply be re-published.
func (s *Service) Purge(ctx context.Context, uid string) *Report {
	rep := &Report{}

	// Collect media keys before the rows that point at them are deleted.
	var urls []string
	postMedia, err := s.store.AuthoredMediaURLs(ctx, uid)
	if err != nil {
		rep.fail("post media urls", err)
	} else {
		urls = append(urls, postMedia...)
	}
	chatMedia, err := s.store.ConversationMediaURLs(ctx, uid)
	if err != nil {
		rep.fail("chat media urls", err)
	} else {
		urls = append(urls, chatMedia...)
	}

	// Row deletion order matters: feed entries and comments subquery on
	// posts, chat messages subquery on conversations.
	rep.FeedEntries = rep.step("feed entries", func() (int64, error) {
		return s.store.DeleteFeedEntries(ctx, uid)
	})
	rep.Comments = rep.step("comments", func() (int64, error) {
		return s.store.DeleteComments(ctx, uid)
	})
	rep.Notifications = rep.step("notifications", func() (int64, error) {
		return s.store.DeleteNotifications(ctx, uid)
	})
	rep.ChatMessages = rep.step("chat messages", func() (int64, error) {
		return s.store.DeleteChatMessages(ctx, uid)
	})
	rep.Conversations = rep.step("conversations", func() (int64, error) {
		return s.store.DeleteConversations(ctx, uid)
	})
	rep.Posts = rep.step("posts", func() (int64, error) {
		return s.store.DeletePosts(ctx, uid)
	})

	for _, raw := range urls {
		key, err := ObjectKeyFromURL(raw)
		if err != nil {
			rep.fail("object key", err)
			continue
		}
		if err := s.objects.Delete(ctx, key); err != nil {
			rep.fail("object delete", err)
			continue
		}
		rep.Objects++
	}

	log.Printf("[cleanup] purge uid=%s posts=%d feed=%d comments=%d notifications=%d messages=%d conversations=%d objects=%d failures=%d",
		uid, rep.Posts, rep.FeedEntries, rep.Comments, rep.Notifications,
		rep.ChatMessages, rep.Conversations, rep.Objects, len(rep.Failures))

	return rep
}

func (r *Report) step(what string, fn func() (int64, error)) int64 {
	n, err := fn()
	if err != nil {
		r.fail(what, err)
		return 0
	}
	return n
}

func (r *Report) fail(what string, err error) {
	log.Printf("[cleanup] %s: %v", what, err)
	r.Failures = append(r.Failures, fmt.Sprintf("%s: %v", what, err))
}
