// Package cleanup removes every trace of a departed user: their posts,
// the per-follower feed copies of those posts, comments, notifications,
// conversations in both directions, and the media objects the rows point at.
// It runs out of band in the janitor, triggered over NATS, so the signaling
// path never blocks on storage.
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
)

// Store deletes user content from PostgreSQL. Each method removes one
// category of rows and is safe to retry: deleting rows that are already
// gone is a no-op.
type Store struct {
	db *sql.DB
}

// NewStore creates a content store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// AuthoredMediaURLs returns the media URLs attached to the user's posts.
// Called before DeletePosts so the object keys survive the row deletion.
func (s *Store) AuthoredMediaURLs(ctx context.Context, uid string) ([]string, error) {
	const query = `
		SELECT media_url FROM posts
		WHERE author_uid = $1 AND media_url IS NOT NULL AND media_url <> ''`

	return s.queryURLs(ctx, query, uid)
}

// ConversationMediaURLs returns the media URLs attached to chat messages in
// any conversation the user participates in, regardless of who sent them.
// A conversation is removed whole, so the partner's attachments in it are
// orphaned either way.
func (s *Store) ConversationMediaURLs(ctx context.Context, uid string) ([]string, error) {
	const query = `
		SELECT m.media_url
		FROM chat_messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.participant_a = $1 OR c.participant_b = $1)
		  AND m.media_url IS NOT NULL AND m.media_url <> ''`

	return s.queryURLs(ctx, query, uid)
}

func (s *Store) queryURLs(ctx context.Context, query, uid string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("cleanup: query media urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("cleanup: scan media url: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cleanup: iterate media urls: %w", err)
	}
	return urls, nil
}

// DeleteFeedEntries removes the user's own feed plus every copy of the
// user's posts fanned out to other feeds. Must run before DeletePosts,
// which the fan-out subquery depends on.
func (s *Store) DeleteFeedEntries(ctx context.Context, uid string) (int64, error) {
	const query = `
		DELETE FROM feed_entries
		WHERE owner_uid = $1
		   OR post_id IN (SELECT id FROM posts WHERE author_uid = $1)`

	return s.exec(ctx, "feed entries", query, uid)
}

// DeleteComments removes comments the user wrote and comments left by
// anyone on the user's posts.
func (s *Store) DeleteComments(ctx context.Context, uid string) (int64, error) {
	const query = `
		DELETE FROM comments
		WHERE author_uid = $1
		   OR post_id IN (SELECT id FROM posts WHERE author_uid = $1)`

	return s.exec(ctx, "comments", query, uid)
}

// DeleteNotifications removes notifications sent to the user and
// notifications the user's activity generated for others.
func (s *Store) DeleteNotifications(ctx context.Context, uid string) (int64, error) {
	const query = `
		DELETE FROM notifications
		WHERE recipient_uid = $1 OR actor_uid = $1`

	return s.exec(ctx, "notifications", query, uid)
}

// DeleteChatMessages removes every message in conversations the user
// participates in, both directions. Must run before DeleteConversations.
func (s *Store) DeleteChatMessages(ctx context.Context, uid string) (int64, error) {
	const query = `
		DELETE FROM chat_messages
		WHERE conversation_id IN (
			SELECT id FROM conversations
			WHERE participant_a = $1 OR participant_b = $1)`

	return s.exec(ctx, "chat messages", query, uid)
}

// DeleteConversations removes the conversation rows themselves.
func (s *Store) DeleteConversations(ctx context.Context, uid string) (int64, error) {
	const query = `
		DELETE FROM conversations
		WHERE participant_a = $1 OR participant_b = $1`

	return s.exec(ctx, "conversations", query, uid)
}

// DeletePosts removes the user's authored posts. Runs last among the
// post-related steps because feed and comment deletion subquery on it.
func (s *Store) DeletePosts(ctx context.Context, uid string) (int64, error) {
	const query = `DELETE FROM posts WHERE author_uid = $1`

	return s.exec(ctx, "posts", query, uid)
}

func (s *Store) exec(ctx context.Context, what, query, uid string) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, uid)
	if err != nil {
		return 0, fmt.Errorf("cleanup: delete %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup: delete %s: rows affected: %w", what, err)
	}
	return n, nil
}
