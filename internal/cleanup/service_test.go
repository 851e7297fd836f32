package cleanup

import (
	"context"
	"errors"
	"testing"
)

type fakeStore struct {
	postMedia []string
	chatMedia []string
	errSteps  map[string]error
	calls     []string
}

func (f *fakeStore) stepErr(name string) error {
	f.calls = append(f.calls, name)
	return f.errSteps[name]
}

func (f *fakeStore) AuthoredMediaURLs(context.Context, string) ([]string, error) {
	return f.postMedia, f.stepErr("post-media")
}

func (f *fakeStore) ConversationMediaURLs(context.Context, string) ([]string, error) {
	return f.chatMedia, f.stepErr("chat-media")
}

func (f *fakeStore) DeleteFeedEntries(context.Context, string) (int64, error) {
	return 3, f.stepErr("feed")
}

func (f *fakeStore) DeleteComments(context.Context, string) (int64, error) {
	return 2, f.stepErr("comments")
}

func (f *fakeStore) DeleteNotifications(context.Context, string) (int64, error) {
	return 4, f.stepErr("notifications")
}

func (f *fakeStore) DeleteChatMessages(context.Context, string) (int64, error) {
	return 7, f.stepErr("messages")
}

func (f *fakeStore) DeleteConversations(context.Context, string) (int64, error) {
	return 1, f.stepErr("conversations")
}

func (f *fakeStore) DeletePosts(context.Context, string) (int64, error) {
	return 5, f.stepErr("posts")
}

type fakeDeleter struct {
	deleted []string
	err     error
}

func (f *fakeDeleter) Delete(_ context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func TestPurge_RemovesEveryCategory(t *testing.T) {
	store := &fakeStore{
		postMedia: []string{"https://media.example.com/o/posts%2Fu1%2Fa.jpg"},
		chatMedia: []string{"https://media.example.com/o/chat%2Fc1%2Fb.jpg"},
	}
	objects := &fakeDeleter{}

	rep := NewService(store, objects).Purge(context.Background(), "u1")

	if len(rep.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", rep.Failures)
	}
	if rep.Posts != 5 || rep.FeedEntries != 3 || rep.Comments != 2 ||
		rep.Notifications != 4 || rep.ChatMessages != 7 || rep.Conversations != 1 {
		t.Errorf("counts wrong: %+v", rep)
	}
	if rep.Objects != 2 {
		t.Errorf("got %d objects deleted, want 2", rep.Objects)
	}
	if len(objects.deleted) != 2 || objects.deleted[0] != "posts/u1/a.jpg" {
		t.Errorf("object keys wrong: %v", objects.deleted)
	}
}

func TestPurge_FailedStepDoesNotBlockTheRest(t *testing.T) {
	store := &fakeStore{
		errSteps: map[string]error{"comments": errors.New("deadlock")},
	}

	rep := NewService(store, &fakeDeleter{}).Purge(context.Background(), "u1")

	if len(rep.Failures) != 1 {
		t.Fatalf("want exactly one failure, got %v", rep.Failures)
	}
	if rep.Comments != 0 {
		t.Error("failed step must not report rows removed")
	}
	// Everything after the failed step still ran.
	if rep.Posts != 5 || rep.Conversations != 1 {
		t.Errorf("later steps skipped: %+v", rep)
	}
}

func TestPurge_BadMediaURLIsIsolated(t *testing.T) {
	store := &fakeStore{
		postMedia: []string{"://broken", "https://media.example.com/o/posts%2Fok.jpg"},
	}
	objects := &fakeDeleter{}

	rep := NewService(store, objects).Purge(context.Background(), "u1")

	if len(rep.Failures) != 1 {
		t.Fatalf("want one failure for the bad url, got %v", rep.Failures)
	}
	if rep.Objects != 1 || len(objects.deleted) != 1 {
		t.Errorf("good url should still be deleted: %+v", objects.deleted)
	}
}

func TestPurge_ObjectDeleteFailureRecorded(t *testing.T) {
	store := &fakeStore{postMedia: []string{"https://media.example.com/o/a.jpg"}}
	objects := &fakeDeleter{err: errors.New("access denied")}

	rep := NewService(store, objects).Purge(context.Background(), "u1")

	if rep.Objects != 0 {
		t.Error("failed object delete must not be counted")
	}
	if len(rep.Failures) != 1 {
		t.Errorf("want one failure, got %v", rep.Failures)
	}
}
