package service_test

import (
	"context"
	"time"

	"askcampus/backend/internal/model"
)

// fakeRepository records calls so tests can assert on the repository
// interactions without a database.
type fakeRepository struct {
	conversations map[string]map[string]*model.Conversation
	active        map[string]string
	feedback      []model.FeedbackEntry
	guests        map[string]time.Time

	saveErr     error
	loadErr     error
	deleteErr   error
	feedbackErr error

	deletedFeedbackFor []string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		conversations: map[string]map[string]*model.Conversation{},
		active:        map[string]string{},
		guests:        map[string]time.Time{},
	}
}

func (f *fakeRepository) SaveConversations(_ context.Context, userID string, convs map[string]*model.Conversation) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.conversations[userID] = convs
	return nil
}

func (f *fakeRepository) LoadConversations(_ context.Context, userID string) (map[string]*model.Conversation, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.conversations[userID], nil
}

func (f *fakeRepository) DeleteConversation(_ context.Context, userID, conversationID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.conversations[userID], conversationID)
	return nil
}

func (f *fakeRepository) SetActiveConversation(_ context.Context, userID, conversationID string) error {
	f.active[userID] = conversationID
	return nil
}

func (f *fakeRepository) GetActiveConversation(_ context.Context, userID string) (string, error) {
	if f.loadErr != nil {
		return "", f.loadErr
	}
	return f.active[userID], nil
}

func (f *fakeRepository) SaveFeedback(_ context.Context, entry model.FeedbackEntry) error {
	if f.feedbackErr != nil {
		return f.feedbackErr
	}
	f.feedback = append(f.feedback, entry)
	return nil
}

func (f *fakeRepository) DeleteFeedbackByConversation(_ context.Context, conversationID string) error {
	f.deletedFeedbackFor = append(f.deletedFeedbackFor, conversationID)
	return nil
}

func (f *fakeRepository) UpsertGuest(_ context.Context, userID string, ts time.Time) error {
	f.guests[userID] = ts
	return nil
}
