package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

const (
	usersCollection         = "users"
	notificationsCollection = "notifications"
)

// FirestoreStore keeps users as documents of the users collection and each
// user's notification log as a sub-collection beneath their document.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) ListUsers(ctx context.Context) ([]UserRecord, error) {
	iter := s.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	var users []UserRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, UserRecord{ID: doc.Ref.ID})
	}
	return users, nil
}

func (s *FirestoreStore) AppendNotification(ctx context.Context, userID string, entry LogEntry) error {
	_, _, err := s.client.Collection(usersCollection).
		Doc(userID).
		Collection(notificationsCollection).
		Add(ctx, map[string]interface{}{
			"title":     entry.Title,
			"body":      entry.Body,
			"image":     entry.Image,
			"timestamp": firestore.ServerTimestamp,
			"read":      false,
		})
	if err != nil {
		return fmt.Errorf("append notification for %s: %w", userID, err)
	}
	return nil
}
