package repository

import (
	"context"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"campuslink/internal/domain/entity"
	"campuslink/internal/domain/repository"
	"campuslink/pkg/errors"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.UserProfile) error {
	_, err := r.client.Collection("users").Doc(user.UID).Set(ctx, user)
	if err != nil {
		return errors.WriteFailed("Failed to create user profile", err)
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.UserProfile, error) {
	doc, err := r.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.QueryFailed("Failed to get user", err)
	}

	var user entity.UserProfile
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.QueryFailed("Failed to parse user data", err)
	}
	user.UID = doc.Ref.ID

	return &user, nil
}

// ListExcept returns the full user directory minus the given user, for the
// new-chat flow.
func (r *firestoreUserRepository) ListExcept(ctx context.Context, userID string) ([]*entity.UserProfile, error) {
	query := r.client.Collection("users").Where("uid", "!=", userID)

	iter := query.Documents(ctx)
	var users []*entity.UserProfile

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Printf("Firestore error while listing users for %s: %v", userID, err)
			return nil, errors.QueryFailed("Failed to list users", err)
		}

		var user entity.UserProfile
		if err := doc.DataTo(&user); err != nil {
			log.Printf("Error parsing user data %s: %v", doc.Ref.ID, err)
			continue
		}
		user.UID = doc.Ref.ID
		users = append(users, &user)
	}

	return users, nil
}
