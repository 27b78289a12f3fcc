package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prperemyshlev/videotube-users/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGetChannelProfile(t *testing.T) {
	profiles := &fakeProfiles{profile: &domain.ChannelProfile{
		ID:               primitive.NewObjectID(),
		Username:         "bob",
		SubscribersCount: 1,
		IsSubscribed:     true,
	}}
	svc := NewProfileService(profiles)
	requester := domain.Identity{UserID: primitive.NewObjectID().Hex()}

	profile, err := svc.GetChannelProfile(context.Background(), " BOB ", requester)
	require.NoError(t, err)

	assert.Equal(t, "bob", profiles.gotUser)
	assert.Equal(t, requester.UserID, profiles.gotReq)
	assert.Equal(t, 1, profile.SubscribersCount)
	assert.True(t, profile.IsSubscribed)
}

func TestGetChannelProfileErrors(t *testing.T) {
	svc := NewProfileService(&fakeProfiles{})

	_, err := svc.GetChannelProfile(context.Background(), "  ", domain.Identity{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.EqualError(t, err, "username is missing")

	_, err = svc.GetChannelProfile(context.Background(), "ghost", domain.Identity{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualError(t, err, "channel does not exist")

	svc = NewProfileService(&fakeProfiles{err: errors.New("cursor failed")})
	_, err = svc.GetChannelProfile(context.Background(), "bob", domain.Identity{})
	assert.ErrorIs(t, err, domain.ErrInternal)
}

func TestGetWatchHistory(t *testing.T) {
	video := domain.WatchedVideo{ID: primitive.NewObjectID(), Title: "intro"}
	profiles := &fakeProfiles{history: []domain.WatchedVideo{video}}
	identity := domain.Identity{UserID: primitive.NewObjectID().Hex()}

	history, err := NewProfileService(profiles).GetWatchHistory(context.Background(), identity)
	require.NoError(t, err)

	assert.Equal(t, identity.UserID, profiles.gotUser)
	require.Len(t, history, 1)
	assert.Equal(t, "intro", history[0].Title)
}

func TestGetWatchHistoryEmpty(t *testing.T) {
	history, err := NewProfileService(&fakeProfiles{}).GetWatchHistory(context.Background(), domain.Identity{UserID: "x"})
	require.NoError(t, err)

	assert.NotNil(t, history)
	assert.Empty(t, history)
}
