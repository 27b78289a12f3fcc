package repository

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/videotube-users/internal/domain"
	"github.com/prperemyshlev/videotube-users/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type profileRepository struct {
	users *mongo.Collection
}

// NewProfileRepository creates a repository for channel profile and watch history reads
func NewProfileRepository(db *database.Mongo) ProfileRepository {
	return &profileRepository{users: db.Collection(usersCollection)}
}

// ChannelProfile aggregates a channel's public fields with its subscription counts.
// An unparseable requesterID simply yields isSubscribed=false.
func (r *profileRepository) ChannelProfile(ctx context.Context, username, requesterID string) (*domain.ChannelProfile, error) {
	requester, err := primitive.ObjectIDFromHex(requesterID)
	if err != nil {
		requester = primitive.NilObjectID
	}

	cursor, err := r.users.Aggregate(ctx, channelProfilePipeline(username, requester))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate channel profile: %w", err)
	}
	defer cursor.Close(ctx)

	var profiles []domain.ChannelProfile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode channel profile: %w", err)
	}

	if len(profiles) == 0 {
		return nil, fmt.Errorf("channel %s not found: %w", username, ErrNotFound)
	}

	return &profiles[0], nil
}

// WatchHistory returns the user's watched videos in the order they were recorded
func (r *profileRepository) WatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	cursor, err := r.users.Aggregate(ctx, watchHistoryPipeline(oid))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate watch history: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		HistoryIDs   []primitive.ObjectID  `bson:"historyIds"`
		WatchHistory []domain.WatchedVideo `bson:"watchHistory"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode watch history: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return orderByHistory(rows[0].HistoryIDs, rows[0].WatchHistory), nil
}

func channelProfilePipeline(username string, requester primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"username": username}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribedTo",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"subscribersCount":          bson.M{"$size": "$subscribers"},
			"channelsSubscribedToCount": bson.M{"$size": "$subscribedTo"},
			"isSubscribed": bson.M{"$cond": bson.M{
				"if":   bson.M{"$in": bson.A{requester, "$subscribers.subscriber"}},
				"then": true,
				"else": false,
			}},
		}}},
		{{Key: "$project", Value: bson.M{
			"fullName":                  1,
			"username":                  1,
			"email":                     1,
			"avatar":                    1,
			"coverImage":                1,
			"subscribersCount":          1,
			"channelsSubscribedToCount": 1,
			"isSubscribed":              1,
		}}},
	}
}

func watchHistoryPipeline(userID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": userID}}},
		{{Key: "$addFields", Value: bson.M{
			"historyIds": bson.M{"$ifNull": bson.A{"$watchHistory", bson.A{}}},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         videosCollection,
			"localField":   "historyIds",
			"foreignField": "_id",
			"as":           "watchHistory",
			"pipeline": bson.A{
				bson.M{"$lookup": bson.M{
					"from":         usersCollection,
					"localField":   "owner",
					"foreignField": "_id",
					"as":           "owner",
					"pipeline": bson.A{
						bson.M{"$project": bson.M{"fullName": 1, "username": 1, "avatar": 1}},
					},
				}},
				bson.M{"$addFields": bson.M{"owner": bson.M{"$first": "$owner"}}},
			},
		}}},
		{{Key: "$project", Value: bson.M{"historyIds": 1, "watchHistory": 1}}},
	}
}

// orderByHistory arranges videos by the recorded history order.
// Repeated views of the same video are kept; IDs with no matching video are skipped.
func orderByHistory(ids []primitive.ObjectID, videos []domain.WatchedVideo) []domain.WatchedVideo {
	byID := make(map[primitive.ObjectID]domain.WatchedVideo, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	ordered := make([]domain.WatchedVideo, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}

	return ordered
}
