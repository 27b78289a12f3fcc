package repository

import (
	"github.com/prperemyshlev/videotube-users/pkg/database"
)

const (
	usersCollection         = "users"
	videosCollection        = "videos"
	subscriptionsCollection = "subscriptions"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User    UserRepository
	Profile ProfileRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Mongo) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Profile: NewProfileRepository(db),
	}
}
