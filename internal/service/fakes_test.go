package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prperemyshlev/videotube-users/internal/domain"
	"github.com/prperemyshlev/videotube-users/internal/events"
	"github.com/prperemyshlev/videotube-users/internal/media"
	"github.com/prperemyshlev/videotube-users/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryUsers is an in-memory UserRepository with the same uniqueness rules as the Mongo indexes.
type memoryUsers struct {
	mu         sync.Mutex
	byID       map[string]*domain.User
	creates    int
	failGet    error
	failCreate error
	failUpdate error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]*domain.User{}}
}

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCreate != nil {
		return m.failCreate
	}

	for _, u := range m.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Username, repository.ErrDuplicateKey)
		}
	}

	m.creates++
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.byID[user.ID.Hex()] = &stored
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failGet != nil {
		return nil, m.failGet
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *memoryUsers) FindByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.byID {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) SetRefreshToken(_ context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.RefreshToken = token
	return nil
}

func (m *memoryUsers) RotateRefreshToken(_ context.Context, id, current, next string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok || u.RefreshToken != current {
		return repository.ErrNotFound
	}
	u.RefreshToken = next
	return nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memoryUsers) UpdateDetails(_ context.Context, id, fullName, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for otherID, other := range m.byID {
		if otherID != id && other.Email == email {
			return nil, repository.ErrDuplicateKey
		}
	}
	u.FullName, u.Email = fullName, email
	c := *u
	return &c, nil
}

func (m *memoryUsers) UpdateAvatar(_ context.Context, id, url string) (*domain.User, error) {
	return m.update(id, func(u *domain.User) { u.Avatar = url })
}

func (m *memoryUsers) UpdateCoverImage(_ context.Context, id, url string) (*domain.User, error) {
	return m.update(id, func(u *domain.User) { u.CoverImage = url })
}

func (m *memoryUsers) update(id string, apply func(*domain.User)) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failUpdate != nil {
		return nil, m.failUpdate
	}

	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	apply(u)
	c := *u
	return &c, nil
}

func (m *memoryUsers) stored(id string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

type fakeUploader struct {
	calls      []media.UploadOptions
	keys       []string
	deleted    []string
	failOn     map[string]error
	failDelete error
	empty      bool
}

func (f *fakeUploader) Upload(_ context.Context, localPath string, opts media.UploadOptions) (*media.UploadResult, error) {
	f.calls = append(f.calls, opts)
	if err, ok := f.failOn[opts.Folder]; ok {
		return nil, err
	}
	if f.empty {
		return &media.UploadResult{}, nil
	}
	key := opts.Folder + "/" + primitive.NewObjectID().Hex()
	f.keys = append(f.keys, key)
	return &media.UploadResult{URL: "https://cdn.example.com/" + key, Key: key}, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	f.deleted = append(f.deleted, key)
	return nil
}

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type failingTokens struct {
	TokenManager
}

func (failingTokens) IssueAccessToken(*domain.User) (string, error) {
	return "", errors.New("signing key unavailable")
}

type fakeProfiles struct {
	profile *domain.ChannelProfile
	history []domain.WatchedVideo
	err     error
	gotUser string
	gotReq  string
}

func (f *fakeProfiles) ChannelProfile(_ context.Context, username, requesterID string) (*domain.ChannelProfile, error) {
	f.gotUser, f.gotReq = username, requesterID
	if f.err != nil {
		return nil, f.err
	}
	if f.profile == nil || f.profile.Username != username {
		return nil, repository.ErrNotFound
	}
	return f.profile, nil
}

func (f *fakeProfiles) WatchHistory(_ context.Context, userID string) ([]domain.WatchedVideo, error) {
	f.gotUser = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}
