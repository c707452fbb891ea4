package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"piktor/internal/gemini"
	"piktor/internal/model"
	"piktor/internal/storage"
)

// In-memory fakes shared by the service tests.

type fakeVisualRepo struct {
	mu      sync.Mutex
	visuals map[string]*model.Visual
}

func newFakeVisualRepo() *fakeVisualRepo {
	return &fakeVisualRepo{visuals: map[string]*model.Visual{}}
}

func (f *fakeVisualRepo) CreateVisual(_ context.Context, v *model.Visual) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	copied := *v
	f.visuals[v.ID] = &copied
	return nil
}

func (f *fakeVisualRepo) GetVisualByID(_ context.Context, id string) (*model.Visual, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visuals[id]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVisualRepo) ListVisualsByUser(_ context.Context, userID, projectID string, limit, offset int) ([]model.Visual, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Visual
	for _, v := range f.visuals {
		if v.UserID == userID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVisualRepo) UpdateMetadata(_ context.Context, id string, metadata model.VisualMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visuals[id]
	if !ok {
		return fmt.Errorf("visual %s not found", id)
	}
	v.Metadata = metadata
	return nil
}

func (f *fakeVisualRepo) RenameVisual(_ context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.visuals[id]; ok {
		v.Name = name
	}
	return nil
}

func (f *fakeVisualRepo) DeleteVisual(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.visuals, id)
	return nil
}

type fakeImageRepo struct {
	mu     sync.Mutex
	images map[string]*model.GeneratedImage
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{images: map[string]*model.GeneratedImage{}}
}

func (f *fakeImageRepo) CreateImage(_ context.Context, img *model.GeneratedImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	img.CreatedAt = time.Now()
	copied := *img
	f.images[img.ID] = &copied
	return nil
}

func (f *fakeImageRepo) GetImageByID(_ context.Context, id string) (*model.GeneratedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok {
		return nil, nil
	}
	copied := *img
	return &copied, nil
}

func (f *fakeImageRepo) ListImagesByVisual(_ context.Context, visualID string) ([]model.GeneratedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.GeneratedImage
	for _, img := range f.images {
		if img.VisualID == visualID {
			out = append(out, *img)
		}
	}
	return out, nil
}

type fakeEditRepo struct {
	mu    sync.Mutex
	edits map[string]*model.ImageEdit
}

func newFakeEditRepo() *fakeEditRepo {
	return &fakeEditRepo{edits: map[string]*model.ImageEdit{}}
}

func (f *fakeEditRepo) CreateEdit(_ context.Context, e *model.ImageEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	version := 1
	if e.ParentEditID != nil {
		parent, ok := f.edits[*e.ParentEditID]
		if !ok {
			return errors.New("parent edit not found")
		}
		version = parent.VersionNumber + 1
	}
	for _, existing := range f.edits {
		if existing.SourceImageID == e.SourceImageID {
			existing.IsLatestVersion = false
		}
	}
	e.VersionNumber = version
	e.IsLatestVersion = true
	e.CreatedAt = time.Now()
	copied := *e
	f.edits[e.ID] = &copied
	return nil
}

func (f *fakeEditRepo) GetEditByID(_ context.Context, id string) (*model.ImageEdit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.edits[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEditRepo) ListEditsBySourceImage(_ context.Context, sourceImageID string) ([]model.ImageEdit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ImageEdit
	for _, e := range f.edits {
		if e.SourceImageID == sourceImageID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEditRepo) ListEditsByVisual(_ context.Context, visualID string) ([]model.ImageEdit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ImageEdit
	for _, e := range f.edits {
		if e.VisualID == visualID {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeUsageRepo struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{counts: map[string]int{}}
}

func (f *fakeUsageRepo) CheckAndRecordEvent(_ context.Context, userID, eventType string, _, _ time.Time, max int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := userID + "/" + eventType
	if max > 0 && f.counts[key] >= max {
		return errors.New("limit exceeded")
	}
	f.counts[key]++
	return nil
}

func (f *fakeUsageRepo) CountEventsInTimeRange(_ context.Context, userID, eventType string, _, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[userID+"/"+eventType], nil
}

func (f *fakeUsageRepo) count(userID, eventType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[userID+"/"+eventType]
}

type fakeSubService struct {
	sub  *model.UserSubscription
	plan *model.SubscriptionPlan
}

func newFakeSubService(maxGenerations, maxEdits int) *fakeSubService {
	now := time.Now()
	return &fakeSubService{
		sub: &model.UserSubscription{
			UserID:   "user-1",
			PlanID:   "plan-pro",
			StartsAt: now.Add(-time.Hour),
			EndsAt:   now.Add(30 * 24 * time.Hour),
			Status:   "active",
		},
		plan: &model.SubscriptionPlan{
			ID:             "plan-pro",
			Name:           "Pro",
			MaxGenerations: maxGenerations,
			MaxEdits:       maxEdits,
		},
	}
}

func (f *fakeSubService) GetActiveSubscription(_ context.Context, userID string) (*model.UserSubscription, error) {
	if f.sub == nil {
		return nil, errors.New("no subscription")
	}
	sub := *f.sub
	sub.UserID = userID
	return &sub, nil
}

func (f *fakeSubService) GetSubscription(ctx context.Context, userID string) (*model.UserSubscription, error) {
	return f.GetActiveSubscription(ctx, userID)
}

func (f *fakeSubService) GetPlan(_ context.Context, _ string) (*model.SubscriptionPlan, error) {
	plan := *f.plan
	return &plan, nil
}

func (f *fakeSubService) UpsertStripeSubscription(context.Context, string, string, time.Time, time.Time, string, string) error {
	return nil
}

func (f *fakeSubService) DowngradeUserToFreePlan(context.Context, string, string) error {
	return nil
}

func (f *fakeSubService) RecordInvoice(context.Context, *model.Invoice) error { return nil }

func (f *fakeSubService) ListInvoices(context.Context, string) ([]model.Invoice, error) {
	return nil, nil
}

// fakeGenerator returns canned outcomes in call order. A nil error entry
// yields a valid image.
type fakeGenerator struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (f *fakeGenerator) GenerateImage(_ context.Context, prompt string, _ model.AspectRatio, _ []gemini.ImageInput) (gemini.GeneratedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return gemini.GeneratedImage{}, f.errs[idx]
	}
	return gemini.GeneratedImage{Data: []byte("image-bytes"), MimeType: "image/jpeg"}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) PutImage(_ context.Context, prefix, filename string, data []byte) (storage.StoredImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := prefix + "/" + filename
	f.objects[key] = data
	return storage.StoredImage{
		Key:          key,
		ThumbnailKey: prefix + "/thumbnails/" + filename,
		Width:        1024,
		Height:       1024,
		SizeBytes:    len(data),
	}, nil
}

func (f *fakeStore) GetObject(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (f *fakeStore) DeletePrefix(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, prefix)
	for key := range f.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(f.objects, key)
		}
	}
	return nil
}

func (f *fakeStore) PresignGet(_ context.Context, key string) (string, error) {
	return "https://signed.example.com/" + key, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, _ string, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, payload)
	return "msg-1", nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}
