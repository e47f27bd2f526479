package services

import (
	"context"
	"testing"

	errs "flexkazi/freelancer-service/errors"
	"flexkazi/freelancer-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	byEmail  map[string]*models.User
	fields   map[string]interface{}
	deltas   []map[string]int64
	emailErr error
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	store := &fakeUserStore{
		byEmail: map[string]*models.User{},
		fields:  map[string]interface{}{},
	}
	for _, user := range users {
		store.byEmail[user.Personal.EmailAddress] = user
	}
	return store
}

func (f *fakeUserStore) GetByID(ctx context.Context, userID string) (*models.User, error) {
	for _, user := range f.byEmail {
		if user.ID.Hex() == userID {
			return user, nil
		}
	}
	return nil, errs.ErrUserNotFound
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.emailErr != nil {
		return nil, f.emailErr
	}
	user, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) Insert(ctx context.Context, user models.User) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	user.ID = id
	f.byEmail[user.Personal.EmailAddress] = &user
	return id, nil
}

func (f *fakeUserStore) SetField(ctx context.Context, userID string, field string, value interface{}) error {
	f.fields[userID+"/"+field] = value
	return nil
}

func (f *fakeUserStore) Activate(ctx context.Context, email, code string) error {
	user, ok := f.byEmail[email]
	if !ok || user.VerificationCode != code {
		return errs.ErrUserNotFound
	}
	user.AccountState = models.AccountActive
	return nil
}

func (f *fakeUserStore) DeleteExpiredUnverified(ctx context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeUserStore) IncrementSiteStats(ctx context.Context, deltas map[string]int64) {
	f.deltas = append(f.deltas, deltas)
}

func (f *fakeUserStore) AddToWorkCategory(ctx context.Context, category models.TaskCategory, userID string) error {
	return nil
}

func (f *fakeUserStore) RemoveFromWorkCategory(ctx context.Context, category models.TaskCategory, userID string) error {
	return nil
}

func (f *fakeUserStore) GetSiteStats(ctx context.Context) (*models.SiteStatistics, error) {
	return &models.SiteStatistics{ID: models.SiteStatisticsID}, nil
}

type fakeIndexStore struct {
	saved map[string]models.UserTaskIndex
}

func (f *fakeIndexStore) SaveUserIndex(ctx context.Context, index models.UserTaskIndex) error {
	if f.saved == nil {
		f.saved = map[string]models.UserTaskIndex{}
	}
	f.saved[index.UserID] = index
	return nil
}

func (f *fakeIndexStore) GetUserIndex(ctx context.Context, userID string) (*models.UserTaskIndex, error) {
	if index, ok := f.saved[userID]; ok {
		return &index, nil
	}
	index := models.EmptyTaskIndex(userID)
	return &index, nil
}

func newTestUserService(users *fakeUserStore) (*UserService, *fakeIndexStore) {
	index := &fakeIndexStore{}
	service := NewUserService(users, index, &JWTService{}, map[string]bool{"Password1!": true})
	return service, index
}

func activeUser(email, password string) *models.User {
	hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := models.DefaultProfile("Amina Odhiambo", email)
	user.ID = primitive.NewObjectID()
	user.Password = string(hashed)
	return &user
}

func TestValidatePassword(t *testing.T) {
	service, _ := newTestUserService(newFakeUserStore())

	cases := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Str0ng.pass", false},
		{"too short", "S1.a", true},
		{"no uppercase", "weak1pass.", true},
		{"no digit", "Weakpass.!", true},
		{"no special", "Weakpass12", true},
		{"blacklisted", "Password1!", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := service.ValidatePassword(tc.password)
			if tc.wantErr {
				assert.ErrorIs(t, err, errs.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegisterUserRejectsInvalidInput(t *testing.T) {
	service, _ := newTestUserService(newFakeUserStore())

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing fields", RegisterRequest{Email: "a@b.com"}},
		{"bad email", RegisterRequest{FullName: "A", Email: "not-an-email", Password: "Str0ng.pass", ConfirmPassword: "Str0ng.pass"}},
		{"password mismatch", RegisterRequest{FullName: "A", Email: "a@b.com", Password: "Str0ng.pass", ConfirmPassword: "Other1.pass"}},
		{"negative rate", RegisterRequest{FullName: "A", Email: "a@b.com", Password: "Str0ng.pass", ConfirmPassword: "Str0ng.pass", RatePerHour: -5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.RegisterUser(context.Background(), tc.req)
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}

func TestRegisterUserRejectsDuplicateEmail(t *testing.T) {
	existing := activeUser("amina@example.com", "Str0ng.pass")
	service, _ := newTestUserService(newFakeUserStore(existing))

	_, err := service.RegisterUser(context.Background(), RegisterRequest{
		FullName:        "Amina Odhiambo",
		Email:           "amina@example.com",
		Password:        "Str0ng.pass",
		ConfirmPassword: "Str0ng.pass",
	})

	assert.ErrorIs(t, err, errs.ErrAccountExists)
}

func TestLoginUserReturnsTokenAndBootstrapsIndex(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	user := activeUser("amina@example.com", "Str0ng.pass")
	store := newFakeUserStore(user)
	service, index := newTestUserService(store)

	loggedIn, token, err := service.LoginUser(context.Background(), "amina@example.com", "Str0ng.pass")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Empty(t, loggedIn.Password)

	_, ok := index.saved[user.ID.Hex()]
	assert.True(t, ok)
}

func TestLoginUserWrongPassword(t *testing.T) {
	user := activeUser("amina@example.com", "Str0ng.pass")
	service, _ := newTestUserService(newFakeUserStore(user))

	_, _, err := service.LoginUser(context.Background(), "amina@example.com", "wrong")
	assert.ErrorIs(t, err, errs.ErrInvalidCredential)

	_, _, err = service.LoginUser(context.Background(), "nobody@example.com", "Str0ng.pass")
	assert.ErrorIs(t, err, errs.ErrInvalidCredential)
}

func TestRegisterUserSurfacesStoreOutage(t *testing.T) {
	store := newFakeUserStore()
	store.emailErr = errs.ErrRemoteUnavailable
	service, _ := newTestUserService(store)

	_, err := service.RegisterUser(context.Background(), RegisterRequest{
		FullName:        "Amina Odhiambo",
		Email:           "amina@example.com",
		Password:        "Str0ng.pass",
		ConfirmPassword: "Str0ng.pass",
	})

	assert.ErrorIs(t, err, errs.ErrRemoteUnavailable)
	// Nothing may be inserted while the duplicate check cannot run.
	assert.Empty(t, store.byEmail)
}

func TestLoginUserSurfacesStoreOutage(t *testing.T) {
	store := newFakeUserStore()
	store.emailErr = errs.ErrRemoteUnavailable
	service, _ := newTestUserService(store)

	_, _, err := service.LoginUser(context.Background(), "amina@example.com", "Str0ng.pass")

	assert.ErrorIs(t, err, errs.ErrRemoteUnavailable)
	assert.NotErrorIs(t, err, errs.ErrInvalidCredential)
}

func TestLoginUserDisabledAccount(t *testing.T) {
	user := activeUser("amina@example.com", "Str0ng.pass")
	user.AccountState = models.AccountDisabled
	service, _ := newTestUserService(newFakeUserStore(user))

	_, _, err := service.LoginUser(context.Background(), "amina@example.com", "Str0ng.pass")
	assert.ErrorIs(t, err, errs.ErrAccountInactive)
}

func TestConfirmAccountAdjustsCounters(t *testing.T) {
	user := activeUser("amina@example.com", "Str0ng.pass")
	user.AccountState = models.AccountPendingVerification
	user.VerificationCode = "123456"
	store := newFakeUserStore(user)
	service, _ := newTestUserService(store)

	err := service.ConfirmAccount(context.Background(), "amina@example.com", "123456")

	require.NoError(t, err)
	assert.Equal(t, models.AccountActive, user.AccountState)
	require.Len(t, store.deltas, 1)
	assert.Equal(t, int64(-1), store.deltas[0]["awaitingReview"])
	assert.Equal(t, int64(1), store.deltas[0]["approvedMembers"])
}

func TestUpdateProfessionalRejectsNegativeRate(t *testing.T) {
	user := activeUser("amina@example.com", "Str0ng.pass")
	service, _ := newTestUserService(newFakeUserStore(user))

	err := service.UpdateProfessional(context.Background(), user.ID.Hex(), models.Professional{RatePerHour: -10})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestChangePasswordVerifiesOldPassword(t *testing.T) {
	user := activeUser("amina@example.com", "Str0ng.pass")
	service, _ := newTestUserService(newFakeUserStore(user))

	err := service.ChangePassword(context.Background(), user.ID.Hex(), "wrong-old", "NewStr0ng.pass", "NewStr0ng.pass")
	assert.ErrorIs(t, err, errs.ErrValidation)

	err = service.ChangePassword(context.Background(), user.ID.Hex(), "Str0ng.pass", "NewStr0ng.pass", "NewStr0ng.pass")
	assert.NoError(t, err)
}
