package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	errs "flexkazi/freelancer-service/errors"
	"flexkazi/freelancer-service/logging"
	"flexkazi/freelancer-service/models"
	"flexkazi/freelancer-service/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the slice of the user repository the service depends on.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user models.User) (primitive.ObjectID, error)
	SetField(ctx context.Context, userID string, field string, value interface{}) error
	Activate(ctx context.Context, email, code string) error
	DeleteExpiredUnverified(ctx context.Context) (int64, error)
	IncrementSiteStats(ctx context.Context, deltas map[string]int64)
	AddToWorkCategory(ctx context.Context, category models.TaskCategory, userID string) error
	RemoveFromWorkCategory(ctx context.Context, category models.TaskCategory, userID string) error
	GetSiteStats(ctx context.Context) (*models.SiteStatistics, error)
}

// IndexStore creates and rewrites the per-user denormalized task index.
type IndexStore interface {
	SaveUserIndex(ctx context.Context, index models.UserTaskIndex) error
	GetUserIndex(ctx context.Context, userID string) (*models.UserTaskIndex, error)
}

type UserService struct {
	Users      UserStore
	Index      IndexStore
	JWTService *JWTService
	BlackList  map[string]bool
	Timeout    time.Duration
}

func NewUserService(users UserStore, index IndexStore, jwtService *JWTService, blackList map[string]bool) *UserService {
	return &UserService{
		Users:      users,
		Index:      index,
		JWTService: jwtService,
		BlackList:  blackList,
		Timeout:    10 * time.Second,
	}
}

// GetSiteStats returns the advisory site-wide counters. They are best
// effort and may lag the collections they summarize.
func (s *UserService) GetSiteStats(ctx context.Context) (*models.SiteStatistics, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.Users.GetSiteStats(ctx)
}

type RegisterRequest struct {
	FullName        string              `json:"fullName"`
	Email           string              `json:"email"`
	PhoneNumber     string              `json:"phoneNumber"`
	CityLocation    string              `json:"cityLocation"`
	MainCategory    models.TaskCategory `json:"mainCategory"`
	SkillSet        string              `json:"skillSet"`
	ExperienceLevel string              `json:"experienceLevel"`
	RatePerHour     float64             `json:"ratePerHour"`
	Password        string              `json:"password"`
	ConfirmPassword string              `json:"confirmPassword"`
	CaptchaToken    string              `json:"captchaToken"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func (s *UserService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.Timeout)
}

// ValidatePassword enforces the signup password policy.
func (s *UserService) ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters long", errs.ErrValidation)
	}

	hasUppercase := false
	for _, char := range password {
		if char >= 'A' && char <= 'Z' {
			hasUppercase = true
			break
		}
	}
	if !hasUppercase {
		return fmt.Errorf("%w: password must contain at least one uppercase letter", errs.ErrValidation)
	}

	hasDigit := false
	for _, char := range password {
		if char >= '0' && char <= '9' {
			hasDigit = true
			break
		}
	}
	if !hasDigit {
		return fmt.Errorf("%w: password must contain at least one number", errs.ErrValidation)
	}

	specialChars := "!@#$%^&*.,"
	hasSpecial := false
	for _, char := range password {
		if strings.ContainsRune(specialChars, char) {
			hasSpecial = true
			break
		}
	}
	if !hasSpecial {
		return fmt.Errorf("%w: password must contain at least one special character", errs.ErrValidation)
	}

	if s.BlackList[password] {
		return fmt.Errorf("%w: password is too common, please choose a stronger one", errs.ErrValidation)
	}

	return nil
}

func (s *UserService) validateRegistration(req RegisterRequest) error {
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		return fmt.Errorf("%w: full name, email and password are required", errs.ErrValidation)
	}
	if !emailPattern.MatchString(req.Email) {
		return fmt.Errorf("%w: invalid email address", errs.ErrValidation)
	}
	if req.Password != req.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", errs.ErrValidation)
	}
	if req.RatePerHour < 0 {
		return fmt.Errorf("%w: hourly rate cannot be negative", errs.ErrValidation)
	}
	return s.ValidatePassword(req.Password)
}

// RegisterUser creates a pending account, its empty task index and the
// advisory membership counters, then emails the verification code.
func (s *UserService) RegisterUser(ctx context.Context, req RegisterRequest) (string, error) {
	if err := s.validateRegistration(req); err != nil {
		return "", err
	}

	ok, err := utils.VerifyCaptcha(req.CaptchaToken)
	if err != nil {
		return "", fmt.Errorf("captcha verification failed: %v", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: captcha check failed", errs.ErrValidation)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.Users.GetByEmail(ctx, req.Email); err == nil {
		return "", errs.ErrAccountExists
	} else if !errors.Is(err, errs.ErrUserNotFound) {
		return "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %v", err)
	}

	user := models.DefaultProfile(html.EscapeString(req.FullName), html.EscapeString(req.Email))
	user.Personal.PhoneNumber = html.EscapeString(req.PhoneNumber)
	if req.CityLocation != "" {
		user.Personal.CityLocation = html.EscapeString(req.CityLocation)
	}
	user.Professional.MainCategory = req.MainCategory
	user.Professional.SkillSet = html.EscapeString(req.SkillSet)
	if req.ExperienceLevel != "" {
		user.Professional.ExperienceLevel = req.ExperienceLevel
	}
	user.Professional.RatePerHour = req.RatePerHour
	user.Password = string(hashedPassword)
	user.AccountState = models.AccountPendingVerification
	user.VerificationCode = utils.GenerateVerificationCode()
	user.VerificationExpiry = time.Now().Add(15 * time.Minute)

	userID, err := s.Users.Insert(ctx, user)
	if err != nil {
		return "", err
	}
	uid := userID.Hex()

	if err := s.Index.SaveUserIndex(ctx, models.EmptyTaskIndex(uid)); err != nil {
		logging.Logger.Warnf("Event ID: INDEX_BOOTSTRAP_FAILED, Description: Failed to create task index for user %s: %v", uid, err)
	}

	if req.MainCategory != "" {
		if err := s.Users.AddToWorkCategory(ctx, req.MainCategory, uid); err != nil {
			logging.Logger.Warnf("Event ID: WORK_CATEGORY_UPDATE_FAILED, Description: %v", err)
		}
	}

	// Advisory counters only, never abort the signup over them.
	s.Users.IncrementSiteStats(ctx, map[string]int64{
		"totalMembers":   1,
		"awaitingReview": 1,
	})

	subject := "Your FlexKazi verification code"
	body := fmt.Sprintf("Your verification code is %s. Please enter it within 15 minutes.", user.VerificationCode)
	if err := utils.SendEmail(req.Email, subject, body); err != nil {
		return "", fmt.Errorf("failed to send verification email: %v", err)
	}

	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: Registered user %s, verification pending.", uid)
	return uid, nil
}

// ConfirmAccount activates a pending account from the emailed code.
func (s *UserService) ConfirmAccount(ctx context.Context, email, code string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.Users.Activate(ctx, email, code); err != nil {
		return err
	}

	s.Users.IncrementSiteStats(ctx, map[string]int64{
		"awaitingReview":  -1,
		"approvedMembers": 1,
	})

	logging.Logger.Infof("Event ID: USER_ACTIVATED, Description: Account for %s activated.", email)
	return nil
}

// LoginUser verifies the credentials and returns the user with a signed
// session token. A missing task index is bootstrapped here, so a profile
// that predates the index feature still gets one on first sign-in.
func (s *UserService) LoginUser(ctx context.Context, email, password string) (*models.User, string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		// A store outage is not a wrong password.
		if errors.Is(err, errs.ErrUserNotFound) {
			return nil, "", errs.ErrInvalidCredential
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", errs.ErrInvalidCredential
	}

	if user.AccountState == models.AccountDisabled {
		return nil, "", errs.ErrAccountInactive
	}

	uid := user.ID.Hex()
	token, err := utils.GenerateToken(uid, user.Personal.EmailAddress, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %v", err)
	}

	if err := s.BootstrapIndex(ctx, uid); err != nil {
		logging.Logger.Warnf("Event ID: INDEX_BOOTSTRAP_FAILED, Description: Failed to bootstrap task index for user %s: %v", uid, err)
	}

	user.Password = ""
	return user, token, nil
}

// BootstrapIndex makes sure the per-user task index document exists.
func (s *UserService) BootstrapIndex(ctx context.Context, userID string) error {
	index, err := s.Index.GetUserIndex(ctx, userID)
	if err != nil {
		return err
	}
	if index.AssignedTasks == nil {
		index.AssignedTasks = map[string]models.AssignedTaskSummary{}
	}
	return s.Index.SaveUserIndex(ctx, *index)
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

func (s *UserService) UpdatePersonal(ctx context.Context, userID string, personal models.Personal) error {
	if personal.FullName == "" {
		return fmt.Errorf("%w: full name is required", errs.ErrValidation)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	current, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	// Email and join date are not editable from the settings form.
	personal.EmailAddress = current.Personal.EmailAddress
	personal.JoinedAt = current.Personal.JoinedAt
	personal.FullName = html.EscapeString(personal.FullName)
	personal.PhoneNumber = html.EscapeString(personal.PhoneNumber)
	personal.CityLocation = html.EscapeString(personal.CityLocation)

	return s.Users.SetField(ctx, userID, "personal", personal)
}

// UpdateProfessional saves the professional section and keeps the work
// category membership in sync when the primary category changes.
func (s *UserService) UpdateProfessional(ctx context.Context, userID string, professional models.Professional) error {
	if professional.RatePerHour < 0 {
		return fmt.Errorf("%w: hourly rate cannot be negative", errs.ErrValidation)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	current, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	professional.SkillSet = html.EscapeString(professional.SkillSet)
	if err := s.Users.SetField(ctx, userID, "professional", professional); err != nil {
		return err
	}

	oldCategory := current.Professional.MainCategory
	if oldCategory != professional.MainCategory {
		if oldCategory != "" {
			if err := s.Users.RemoveFromWorkCategory(ctx, oldCategory, userID); err != nil {
				logging.Logger.Warnf("Event ID: WORK_CATEGORY_UPDATE_FAILED, Description: %v", err)
			}
		}
		if professional.MainCategory != "" {
			if err := s.Users.AddToWorkCategory(ctx, professional.MainCategory, userID); err != nil {
				logging.Logger.Warnf("Event ID: WORK_CATEGORY_UPDATE_FAILED, Description: %v", err)
			}
		}
	}
	return nil
}

func (s *UserService) UpdateSettings(ctx context.Context, userID string, settings models.UserSettings) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.Users.SetField(ctx, userID, "settings", settings)
}

// ChangePassword swaps the password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return fmt.Errorf("%w: new password and confirmation do not match", errs.ErrValidation)
	}
	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return fmt.Errorf("%w: old password is incorrect", errs.ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %v", err)
	}

	return s.Users.SetField(ctx, userID, "password", string(hashed))
}

// SendPasswordResetLink emails a one-time reset token to the account owner.
func (s *UserService) SendPasswordResetLink(ctx context.Context, email string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.JWTService.GeneratePasswordResetToken(user.Personal.EmailAddress)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %v", err)
	}

	if err := utils.SendPasswordResetEmail(user.Personal.EmailAddress, token); err != nil {
		return fmt.Errorf("failed to send password reset email: %v", err)
	}

	return nil
}

// ResetPassword completes the reset flow started by SendPasswordResetLink.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return fmt.Errorf("%w: passwords do not match", errs.ErrValidation)
	}
	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	email, err := s.JWTService.VerifyPasswordResetToken(token)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %v", err)
	}

	return s.Users.SetField(ctx, user.ID.Hex(), "password", string(hashed))
}

// DeleteExpiredUnverifiedUsers sweeps signups that never confirmed.
func (s *UserService) DeleteExpiredUnverifiedUsers(ctx context.Context) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	deleted, err := s.Users.DeleteExpiredUnverified(ctx)
	if err != nil {
		logging.Logger.Warnf("Event ID: EXPIRED_SIGNUP_SWEEP_FAILED, Description: %v", err)
		return
	}
	if deleted > 0 {
		logging.Logger.Infof("Event ID: EXPIRED_SIGNUP_SWEEP, Description: Removed %d unverified signups.", deleted)
	}
}
