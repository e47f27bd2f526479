package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AccountState string

const (
	AccountPendingVerification AccountState = "pending_verification"
	AccountActive              AccountState = "active"
	AccountDisabled            AccountState = "disabled"
)

const (
	RoleFreelancer = "freelancer"
	RoleReviewer   = "reviewer"
)

type Personal struct {
	FullName     string    `bson:"fullName" json:"fullName"`
	EmailAddress string    `bson:"emailAddress" json:"emailAddress"`
	PhoneNumber  string    `bson:"phoneNumber" json:"phoneNumber"`
	CityLocation string    `bson:"cityLocation" json:"cityLocation"`
	JoinedAt     time.Time `bson:"joinedAt" json:"joinedAt"`
}

type Professional struct {
	MainCategory    TaskCategory `bson:"mainCategory" json:"mainCategory"`
	SkillSet        string       `bson:"skillSet" json:"skillSet"`
	ExperienceLevel string       `bson:"experienceLevel" json:"experienceLevel"`
	RatePerHour     float64      `bson:"ratePerHour" json:"ratePerHour"`
	HoursPerWeek    string       `bson:"hoursPerWeek" json:"hoursPerWeek"`
}

type UserFiles struct {
	CVFileURL       string `bson:"cvFileUrl" json:"cvFileUrl"`
	IDFileURL       string `bson:"idFileUrl" json:"idFileUrl"`
	CertificateURLs string `bson:"certificateUrls" json:"certificateUrls"`
	Verified        bool   `bson:"verified" json:"verified"`
}

type UserSettings struct {
	PreferredProjectType string `bson:"preferredProjectType" json:"preferredProjectType"`
	WorkMode             string `bson:"workMode" json:"workMode"`
	EmailNotifications   bool   `bson:"emailNotifications" json:"emailNotifications"`
	TaskNotifications    bool   `bson:"taskNotifications" json:"taskNotifications"`
}

type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Personal           Personal           `bson:"personal" json:"personal"`
	Professional       Professional       `bson:"professional" json:"professional"`
	Files              UserFiles          `bson:"files" json:"files"`
	Settings           UserSettings       `bson:"settings" json:"settings"`
	AccountState       AccountState       `bson:"accountState" json:"accountState"`
	Role               string             `bson:"role" json:"role"`
	Password           string             `bson:"password" json:"-"`
	VerificationCode   string             `bson:"verificationCode,omitempty" json:"-"`
	VerificationExpiry time.Time          `bson:"verificationExpiry,omitempty" json:"-"`
}

// DefaultProfile builds the profile record written on first sign-in when
// no profile document exists yet.
func DefaultProfile(fullName, email string) User {
	if fullName == "" {
		fullName = "New Freelancer"
	}
	return User{
		Personal: Personal{
			FullName:     fullName,
			EmailAddress: email,
			CityLocation: "Nairobi",
			JoinedAt:     time.Now(),
		},
		Professional: Professional{
			ExperienceLevel: "0-1 years",
			HoursPerWeek:    "20-30 hours",
		},
		Settings: UserSettings{
			PreferredProjectType: "project_based",
			WorkMode:             "remote",
			EmailNotifications:   true,
			TaskNotifications:    true,
		},
		AccountState: AccountActive,
		Role:         RoleFreelancer,
	}
}
