package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	// PreferBoth is only valid as a partner preference.
	PreferBoth = "both"

	MinAge = 18
)

var validate = validator.New()

// User представляє зареєстрованого анонімного користувача та його вподобання.
// The preference tuple (Age, Gender, PartnerPreferredGender) is read once per
// connection and treated as immutable while that connection lives.
type User struct {
	ID                     string    `gorm:"primaryKey" json:"id"` // Анонімний UUID
	TelegramID             *int64    `gorm:"uniqueIndex" json:"-"` // nil для WebSocket-користувачів
	Age                    int       `gorm:"not null" json:"age" validate:"gte=18"`
	Gender                 string    `gorm:"type:text;not null" json:"gender" validate:"oneof=male female"`
	PartnerPreferredGender string    `gorm:"type:text;not null" json:"partner_preferred_gender" validate:"oneof=male female both"`
	CreatedAt              time.Time `json:"created_at"`
}

// BeforeCreate це хук GORM, який викликається перед створенням запису.
// Він генерує новий UUID для користувача, якщо ID ще не встановлено.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Validate checks the registration rules: adult age and known gender values.
func (u *User) Validate() error {
	return validate.Struct(u)
}

// Accepts reports whether u is willing to be paired with someone of the given gender.
func (u *User) Accepts(gender string) bool {
	return u.PartnerPreferredGender == PreferBoth || u.PartnerPreferredGender == gender
}
