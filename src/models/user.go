package models

import "time"

const DefaultCurrency = "INR"

type User struct {
	ID                 int64      `json:"id"`
	Email              string     `json:"email"`
	Username           string     `json:"username"`
	Name               string     `json:"name"`
	PhoneNumber        string     `json:"phone_number"`
	CurrencyPreference string     `json:"currency_preference"`
	PasswordHash       []byte     `json:"-"`
	DateJoined         time.Time  `json:"date_joined"`
	LastLogin          *time.Time `json:"last_login"`
}
