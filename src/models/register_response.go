package models

type RegisterResponse struct {
	ID                 int64  `json:"id"`
	Email              string `json:"email"`
	Username           string `json:"username"`
	Name               string `json:"name"`
	CurrencyPreference string `json:"currency_preference"`
}

type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}
