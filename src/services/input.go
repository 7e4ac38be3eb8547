package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"spendsage-server/src/models"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Payload is a decoded JSON object body, keyed by field name. Binders read
// only the client-writable keys of a resource; every other key, including
// owner and system-computed fields, is ignored.
type Payload map[string]json.RawMessage

// Nullable distinguishes an absent field from an explicit null.
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeField decodes p[key] into T, recording invalid on failure. It
// returns nil for an absent key; null is reported through the second result.
func decodeField[T any](p Payload, key, invalid string, errs *ValidationError) (*T, bool) {
	raw, ok := p[key]
	if !ok {
		return nil, false
	}
	if isNull(raw) {
		return nil, true
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		errs.Add(key, invalid)
		return nil, false
	}
	return &v, false
}

func stringField(p Payload, key string, errs *ValidationError) *string {
	v, null := decodeField[string](p, key, "Not a valid string.", errs)
	if null {
		errs.Add(key, msgNull)
	}
	if v != nil {
		trimmed := strings.TrimSpace(*v)
		v = &trimmed
	}
	return v
}

func moneyField(p Payload, key string, errs *ValidationError) *decimal.Decimal {
	v, null := decodeField[decimal.Decimal](p, key, "A valid number is required.", errs)
	if null {
		errs.Add(key, msgNull)
		return nil
	}
	if v != nil {
		if err := models.CheckMoney(*v); err != nil {
			errs.Add(key, err.Error())
			return nil
		}
	}
	return v
}

func dateField(p Payload, key string, errs *ValidationError) *models.Date {
	raw, ok := p[key]
	if !ok {
		return nil
	}
	if isNull(raw) {
		errs.Add(key, msgNull)
		return nil
	}
	var d models.Date
	if err := json.Unmarshal(raw, &d); err != nil {
		errs.Add(key, err.Error())
		return nil
	}
	return &d
}

// pkField accepts a JSON integer or a numeric string.
func pkField(p Payload, key string, errs *ValidationError) Nullable[int64] {
	raw, ok := p[key]
	if !ok {
		return Nullable[int64]{}
	}
	if isNull(raw) {
		return Nullable[int64]{Set: true}
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return Nullable[int64]{Set: true, Valid: true, Value: n}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Nullable[int64]{Set: true, Valid: true, Value: n}
		}
		errs.Add(key, "Incorrect type. Expected pk value, received str.")
		return Nullable[int64]{}
	}
	errs.Add(key, "Incorrect type. Expected pk value.")
	return Nullable[int64]{}
}

func invalidPK(id int64) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}

func maxLength(errs *ValidationError, field string, v *string, n int) {
	if v != nil && len([]rune(*v)) > n {
		errs.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", n))
	}
}

// CategoryInput holds the client-writable category fields.
type CategoryInput struct {
	Name     *string
	Keywords *string
}

func BindCategory(p Payload) (CategoryInput, error) {
	errs := &ValidationError{}
	in := CategoryInput{
		Name:     stringField(p, "name", errs),
		Keywords: stringField(p, "keywords", errs),
	}
	return in, errs.Err()
}

// TransactionInput holds the client-writable transaction fields. The anomaly
// flag is absent on purpose; only the anomaly scan sets it.
type TransactionInput struct {
	Category        Nullable[int64]
	Amount          *decimal.Decimal
	TransactionType *string
	RawDescription  *string
}

func BindTransaction(p Payload) (TransactionInput, error) {
	errs := &ValidationError{}
	in := TransactionInput{
		Category:        pkField(p, "category", errs),
		Amount:          moneyField(p, "amount", errs),
		TransactionType: stringField(p, "transaction_type", errs),
		RawDescription:  stringField(p, "raw_description", errs),
	}
	if in.TransactionType != nil && !models.TransactionType(*in.TransactionType).Valid() {
		errs.Add("transaction_type", fmt.Sprintf("\"%s\" is not a valid choice.", *in.TransactionType))
	}
	return in, errs.Err()
}

// BudgetInput holds the client-writable budget fields. The prediction and
// status are computed by the forecast job.
type BudgetInput struct {
	Category        Nullable[int64]
	PeriodStartDate *models.Date
	PeriodEndDate   *models.Date
	LimitAmount     *decimal.Decimal
}

func BindBudget(p Payload) (BudgetInput, error) {
	errs := &ValidationError{}
	in := BudgetInput{
		Category:        pkField(p, "category", errs),
		PeriodStartDate: dateField(p, "period_start_date", errs),
		PeriodEndDate:   dateField(p, "period_end_date", errs),
		LimitAmount:     moneyField(p, "limit_amount", errs),
	}
	if in.Category.Set && !in.Category.Valid {
		errs.Add("category", msgNull)
	}
	return in, errs.Err()
}

type RegisterInput struct {
	Email              string
	Username           string
	Password           string
	Name               string
	PhoneNumber        string
	CurrencyPreference string
}

func BindRegister(p Payload) (RegisterInput, error) {
	errs := &ValidationError{}
	var in RegisterInput
	for key, dst := range map[string]*string{
		"email":               &in.Email,
		"username":            &in.Username,
		"password":            &in.Password,
		"name":                &in.Name,
		"phone_number":        &in.PhoneNumber,
		"currency_preference": &in.CurrencyPreference,
	} {
		if v := stringField(p, key, errs); v != nil {
			*dst = *v
		}
	}
	// Passwords are not trimmed.
	if v, _ := decodeField[string](p, "password", "Not a valid string.", &ValidationError{}); v != nil {
		in.Password = *v
	}
	return in, errs.Err()
}

// ProfileInput holds the profile fields a user may change.
type ProfileInput struct {
	Username           *string
	Name               *string
	PhoneNumber        *string
	CurrencyPreference *string
}

func BindProfile(p Payload) (ProfileInput, error) {
	errs := &ValidationError{}
	in := ProfileInput{
		Username:           stringField(p, "username", errs),
		Name:               stringField(p, "name", errs),
		PhoneNumber:        stringField(p, "phone_number", errs),
		CurrencyPreference: stringField(p, "currency_preference", errs),
	}
	return in, errs.Err()
}

// requiredString reads a string field that must be present and non-blank.
func requiredString(p Payload, key string, errs *ValidationError) string {
	v := stringField(p, key, errs)
	switch {
	case errs.Has(key):
	case v == nil:
		errs.Add(key, msgRequired)
	case *v == "":
		errs.Add(key, msgBlank)
	default:
		return *v
	}
	return ""
}

type LoginInput struct {
	Email    string
	Password string
}

func BindLogin(p Payload) (LoginInput, error) {
	errs := &ValidationError{}
	in := LoginInput{
		Email:    requiredString(p, "email", errs),
		Password: requiredString(p, "password", errs),
	}
	if v, _ := decodeField[string](p, "password", "Not a valid string.", &ValidationError{}); v != nil {
		in.Password = *v
	}
	return in, errs.Err()
}

// BindRefresh returns the refresh token from a refresh request.
func BindRefresh(p Payload) (string, error) {
	errs := &ValidationError{}
	token := requiredString(p, "refresh", errs)
	return token, errs.Err()
}

// BindPublicToken returns the Plaid public token from an exchange request.
func BindPublicToken(p Payload) (string, error) {
	errs := &ValidationError{}
	token := requiredString(p, "public_token", errs)
	return token, errs.Err()
}
