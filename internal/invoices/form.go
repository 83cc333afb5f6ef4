package invoices

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Form field names as they appear in the submitted form data.
const (
	FieldCustomerID = "customerId"
	FieldAmount     = "amount"
	FieldStatus     = "status"
)

// Top-level failure messages returned alongside field errors.
const (
	MsgCreateFailed = "Missing Fields. Failed to Create Invoice."
	MsgUpdateFailed = "Missing Fields. Failed to Update Invoice."
)

var fieldMessages = map[string]string{
	FieldCustomerID: "Please select a customer.",
	FieldAmount:     "Please enter an amount greater than $0.",
	FieldStatus:     "Please select an invoice status.",
}

// invoiceForm mirrors the canonical invoice schema narrowed for form input:
// id and date are server-owned and never read from the form.
type invoiceForm struct {
	CustomerID string  `validate:"required"`
	Amount     float64 `validate:"gt=0"`
	Status     string  `validate:"required,oneof=paid pending"`
}

var structFieldNames = map[string]string{
	"CustomerID": FieldCustomerID,
	"Amount":     FieldAmount,
	"Status":     FieldStatus,
}

// FieldErrors is the failure half of a validation result: per-field message
// sequences plus one summary message for the form header.
type FieldErrors struct {
	Fields  map[string][]string
	Message string
}

func (e *FieldErrors) Error() string {
	return e.Message
}

// Draft is the success half: the narrowed, coerced fields ready for the
// writer. AmountCents is round(amount * 100).
type Draft struct {
	CustomerID  string
	AmountCents int64
	Status      Status
}

// Validator validates raw invoice form input. The underlying schema is
// constructed once and is read-only afterwards, so a single instance is
// shared across requests.
type Validator struct {
	validate *validator.Validate
}

// NewValidator constructs the invoice form validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ParseCreate validates form input for invoice creation.
func (v *Validator) ParseCreate(values url.Values) (*Draft, *FieldErrors) {
	return v.parse(values, MsgCreateFailed)
}

// ParseUpdate validates form input for invoice updates. The invoice id
// arrives out-of-band from the URL, never from the form.
func (v *Validator) ParseUpdate(values url.Values) (*Draft, *FieldErrors) {
	return v.parse(values, MsgUpdateFailed)
}

func (v *Validator) parse(values url.Values, failureMsg string) (*Draft, *FieldErrors) {
	form := invoiceForm{
		CustomerID: strings.TrimSpace(values.Get(FieldCustomerID)),
		Status:     values.Get(FieldStatus),
	}
	// Non-numeric, non-finite and overflowing amounts coerce to zero and
	// fail the gt=0 rule, keeping the cents conversion inside int64 range.
	if amount, err := strconv.ParseFloat(strings.TrimSpace(values.Get(FieldAmount)), 64); err == nil && !math.IsNaN(amount) && amount*100 < math.MaxInt64 {
		form.Amount = amount
	}

	if err := v.validate.Struct(form); err != nil {
		fields := make(map[string][]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				name := structFieldNames[fe.StructField()]
				if name == "" {
					continue
				}
				fields[name] = append(fields[name], fieldMessages[name])
			}
		}
		return nil, &FieldErrors{Fields: fields, Message: failureMsg}
	}

	return &Draft{
		CustomerID:  form.CustomerID,
		AmountCents: int64(math.Round(form.Amount * 100)),
		Status:      Status(form.Status),
	}, nil
}
