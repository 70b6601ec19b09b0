package models

import (
	"reflect"
	"strings"
	"sync"

	validatorv10 "github.com/go-playground/validator/v10"
)

// GuestInfo holds the lead guest's contact details
type GuestInfo struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
}

// PaymentType describes how the stay was paid for. Amount is kept as the
// decimal string the partner sent so it can be forwarded verbatim.
type PaymentType struct {
	Kind         string `json:"kind" validate:"required"`
	Amount       string `json:"amount,omitempty"`
	CurrencyCode string `json:"currencyCode,omitempty" validate:"omitempty,len=3"`
}

// BookingRequest is the finalize-booking input sent by a partner
type BookingRequest struct {
	PartnerOrderID  string       `json:"partnerOrderId" validate:"required,max=128"`
	GuestInfo       *GuestInfo   `json:"guestInfo" validate:"required"`
	PaymentType     *PaymentType `json:"paymentType" validate:"required"`
	PaymentIntentID string       `json:"paymentIntentId,omitempty"`
	Remarks         string       `json:"remarks,omitempty" validate:"max=2000"`
}

// FieldError names one rejected request field
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

var (
	validate     *validatorv10.Validate
	validateOnce sync.Once
)

func requestValidator() *validatorv10.Validate {
	validateOnce.Do(func() {
		validate = validatorv10.New(validatorv10.WithRequiredStructEnabled())
		// Report fields by their JSON names so partners can map errors back.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Normalize trims whitespace and lower-cases the guest email in place
func (r *BookingRequest) Normalize() {
	r.PartnerOrderID = strings.TrimSpace(r.PartnerOrderID)
	r.PaymentIntentID = strings.TrimSpace(r.PaymentIntentID)
	r.Remarks = strings.TrimSpace(r.Remarks)
	if g := r.GuestInfo; g != nil {
		g.FirstName = strings.TrimSpace(g.FirstName)
		g.LastName = strings.TrimSpace(g.LastName)
		g.Email = strings.ToLower(strings.TrimSpace(g.Email))
		g.Phone = strings.TrimSpace(g.Phone)
	}
	if p := r.PaymentType; p != nil {
		p.Kind = strings.TrimSpace(p.Kind)
		p.Amount = strings.TrimSpace(p.Amount)
		p.CurrencyCode = strings.ToUpper(strings.TrimSpace(p.CurrencyCode))
	}
}

// Validate checks required fields and returns every violation found.
// A nil request yields a single "request" violation.
func (r *BookingRequest) Validate() []FieldError {
	if r == nil {
		return []FieldError{{Field: "request", Rule: "required"}}
	}
	err := requestValidator().Struct(r)
	if err == nil {
		return nil
	}

	var fields []FieldError
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			fields = append(fields, FieldError{
				Field: strings.TrimPrefix(fe.Namespace(), "BookingRequest."),
				Rule:  fe.Tag(),
			})
		}
		return fields
	}
	return []FieldError{{Field: "request", Rule: err.Error()}}
}
