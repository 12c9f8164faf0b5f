package domain

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Amount bounds for a single transaction.
var (
	MinAmount = decimal.RequireFromString("0.01")
	MaxAmount = decimal.NewFromInt(10_000_000)
)

var (
	panPattern            = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	assessmentYearPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("pan", func(fl validator.FieldLevel) bool {
		return panPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("assessment_year", func(fl validator.FieldLevel) bool {
		return assessmentYearPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateCandidate checks manually entered or edited transaction data.
// Nothing is coerced: every problem is reported per field.
func ValidateCandidate(c Candidate) error {
	errs := structErrors(c)

	if !c.Date.IsValid() {
		errs = append(errs, FieldError{Field: "date", Message: "is required"})
	}
	if c.Amount.LessThan(MinAmount) {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	} else if c.Amount.GreaterThan(MaxAmount) {
		errs = append(errs, FieldError{Field: "amount", Message: "must not exceed 10000000"})
	}
	if c.Type.Valid() && c.Category != "" {
		switch {
		case !c.Category.Valid():
			errs = append(errs, FieldError{Field: "category", Message: fmt.Sprintf("unknown category %q", c.Category)})
		case !c.Category.ValidFor(c.Type):
			errs = append(errs, FieldError{Field: "category", Message: fmt.Sprintf("%q is not a %s category", c.Category, c.Type)})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateProfile checks the shape of a profile without requiring the
// onboarding fields.
func ValidateProfile(p UserProfile) error {
	errs := structErrors(p)
	errs = append(errs, nonNegative("basicInfo.annualIncome", p.BasicInfo.AnnualIncome)...)
	errs = append(errs, nonNegative("housingDetails.monthlyRent", p.HousingDetails.MonthlyRent)...)
	errs = append(errs, nonNegative("housingDetails.homeLoanAmount", p.HousingDetails.HomeLoanAmount)...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateOnboarding checks a profile that is about to be marked complete.
func ValidateOnboarding(p UserProfile) error {
	var errs ValidationErrors
	if err := ValidateProfile(p); err != nil {
		errs = append(errs, Fields(err)...)
	}
	if p.UserType == "" {
		errs = append(errs, FieldError{Field: "userType", Message: "is required"})
	}
	if p.BasicInfo.Age == 0 {
		errs = append(errs, FieldError{Field: "basicInfo.age", Message: "is required"})
	}
	if strings.TrimSpace(p.BasicInfo.City) == "" {
		errs = append(errs, FieldError{Field: "basicInfo.city", Message: "is required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateSettings checks tax settings.
func ValidateSettings(s TaxSettings) error {
	if errs := structErrors(s); len(errs) > 0 {
		return errs
	}
	return nil
}

func nonNegative(field string, d decimal.Decimal) ValidationErrors {
	if d.IsNegative() {
		return ValidationErrors{{Field: field, Message: "must not be negative"}}
	}
	return nil
}

func structErrors(v any) ValidationErrors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationErrors{{Field: "", Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe), Message: fieldMessage(fe)})
	}
	return out
}

// fieldPath drops the root type name from the namespace, leaving the json path.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "pan":
		return "must be a valid PAN such as ABCDE1234F"
	case "assessment_year":
		return "must look like 2024-25"
	}
	return "is invalid"
}
