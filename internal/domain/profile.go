package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserType classifies how the user earns income.
type UserType string

const (
	UserSalaried UserType = "salaried"
	UserBusiness UserType = "business"
	UserBoth     UserType = "both"
)

// UserProfile is created at onboarding and updated afterwards.
type UserProfile struct {
	Name                string            `json:"name,omitempty" validate:"max=100"`
	PAN                 string            `json:"pan,omitempty" validate:"omitempty,pan"`
	AssessmentYear      string            `json:"assessmentYear,omitempty" validate:"omitempty,assessment_year"`
	UserType            UserType          `json:"userType,omitempty" validate:"omitempty,oneof=salaried business both"`
	BasicInfo           BasicInfo         `json:"basicInfo"`
	EmploymentDetails   EmploymentDetails `json:"employmentDetails"`
	HousingDetails      HousingDetails    `json:"housingDetails"`
	InvestmentProfile   InvestmentProfile `json:"investmentProfile"`
	OnboardingCompleted bool              `json:"onboardingCompleted"`
	CreatedAt           time.Time         `json:"createdAt,omitempty"`
}

// BasicInfo holds personal details collected at onboarding.
type BasicInfo struct {
	AnnualIncome  decimal.Decimal `json:"annualIncome"`
	Age           int             `json:"age,omitempty" validate:"omitempty,min=18,max=100"`
	MaritalStatus string          `json:"maritalStatus,omitempty" validate:"omitempty,oneof=single married divorced widowed"`
	Dependents    int             `json:"dependents" validate:"min=0"`
	City          string          `json:"city,omitempty" validate:"max=100"`
	IsMetroCity   bool            `json:"isMetroCity"`
}

// EmploymentDetails covers both salaried and business users.
type EmploymentDetails struct {
	EmployerName   string `json:"employerName,omitempty"`
	EmploymentType string `json:"employmentType,omitempty" validate:"omitempty,oneof=private government psu ngo"`
	BusinessType   string `json:"businessType,omitempty"`
	BusinessName   string `json:"businessName,omitempty"`
	GSTRegistered  bool   `json:"gstRegistered"`
}

// HousingDetails drives HRA and home-loan advice.
type HousingDetails struct {
	HousingStatus  string          `json:"housingStatus,omitempty" validate:"omitempty,oneof=owned rented family"`
	MonthlyRent    decimal.Decimal `json:"monthlyRent"`
	HomeLoan       bool            `json:"homeLoan"`
	HomeLoanAmount decimal.Decimal `json:"homeLoanAmount"`
}

// InvestmentProfile records the user's risk appetite.
type InvestmentProfile struct {
	RiskTolerance        string   `json:"riskTolerance,omitempty" validate:"omitempty,oneof=conservative moderate aggressive"`
	InvestmentExperience string   `json:"investmentExperience,omitempty" validate:"omitempty,oneof=beginner intermediate expert"`
	CurrentInvestments   []string `json:"currentInvestments,omitempty"`
}

// DefaultAssessmentYear is used when the profile does not name one.
const DefaultAssessmentYear = "2024-25"

// AssessmentYearOrDefault returns the profile's assessment year or the default.
func (p UserProfile) AssessmentYearOrDefault() string {
	if p.AssessmentYear == "" {
		return DefaultAssessmentYear
	}
	return p.AssessmentYear
}

// UserTypeOrDefault returns the profile's user type, salaried when unset.
func (p UserProfile) UserTypeOrDefault() UserType {
	if p.UserType == "" {
		return UserSalaried
	}
	return p.UserType
}
