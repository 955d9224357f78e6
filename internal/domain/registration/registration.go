package registration

import (
	"regexp"
	"strings"

	domainErrors "github.com/corvael/provision-api/internal/domain/errors"
)

// Tier is the subscription tier purchased at checkout.
type Tier string

const (
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// BillingPeriod is the purchased billing cadence.
type BillingPeriod string

const (
	BillingMonthly BillingPeriod = "monthly"
	BillingYearly  BillingPeriod = "yearly"
)

const (
	maxEmailLength    = 254
	maxFreeTextLength = 200
)

var (
	emailPattern = regexp.MustCompile(`^[a-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)+$`)

	// Characters that could enable injection downstream (HTML, SQL string
	// breakage, header splitting) are stripped from free-text fields.
	unsafeChars = strings.NewReplacer(
		"<", "", ">", "", `"`, "", "'", "", "`", "",
		";", "", "\\", "", "\r", "", "\n", "", "\x00", "",
	)

	companySizes = map[string]struct{}{
		"1-10": {}, "11-50": {}, "51-200": {}, "201-500": {}, "500+": {},
	}
)

// Metadata is the validated, immutable registration payload carried in the
// payment intent's metadata bag. Construct it with FromIntentMetadata only;
// every constraint holds before any side effect occurs.
type Metadata struct {
	Email         string
	FirstName     string
	LastName      string
	Company       string
	CompanySize   string
	Tier          Tier
	BillingPeriod BillingPeriod
}

// FromIntentMetadata validates the raw metadata bag into a Metadata value.
// Validation is total and upfront: the first violated constraint determines
// the reported field, and out-of-enumeration values are rejected rather than
// normalized. Pure function over its input.
func FromIntentMetadata(raw map[string]string) (Metadata, error) {
	var m Metadata

	email := strings.ToLower(strings.TrimSpace(raw["email"]))
	switch {
	case email == "":
		return m, domainErrors.NewValidationError("email", "email is required")
	case len(email) > maxEmailLength:
		return m, domainErrors.NewValidationError("email", "email is too long")
	case !emailPattern.MatchString(email):
		return m, domainErrors.NewValidationError("email", "must be a valid email address")
	}

	firstName, err := sanitizeRequired("firstName", raw["firstName"])
	if err != nil {
		return m, err
	}
	lastName, err := sanitizeRequired("lastName", raw["lastName"])
	if err != nil {
		return m, err
	}

	company, err := sanitizeOptional("company", raw["company"])
	if err != nil {
		return m, err
	}

	companySize := strings.TrimSpace(raw["companySize"])
	if companySize != "" {
		if _, ok := companySizes[companySize]; !ok {
			return m, domainErrors.NewValidationError("companySize", "must be one of 1-10, 11-50, 51-200, 201-500, 500+")
		}
	}

	tier := Tier(strings.TrimSpace(raw["tier"]))
	switch tier {
	case TierStarter, TierProfessional, TierEnterprise:
	case "":
		return m, domainErrors.NewValidationError("tier", "tier is required")
	default:
		return m, domainErrors.NewValidationError("tier", "must be one of starter, professional, enterprise")
	}

	period := BillingPeriod(strings.TrimSpace(raw["billingPeriod"]))
	switch period {
	case BillingMonthly, BillingYearly:
	case "":
		return m, domainErrors.NewValidationError("billingPeriod", "billingPeriod is required")
	default:
		return m, domainErrors.NewValidationError("billingPeriod", "must be monthly or yearly")
	}

	m.Email = email
	m.FirstName = firstName
	m.LastName = lastName
	m.Company = company
	m.CompanySize = companySize
	m.Tier = tier
	m.BillingPeriod = period
	return m, nil
}

// FullName returns the display name stored on the provisioned account.
func (m Metadata) FullName() string {
	return m.FirstName + " " + m.LastName
}

func sanitizeRequired(field, value string) (string, error) {
	clean := sanitize(value)
	if clean == "" {
		return "", domainErrors.NewValidationError(field, field+" is required")
	}
	if len(clean) > maxFreeTextLength {
		return "", domainErrors.NewValidationError(field, field+" is too long")
	}
	return clean, nil
}

func sanitizeOptional(field, value string) (string, error) {
	clean := sanitize(value)
	if len(clean) > maxFreeTextLength {
		return "", domainErrors.NewValidationError(field, field+" is too long")
	}
	return clean, nil
}

func sanitize(s string) string {
	return strings.TrimSpace(unsafeChars.Replace(s))
}
