package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Shared     PaymentType = "shared"
	Individual PaymentType = "individual"
	Partial    PaymentType = "partial"
)

const (
	Monthly   Frequency = "monthly"
	Bimonthly Frequency = "bimonthly"
	Quarterly Frequency = "quarterly"
)

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

const (
	PlanMonthly PlanType = "monthly"
	PlanEvent   PlanType = "event"
	PlanCustom  PlanType = "custom"
)

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
	MethodOther    PaymentMethod = "other"
)

const maxDescriptionLen = 200

type (
	PaymentType   string
	Frequency     string
	Priority      string
	PlanType      string
	PaymentMethod string

	Date struct {
		time.Time
	}

	Member struct {
		ID           string
		Email        string
		DisplayName  string
		PasswordHash string
		CreatedAt    time.Time
	}

	SpendingPlan struct {
		ID            string
		Name          string
		Description   string
		PlanType      PlanType
		StartDate     Date
		EndDate       Date
		TotalBudget   decimal.NullDecimal
		IsActive      bool
		IsShared      bool
		IsHidden      bool
		AutoGenerated bool
		CreatedBy     string
		MemberIDs     []string
		CreatedAt     time.Time
	}

	// PlannedExpense is a budgeted line item of a spending plan.
	// DesignatedPayer is only meaningful for Individual entries and must be
	// empty for Partial ones. StaticShareFallback is legacy data: it is read
	// when a member has no linked payments and never written by share logic.
	PlannedExpense struct {
		ID                  string
		PlanID              string
		Description         string
		Amount              decimal.Decimal
		PaymentType         PaymentType
		DesignatedPayer     string
		StaticShareFallback decimal.NullDecimal
		CategoryID          int64
		SubcategoryID       int64
		Priority            Priority
		DueDate             Date
		Notes               string
		IsRecurring         bool
		TotalInstallments   int
		InstallmentNumber   int
		ParentRecurringID   string
		RecurringFrequency  Frequency
		CreatedAt           time.Time
	}

	// Payment is an actual, realized payment. An empty PlannedExpenseID marks a
	// stand-alone payment whose share terms are its own PaymentType,
	// DesignatedPayer and MyShareAmount.
	Payment struct {
		ID               string
		Amount           decimal.Decimal
		PayerID          string
		PlannedExpenseID string
		PlanID           string
		Description      string
		Date             Date
		PaymentType      PaymentType
		DesignatedPayer  string
		MyShareAmount    decimal.NullDecimal
		CategoryID       int64
		SubcategoryID    int64
		PaymentMethod    PaymentMethod
		CreatedAt        time.Time
		ExportedAt       time.Time
	}
)

var (
	ErrInvalidDay           = errors.New("invalid day")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrDescriptionTooLong   = errors.New("description too long (max 200 characters)")
	ErrInvalidPaymentType   = errors.New("invalid payment type")
	ErrPartialWithPayer     = errors.New("partial expense cannot have a designated payer")
	ErrInvalidFallback      = errors.New("share fallback must be a non-negative amount in cents")
	ErrInvalidPriority      = errors.New("invalid priority")
	ErrInvalidFrequency     = errors.New("invalid recurring frequency")
	ErrInvalidInstallments  = errors.New("invalid installments")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrMissingPayer         = errors.New("missing payer")
	ErrEmptyName            = errors.New("empty name")
	ErrInvalidPlanType      = errors.New("invalid plan type")
	ErrInvalidPlanPeriod    = errors.New("plan end date must not be before start date")
	ErrInvalidBudget        = errors.New("budget must be positive")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// AddMonths moves the date by n calendar months, clamping the day to the
// length of the target month (Jan 31 + 1 month = Feb 28/29).
func (d Date) AddMonths(n int) Date {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return Date{Time: time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)}
}

// MonthBounds returns the first and last day of the date's month.
func (d Date) MonthBounds() (Date, Date) {
	first := NewDate(d.Year(), int(d.Month()), 1)
	return first, Date{Time: first.AddDate(0, 1, -1)}
}

func (t PaymentType) Valid() bool {
	switch t {
	case Shared, Individual, Partial:
		return true
	}
	return false
}

func (f Frequency) Valid() bool {
	switch f {
	case Monthly, Bimonthly, Quarterly:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func (p PlanType) Valid() bool {
	switch p {
	case PlanMonthly, PlanEvent, PlanCustom:
		return true
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodOther:
		return true
	}
	return false
}

func validateDescription(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyDescription
	}
	if len(s) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

func validateAmount(a decimal.Decimal) error {
	if !a.IsPositive() || !isCents(a) {
		return ErrInvalidAmount
	}
	return nil
}

func validateFallback(f decimal.NullDecimal) error {
	if f.Valid && (f.Decimal.IsNegative() || !isCents(f.Decimal)) {
		return ErrInvalidFallback
	}
	return nil
}

// isCents reports whether d has no digits below the cent.
func isCents(d decimal.Decimal) bool {
	return d.Equal(RoundCents(d))
}

func (e PlannedExpense) Validate() error {
	if err := validateDescription(e.Description); err != nil {
		return err
	}
	if err := validateAmount(e.Amount); err != nil {
		return err
	}
	if !e.PaymentType.Valid() {
		return ErrInvalidPaymentType
	}
	if e.PaymentType == Partial && e.DesignatedPayer != "" {
		return ErrPartialWithPayer
	}
	if err := validateFallback(e.StaticShareFallback); err != nil {
		return err
	}
	if e.Priority != "" && !e.Priority.Valid() {
		return ErrInvalidPriority
	}
	if !e.DueDate.IsZero() {
		if err := e.DueDate.Validate(); err != nil {
			return err
		}
	}
	if e.TotalInstallments < 1 || e.InstallmentNumber < 1 || e.InstallmentNumber > e.TotalInstallments {
		return ErrInvalidInstallments
	}
	if e.IsRecurring && !e.RecurringFrequency.Valid() {
		return ErrInvalidFrequency
	}
	return nil
}

// IsStandalone reports whether the payment is not linked to a planned expense.
func (p Payment) IsStandalone() bool {
	return p.PlannedExpenseID == ""
}

func (p Payment) Validate() error {
	if err := validateAmount(p.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(p.PayerID) == "" {
		return ErrMissingPayer
	}
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if len(p.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if p.PaymentMethod != "" && !p.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	if !p.IsStandalone() {
		return nil
	}
	// Stand-alone payments carry their own split terms.
	if err := validateDescription(p.Description); err != nil {
		return err
	}
	if !p.PaymentType.Valid() {
		return ErrInvalidPaymentType
	}
	if p.PaymentType == Partial && p.DesignatedPayer != "" {
		return ErrPartialWithPayer
	}
	return validateFallback(p.MyShareAmount)
}

func (p SpendingPlan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if !p.PlanType.Valid() {
		return ErrInvalidPlanType
	}
	if err := p.StartDate.Validate(); err != nil {
		return err
	}
	if err := p.EndDate.Validate(); err != nil {
		return err
	}
	if p.EndDate.Before(p.StartDate.Time) {
		return ErrInvalidPlanPeriod
	}
	if p.TotalBudget.Valid && (!p.TotalBudget.Decimal.IsPositive() || !isCents(p.TotalBudget.Decimal)) {
		return ErrInvalidBudget
	}
	return nil
}

// HasMember reports whether memberID belongs to the plan.
func (p SpendingPlan) HasMember(memberID string) bool {
	if memberID == "" {
		return false
	}
	for _, id := range p.MemberIDs {
		if id == memberID {
			return true
		}
	}
	return false
}

// HasSameMembers reports whether the plan's member set equals memberIDs,
// ignoring order and duplicates.
func (p SpendingPlan) HasSameMembers(memberIDs []string) bool {
	want := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		want[id] = struct{}{}
	}
	have := make(map[string]struct{}, len(p.MemberIDs))
	for _, id := range p.MemberIDs {
		if _, ok := want[id]; !ok {
			return false
		}
		have[id] = struct{}{}
	}
	return len(have) == len(want)
}

// ValidEmail is a deliberately loose check: one @ with text on both sides.
func ValidEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at == strings.LastIndex(email, "@") && at < len(email)-1
}
