package http

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"famspese/internal/core"
	"famspese/internal/services"
)

// Amounts travel as strings with two decimals. Requests accept either a
// JSON string or number, with a dot or comma separator, and are rounded
// half-up to cents by core.ParseAmount.

// amountInput is an amount exactly as the client sent it.
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountInput(s)
		return nil
	}
	*a = amountInput(b)
	return nil
}

func (a amountInput) required(field string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(string(a))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func (a amountInput) optional(field string) (decimal.NullDecimal, error) {
	d, err := core.ParseOptionalAmount(string(a))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

type (
	registerRequest struct {
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	memberResponse struct {
		ID          string    `json:"id"`
		Email       string    `json:"email"`
		DisplayName string    `json:"display_name"`
		CreatedAt   time.Time `json:"created_at"`
	}

	authResponse struct {
		Member memberResponse `json:"member"`
		Token  string         `json:"token"`
	}

	planRequest struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		PlanType    string      `json:"plan_type"`
		StartDate   string      `json:"start_date"`
		EndDate     string      `json:"end_date"`
		TotalBudget amountInput `json:"total_budget"`
		IsActive    *bool       `json:"is_active"`
		IsShared    *bool       `json:"is_shared"`
		IsHidden    bool        `json:"is_hidden"`
		MemberIDs   []string    `json:"member_ids"`
	}

	planResponse struct {
		ID            string    `json:"id"`
		Name          string    `json:"name"`
		Description   string    `json:"description"`
		PlanType      string    `json:"plan_type"`
		StartDate     string    `json:"start_date"`
		EndDate       string    `json:"end_date"`
		TotalBudget   *string   `json:"total_budget"`
		IsActive      bool      `json:"is_active"`
		IsShared      bool      `json:"is_shared"`
		IsHidden      bool      `json:"is_hidden"`
		AutoGenerated bool      `json:"auto_generated"`
		CreatedBy     string    `json:"created_by"`
		MemberIDs     []string  `json:"member_ids"`
		CreatedAt     time.Time `json:"created_at"`
	}

	addMemberRequest struct {
		MemberID string `json:"member_id"`
		Email    string `json:"email"`
	}

	summaryResponse struct {
		PlanID          string            `json:"plan_id"`
		MyAssignedTotal string            `json:"my_assigned_total"`
		MemberTotals    map[string]string `json:"member_totals"`
		TotalPlanned    string            `json:"total_planned"`
		TotalPaid       string            `json:"total_paid"`
		TotalStandalone string            `json:"total_standalone"`
		RemainingBudget *string           `json:"remaining_budget"`
		BudgetProgress  float64           `json:"budget_progress"`
		CompletedCount  int               `json:"completed_count"`
		PlannedCount    int               `json:"planned_count"`
	}

	plannedExpenseRequest struct {
		PlanID              string      `json:"plan_id"`
		Description         string      `json:"description"`
		Amount              amountInput `json:"amount"`
		PaymentType         string      `json:"payment_type"`
		DesignatedPayer     string      `json:"designated_payer"`
		StaticShareFallback amountInput `json:"static_share_fallback"`
		CategoryID          int64       `json:"category_id"`
		SubcategoryID       int64       `json:"subcategory_id"`
		Priority            string      `json:"priority"`
		DueDate             string      `json:"due_date"`
		Notes               string      `json:"notes"`
		IsRecurring         bool        `json:"is_recurring"`
		TotalInstallments   int         `json:"total_installments"`
		InstallmentNumber   int         `json:"installment_number"`
		RecurringFrequency  string      `json:"recurring_frequency"`
	}

	plannedExpenseResponse struct {
		ID                   string    `json:"id"`
		PlanID               string    `json:"plan_id"`
		Description          string    `json:"description"`
		Amount               string    `json:"amount"`
		PaymentType          string    `json:"payment_type"`
		DesignatedPayer      string    `json:"designated_payer,omitempty"`
		StaticShareFallback  *string   `json:"static_share_fallback,omitempty"`
		CategoryID           int64     `json:"category_id,omitempty"`
		SubcategoryID        int64     `json:"subcategory_id,omitempty"`
		Priority             string    `json:"priority"`
		DueDate              string    `json:"due_date,omitempty"`
		Notes                string    `json:"notes,omitempty"`
		IsRecurring          bool      `json:"is_recurring"`
		TotalInstallments    int       `json:"total_installments"`
		InstallmentNumber    int       `json:"installment_number"`
		ParentRecurringID    string    `json:"parent_recurring_id,omitempty"`
		RecurringFrequency   string    `json:"recurring_frequency,omitempty"`
		MyShare              string    `json:"my_share"`
		OtherShare           string    `json:"other_share"`
		TotalPaid            string    `json:"total_paid"`
		Remaining            string    `json:"remaining"`
		Status               string    `json:"status"`
		CompletionPercentage float64   `json:"completion_percentage"`
		CreatedAt            time.Time `json:"created_at"`
	}

	paymentRequest struct {
		Amount           amountInput `json:"amount"`
		PayerID          string      `json:"payer_id"`
		PlannedExpenseID string      `json:"planned_expense_id"`
		PlanID           string      `json:"plan_id"`
		Description      string      `json:"description"`
		Date             string      `json:"date"`
		PaymentType      string      `json:"payment_type"`
		DesignatedPayer  string      `json:"designated_payer"`
		MyShareAmount    amountInput `json:"my_share_amount"`
		CategoryID       int64       `json:"category_id"`
		SubcategoryID    int64       `json:"subcategory_id"`
		PaymentMethod    string      `json:"payment_method"`
	}

	paymentResponse struct {
		ID               string    `json:"id"`
		Amount           string    `json:"amount"`
		PayerID          string    `json:"payer_id"`
		PlannedExpenseID string    `json:"planned_expense_id,omitempty"`
		PlanID           string    `json:"plan_id,omitempty"`
		Description      string    `json:"description"`
		Date             string    `json:"date"`
		PaymentType      string    `json:"payment_type,omitempty"`
		DesignatedPayer  string    `json:"designated_payer,omitempty"`
		MyShareAmount    *string   `json:"my_share_amount,omitempty"`
		CategoryID       int64     `json:"category_id,omitempty"`
		SubcategoryID    int64     `json:"subcategory_id,omitempty"`
		PaymentMethod    string    `json:"payment_method,omitempty"`
		Exported         bool      `json:"exported"`
		CreatedAt        time.Time `json:"created_at"`
	}

	categoryResponse struct {
		ID            int64   `json:"id"`
		Name          string  `json:"name"`
		Kind          string  `json:"kind"`
		Icon          string  `json:"icon,omitempty"`
		Color         string  `json:"color,omitempty"`
		MonthlyBudget *string `json:"monthly_budget,omitempty"`
	}

	subcategoryResponse struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := money(d.Decimal)
	return &s
}

func toMemberResponse(m core.Member) memberResponse {
	return memberResponse{
		ID:          m.ID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		CreatedAt:   m.CreatedAt,
	}
}

func (req planRequest) toPlan() (core.SpendingPlan, error) {
	start, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		return core.SpendingPlan{}, err
	}
	end, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		return core.SpendingPlan{}, err
	}
	budget, err := req.TotalBudget.optional("total_budget")
	if err != nil {
		return core.SpendingPlan{}, err
	}
	return core.SpendingPlan{
		Name:        sanitizeInput(req.Name),
		Description: sanitizeInput(req.Description),
		PlanType:    core.PlanType(req.PlanType),
		StartDate:   start,
		EndDate:     end,
		TotalBudget: budget,
		IsActive:    boolOr(req.IsActive, true),
		IsShared:    boolOr(req.IsShared, true),
		IsHidden:    req.IsHidden,
		MemberIDs:   req.MemberIDs,
	}, nil
}

func toPlanResponse(p core.SpendingPlan) planResponse {
	members := p.MemberIDs
	if members == nil {
		members = []string{}
	}
	return planResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		PlanType:      string(p.PlanType),
		StartDate:     p.StartDate.String(),
		EndDate:       p.EndDate.String(),
		TotalBudget:   nullMoney(p.TotalBudget),
		IsActive:      p.IsActive,
		IsShared:      p.IsShared,
		IsHidden:      p.IsHidden,
		AutoGenerated: p.AutoGenerated,
		CreatedBy:     p.CreatedBy,
		MemberIDs:     members,
		CreatedAt:     p.CreatedAt,
	}
}

func toSummaryResponse(s core.PlanSummary) summaryResponse {
	totals := make(map[string]string, len(s.MemberTotals))
	for id, v := range s.MemberTotals {
		totals[id] = money(v)
	}
	return summaryResponse{
		PlanID:          s.PlanID,
		MyAssignedTotal: money(s.MyAssignedTotal),
		MemberTotals:    totals,
		TotalPlanned:    money(s.TotalPlanned),
		TotalPaid:       money(s.TotalPaid),
		TotalStandalone: money(s.TotalStandalone),
		RemainingBudget: nullMoney(s.RemainingBudget),
		BudgetProgress:  s.BudgetProgress,
		CompletedCount:  s.CompletedCount,
		PlannedCount:    s.PlannedCount,
	}
}

func (req plannedExpenseRequest) toPlannedExpense() (core.PlannedExpense, error) {
	due, err := parseOptionalDate("due_date", req.DueDate)
	if err != nil {
		return core.PlannedExpense{}, err
	}
	amount, err := req.Amount.required("amount")
	if err != nil {
		return core.PlannedExpense{}, err
	}
	fallback, err := req.StaticShareFallback.optional("static_share_fallback")
	if err != nil {
		return core.PlannedExpense{}, err
	}
	return core.PlannedExpense{
		PlanID:              req.PlanID,
		Description:         sanitizeInput(req.Description),
		Amount:              amount,
		PaymentType:         core.PaymentType(req.PaymentType),
		DesignatedPayer:     req.DesignatedPayer,
		StaticShareFallback: fallback,
		CategoryID:          req.CategoryID,
		SubcategoryID:       req.SubcategoryID,
		Priority:            core.Priority(req.Priority),
		DueDate:             due,
		Notes:               sanitizeInput(req.Notes),
		IsRecurring:         req.IsRecurring,
		TotalInstallments:   req.TotalInstallments,
		InstallmentNumber:   req.InstallmentNumber,
		RecurringFrequency:  core.Frequency(req.RecurringFrequency),
	}, nil
}

func toPlannedExpenseResponse(v services.PlannedExpenseView) plannedExpenseResponse {
	e := v.PlannedExpense
	return plannedExpenseResponse{
		ID:                   e.ID,
		PlanID:               e.PlanID,
		Description:          e.Description,
		Amount:               money(e.Amount),
		PaymentType:          string(e.PaymentType),
		DesignatedPayer:      e.DesignatedPayer,
		StaticShareFallback:  nullMoney(e.StaticShareFallback),
		CategoryID:           e.CategoryID,
		SubcategoryID:        e.SubcategoryID,
		Priority:             string(e.Priority),
		DueDate:              e.DueDate.String(),
		Notes:                e.Notes,
		IsRecurring:          e.IsRecurring,
		TotalInstallments:    e.TotalInstallments,
		InstallmentNumber:    e.InstallmentNumber,
		ParentRecurringID:    e.ParentRecurringID,
		RecurringFrequency:   string(e.RecurringFrequency),
		MyShare:              money(v.MyShare),
		OtherShare:           money(v.OtherShare),
		TotalPaid:            money(v.Progress.TotalPaid),
		Remaining:            money(v.Progress.Remaining),
		Status:               string(v.Progress.Status),
		CompletionPercentage: v.Progress.CompletionPercentage,
		CreatedAt:            e.CreatedAt,
	}
}

func (req paymentRequest) toPayment() (core.Payment, error) {
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return core.Payment{}, err
	}
	amount, err := req.Amount.required("amount")
	if err != nil {
		return core.Payment{}, err
	}
	myShare, err := req.MyShareAmount.optional("my_share_amount")
	if err != nil {
		return core.Payment{}, err
	}
	return core.Payment{
		Amount:           amount,
		PayerID:          req.PayerID,
		PlannedExpenseID: req.PlannedExpenseID,
		PlanID:           req.PlanID,
		Description:      sanitizeInput(req.Description),
		Date:             date,
		PaymentType:      core.PaymentType(req.PaymentType),
		DesignatedPayer:  req.DesignatedPayer,
		MyShareAmount:    myShare,
		CategoryID:       req.CategoryID,
		SubcategoryID:    req.SubcategoryID,
		PaymentMethod:    core.PaymentMethod(req.PaymentMethod),
	}, nil
}

func toPaymentResponse(p core.Payment) paymentResponse {
	return paymentResponse{
		ID:               p.ID,
		Amount:           money(p.Amount),
		PayerID:          p.PayerID,
		PlannedExpenseID: p.PlannedExpenseID,
		PlanID:           p.PlanID,
		Description:      p.Description,
		Date:             p.Date.String(),
		PaymentType:      string(p.PaymentType),
		DesignatedPayer:  p.DesignatedPayer,
		MyShareAmount:    nullMoney(p.MyShareAmount),
		CategoryID:       p.CategoryID,
		SubcategoryID:    p.SubcategoryID,
		PaymentMethod:    string(p.PaymentMethod),
		Exported:         !p.ExportedAt.IsZero(),
		CreatedAt:        p.CreatedAt,
	}
}

func toPaymentResponses(payments []core.Payment) []paymentResponse {
	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	return out
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:            c.ID,
		Name:          c.Name,
		Kind:          string(c.Kind),
		Icon:          c.Icon,
		Color:         c.Color,
		MonthlyBudget: nullMoney(c.MonthlyBudget),
	}
}
