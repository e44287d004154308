// Package services holds the business logic between the HTTP/worker edges
// and the store: plans, planned expenses, payments and installment expansion.
//
// This file implements the strategy registry that spaces the installments of
// a recurring planned expense. Each frequency has its own scheduler.
package services

import (
	"fmt"
	"sync"

	"famspese/internal/core"
)

// InstallmentScheduler is the strategy interface for placing installments.
type InstallmentScheduler interface {
	// DueDate returns the due date of installment n (1-based) of a series
	// starting at start.
	DueDate(start core.Date, n int) core.Date
}

// MonthStep schedules one installment every N calendar months.
type MonthStep int

func (m MonthStep) DueDate(start core.Date, n int) core.Date {
	if n < 1 {
		n = 1
	}
	return start.AddMonths(int(m) * (n - 1))
}

var (
	schedulersMu sync.RWMutex
	schedulers   = map[core.Frequency]InstallmentScheduler{
		core.Monthly:   MonthStep(1),
		core.Bimonthly: MonthStep(2),
		core.Quarterly: MonthStep(3),
	}
)

// GetInstallmentScheduler returns the scheduler registered for frequency.
func GetInstallmentScheduler(frequency core.Frequency) (InstallmentScheduler, error) {
	schedulersMu.RLock()
	defer schedulersMu.RUnlock()
	s, ok := schedulers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown recurring frequency: %s", frequency)
	}
	return s, nil
}

// RegisterInstallmentScheduler adds or replaces the scheduler of a frequency.
func RegisterInstallmentScheduler(frequency core.Frequency, s InstallmentScheduler) {
	schedulersMu.Lock()
	defer schedulersMu.Unlock()
	schedulers[frequency] = s
}
