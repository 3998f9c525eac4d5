package otel

import (
	"errors"

	"go.opentelemetry.io/otel/metric"
)

type EngineMetrics struct {
	CasesStarted       metric.Int64Counter
	CasesCompleted     metric.Int64Counter
	CasesClosed        metric.Int64Counter
	CasesActive        metric.Int64UpDownCounter
	UserTasksCreated   metric.Int64Counter
	UserTasksCompleted metric.Int64Counter
	SentriesFired      metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*EngineMetrics, error) {
	var errJoin error

	casesStartedTotal, err := meter.Int64Counter("cases_started", metric.WithDescription("Number of case instances started"))
	errJoin = errors.Join(errJoin, err)

	casesCompletedTotal, err := meter.Int64Counter("cases_completed", metric.WithDescription("Number of case instances completed"))
	errJoin = errors.Join(errJoin, err)

	casesClosedTotal, err := meter.Int64Counter("cases_closed", metric.WithDescription("Number of case instances closed"))
	errJoin = errors.Join(errJoin, err)

	casesActive, err := meter.Int64UpDownCounter("cases_active", metric.WithDescription("Number of case instances currently active"))
	errJoin = errors.Join(errJoin, err)

	userTasksCreated, err := meter.Int64Counter("user_tasks_created", metric.WithDescription("Number of user tasks created"))
	errJoin = errors.Join(errJoin, err)

	userTasksCompleted, err := meter.Int64Counter("user_tasks_completed", metric.WithDescription("Number of user tasks completed"))
	errJoin = errors.Join(errJoin, err)

	sentriesFired, err := meter.Int64Counter("sentries_fired", metric.WithDescription("Number of sentries that fired their criterion"))
	errJoin = errors.Join(errJoin, err)

	metrics := EngineMetrics{
		CasesStarted:       casesStartedTotal,
		CasesCompleted:     casesCompletedTotal,
		CasesClosed:        casesClosedTotal,
		CasesActive:        casesActive,
		UserTasksCreated:   userTasksCreated,
		UserTasksCompleted: userTasksCompleted,
		SentriesFired:      sentriesFired,
	}
	return &metrics, errJoin
}
