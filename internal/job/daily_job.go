package job

import (
	"context"
	"log"
	"time"

	"daily-alpha/internal/workflow"

	"go.opentelemetry.io/otel/trace"
)

// WorkflowRunner executes one daily cycle.
type WorkflowRunner interface {
	Run(ctx context.Context, collectionDate time.Time, dryRun bool) *workflow.RunResult
}

// ReportSender pushes the finished report somewhere visible. Delivery
// failure is logged, never escalated.
type ReportSender interface {
	SendReport(ctx context.Context, report string) error
}

// DailyJob fires the workflow once a day at a fixed UTC hour, after the
// US session close.
type DailyJob struct {
	tracer  trace.Tracer
	runner  WorkflowRunner
	sender  ReportSender
	symbol  string
	runHour int
}

func NewDailyJob(tracer trace.Tracer, runner WorkflowRunner, sender ReportSender, symbol string, runHourUTC int) *DailyJob {
	if runHourUTC < 0 || runHourUTC > 23 {
		runHourUTC = 22
	}
	return &DailyJob{tracer: tracer, runner: runner, sender: sender, symbol: symbol, runHour: runHourUTC}
}

func (j *DailyJob) Start(ctx context.Context) {
	if j.runner == nil {
		log.Println("daily job disabled: no workflow runner")
		<-ctx.Done()
		return
	}
	for {
		next := nextRunUTC(time.Now().UTC(), j.runHour)
		wait := time.Until(next)
		if wait < time.Second {
			wait = time.Second
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			j.runOnce(ctx)
		}
	}
}

func (j *DailyJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "daily-job.run-once")
	defer span.End()

	result := j.runner.Run(ctx, time.Time{}, false)
	report := workflow.FormatReport(j.symbol, result)
	log.Printf("daily job finished success=%v errors=%d", result.Success, len(result.Errors))

	if j.sender == nil {
		return
	}
	if err := j.sender.SendReport(ctx, report); err != nil {
		log.Printf("report delivery failed: %v", err)
	}
}

func nextRunUTC(now time.Time, hour int) time.Time {
	run := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !run.After(now) {
		run = run.Add(24 * time.Hour)
	}
	return run
}
