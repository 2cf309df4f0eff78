package slackbot

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	slackMetricsOnce      sync.Once
	slackMentionCounter   metric.Int64Counter
	slackErrorCounter     metric.Int64Counter
	slackLatencyHistogram metric.Float64Histogram
)

func initSlackOTelMetrics() {
	slackMetricsOnce.Do(func() {
		meter := otel.Meter("hellobot/slackbot")

		var err error
		slackMentionCounter, err = meter.Int64Counter(
			"hellobot.slack.mentions.total",
			metric.WithDescription("Total app_mention events handled"),
		)
		if err != nil {
			log.Printf("observability: failed to create mention counter: %v", err)
		}

		slackErrorCounter, err = meter.Int64Counter(
			"hellobot.slack.errors.total",
			metric.WithDescription("Total mention replies that failed"),
		)
		if err != nil {
			log.Printf("observability: failed to create error counter: %v", err)
		}

		slackLatencyHistogram, err = meter.Float64Histogram(
			"hellobot.slack.reply_time",
			metric.WithDescription("Time from receiving a mention to posting the reply (ms)"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			log.Printf("observability: failed to create latency histogram: %v", err)
		}
	})
}

func recordMentionMetrics(ctx context.Context, attrs []attribute.KeyValue, duration time.Duration, hadError bool) {
	initSlackOTelMetrics()
	if slackMentionCounter != nil {
		slackMentionCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if slackLatencyHistogram != nil {
		slackLatencyHistogram.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	}
	if hadError && slackErrorCounter != nil {
		slackErrorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
