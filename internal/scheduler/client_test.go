package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL    string
	queue       string
	concurrency int
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return c.concurrency }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

func TestScheduleBookingReminderEnqueuesScheduledTask(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testSchedulerConfig{redisURL: "redis://" + mr.Addr(), queue: "bookings"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	runAt := time.Now().Add(24 * time.Hour)
	err = client.ScheduleBookingReminder(context.Background(), BookingReminderPayload{
		BookingID: "3f1d3f8e-1111-4222-8333-444455556666",
	}, runAt)
	if err != nil {
		t.Fatalf("ScheduleBookingReminder: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListScheduledTasks("bookings")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskBookingReminder {
		t.Fatalf("expected task type %s, got %s", TaskBookingReminder, tasks[0].Type)
	}

	payload, err := ParseBookingReminderPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("ParseBookingReminderPayload: %v", err)
	}
	if payload.BookingID != "3f1d3f8e-1111-4222-8333-444455556666" {
		t.Fatalf("unexpected booking id %s", payload.BookingID)
	}
}

func TestParseBookingReminderPayloadRejectsGarbage(t *testing.T) {
	task := asynq.NewTask(TaskBookingReminder, []byte("not json"))
	if _, err := ParseBookingReminderPayload(task); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Addr != "localhost:6380" {
		t.Fatalf("unexpected addr %s", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Fatalf("unexpected password %s", opt.Password)
	}
	if opt.DB != 2 {
		t.Fatalf("unexpected db %d", opt.DB)
	}
	if opt.TLSConfig != nil {
		t.Fatal("expected nil tls config for redis scheme")
	}
}

func TestRedisClientOptInsecureTLS(t *testing.T) {
	opt, err := redisClientOpt("rediss://localhost:6380", true)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.TLSConfig == nil {
		t.Fatal("expected tls config for rediss scheme")
	}
	if !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected InsecureSkipVerify")
	}
}
