package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-templating/pkg/activity"
	"github.com/goliatone/go-templating/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildVariableValueChangedEvent(activity.VariableEventInput{
		Name:      "server",
		Kind:      "query",
		Dashboard: "ops",
		Text:      "web-1",
		Value:     "web-1",
	})
	event.ActorID = actorID.String()
	event.TenantID = tenantID.String()
	event.Channel = "dashboards"
	event.OccurredAt = now

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, record.ActorID)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected nil user, got %s", record.UserID)
	}
	if record.TenantID != tenantID {
		t.Fatalf("expected tenant %s got %s", tenantID, record.TenantID)
	}
	if record.Verb != activity.VerbVariableValueChanged || record.ObjectType != "variable" || record.ObjectID != "server" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "dashboards" {
		t.Fatalf("expected channel dashboards, got %q", record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["dashboard"] != "ops" || record.Data["value"] != "web-1" || record.Data["kind"] != "query" {
		t.Fatalf("unexpected data: %#v", record.Data)
	}
}

func TestHookNotifySkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	if err := hook.Notify(context.Background(), activity.Event{Verb: "variable.created"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no records, got %d", len(sink.records))
	}
}

func TestHookNotifyPropagatesSinkError(t *testing.T) {
	sinkErr := errors.New("sink down")
	hook := usersink.Hook{Sink: &recordingSink{err: sinkErr}}

	err := hook.Notify(context.Background(), activity.BuildVariableCreatedEvent(activity.VariableEventInput{Name: "env"}))
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestHookWithoutSinkIsNoop(t *testing.T) {
	if err := (usersink.Hook{}).Notify(context.Background(), activity.Event{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
