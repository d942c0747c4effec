package action

import (
	"errors"
	"testing"
)

func TestDecodeSingle(t *testing.T) {
	r, err := Decode([]byte(`{"action":"create_event","title":"Lunch","date":"2026-10-16","startTime":"13:00","duration":60,"location":"Cafe","response":"Scheduled lunch."}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.Batch || len(r.Actions) != 1 {
		t.Fatalf("expected single action, got %+v", r)
	}
	ce, ok := r.Actions[0].(*CreateEvent)
	if !ok {
		t.Fatalf("expected *CreateEvent, got %T", r.Actions[0])
	}
	if ce.Title != "Lunch" || ce.StartTime != "13:00" || ce.Duration != 60 || ce.Location != "Cafe" {
		t.Errorf("fields = %+v", ce)
	}
	if Meta(ce).Response != "Scheduled lunch." {
		t.Errorf("response = %q", Meta(ce).Response)
	}
}

func TestDecodeBatch(t *testing.T) {
	r, err := Decode([]byte(`{"actions":[
		{"action":"delete_event","eventTitle":"Yoga","response":""},
		{"action":"ask_task_type","title":"buy groceries","response":"","expectsResponse":true}
	],"response":"Done."}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !r.Batch || r.Response != "Done." || len(r.Actions) != 2 {
		t.Fatalf("reply = %+v", r)
	}
	if r.Actions[0].Name() != "delete_event" || r.Actions[1].Name() != "ask_task_type" {
		t.Errorf("names = %s, %s", r.Actions[0].Name(), r.Actions[1].Name())
	}
	if !Meta(r.Actions[1]).ExpectsResponse {
		t.Error("expectsResponse lost")
	}
}

func TestDecodeUnknown(t *testing.T) {
	r, err := Decode([]byte(`{"action":"order_pizza","response":"I can't do that yet.","expectsResponse":false}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	u, ok := r.Actions[0].(*Unknown)
	if !ok {
		t.Fatalf("expected *Unknown, got %T", r.Actions[0])
	}
	if u.Name() != "order_pizza" || u.Response != "I can't do that yet." {
		t.Errorf("unknown = %+v", u)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `Sure! I'll schedule that.`},
		{"no action", `{"response":"hi"}`},
		{"bad member", `{"actions":[{"response":"x"}]}`},
		{"bad minutes", `{"action":"find_free_time","date":"2026-10-16","duration":"an hour"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.in)); err == nil {
				t.Errorf("expected error for %s", tt.in)
			}
		})
	}
	if _, err := Decode([]byte(`{"response":"hi"}`)); !errors.Is(err, ErrNoAction) {
		t.Errorf("expected ErrNoAction, got %v", err)
	}
}

func TestMinutesLenient(t *testing.T) {
	r, err := Decode([]byte(`{"action":"reschedule_event","eventTitle":"standup","newDuration":null,"timeShift":"-30","response":""}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	rs := r.Actions[0].(*RescheduleEvent)
	if rs.TimeShift != -30 || rs.NewDuration != 0 {
		t.Errorf("minutes = shift %d, duration %d", rs.TimeShift, rs.NewDuration)
	}
}

func TestRecurrenceUntil(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		set      bool
		null     bool
		wantDate string
	}{
		{"absent", `{"frequency":"weekly"}`, false, false, ""},
		{"null", `{"frequency":"weekly","until":null}`, true, true, ""},
		{"date", `{"frequency":"weekly","until":"2026-12-15"}`, true, false, "2026-12-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode([]byte(`{"action":"create_recurring_event","title":"Gym","date":"2026-10-19","startTime":"07:00","recurrence":` + tt.in + `}`))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			until := r.Actions[0].(*CreateRecurringEvent).Recurrence.Until
			if until.Set != tt.set || until.Null() != tt.null || until.Date != tt.wantDate {
				t.Errorf("until = %+v (null=%v)", until, until.Null())
			}
		})
	}
}

func TestSubjectAndTarget(t *testing.T) {
	rs := &RescheduleEvent{EventTitle: "dentist", NewDate: "2026-10-20"}
	kind, name, date, ok := Subject(rs)
	if !ok || kind != "event" || name != "dentist" || date != "2026-10-20" {
		t.Errorf("Subject(reschedule) = %s %s %s %v", kind, name, date, ok)
	}
	if kind, _, _, _ := Subject(&CompleteTask{TaskTitle: "rent"}); kind != "task" {
		t.Errorf("complete_task kind = %s", kind)
	}
	if _, _, _, ok := Subject(&CheckSchedule{Date: "2026-10-16"}); ok {
		t.Error("queries have no subject")
	}

	dt := &DeleteTask{TaskTitle: "it"}
	*Target(dt) = "Pay rent"
	if dt.TaskTitle != "Pay rent" {
		t.Errorf("Target did not point at the title: %+v", dt)
	}
	if Target(&CreateEvent{}) != nil {
		t.Error("create_event has no resolution target")
	}
}

func TestRegistryNames(t *testing.T) {
	for _, name := range Names() {
		if got := registry[name]().Name(); got != name {
			t.Errorf("registry[%q] builds %q", name, got)
		}
	}
	if Known("order_pizza") {
		t.Error("unexpected known action")
	}
}

func TestDecodeNearMissName(t *testing.T) {
	r, err := Decode([]byte(`{"action":"ask_am_pm","time":"9:00","eventDetails":{"title":"Dinner"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := r.Actions[0].(*Unknown); !ok {
		t.Errorf("ask_am_pm decoded to %T, want *Unknown", r.Actions[0])
	}
	r, _ = Decode([]byte(`{"action":"ask_ampm","time":"9:00","eventDetails":{"title":"Dinner"}}`))
	if r.Actions[0].Name() != "ask_ampm" {
		t.Errorf("ask_ampm decoded to %T", r.Actions[0])
	}
}
