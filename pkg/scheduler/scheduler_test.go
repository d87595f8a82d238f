package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitStatus(t *testing.T, s *Scheduler, name string, want JobStatus, runs int) JobInfo {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		for _, info := range s.GetJobInfos() {
			if info.Name == name && info.Status == want && info.Runs >= runs {
				return info
			}
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("job %s did not reach status %s", name, want)

	return JobInfo{}
}

// TestRunNowRecordsResult 测试任务结果记录：失败、panic、成功.
func TestRunNowRecordsResult(t *testing.T) {
	s, err := NewScheduler()
	if err != nil {
		t.Fatal(err)
	}

	s.Start()
	defer s.Stop()

	ctx := context.Background()
	calls := 0

	err = s.AddCron(ctx, "flaky", "0 0 1 1 *", func(context.Context) error {
		calls++

		switch calls {
		case 1:
			return errors.New("backend down")
		case 2:
			panic("boom")
		}

		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.AddCron(ctx, "flaky", "0 0 1 1 *", func(context.Context) error { return nil }); err == nil {
		t.Fatal("duplicate job name must be rejected")
	}

	if err := s.RunNow("flaky"); err != nil {
		t.Fatal(err)
	}

	info := waitStatus(t, s, "flaky", StatusError, 1)
	if info.Error != "backend down" {
		t.Errorf("error = %q", info.Error)
	}

	_ = s.RunNow("flaky")
	info = waitStatus(t, s, "flaky", StatusError, 2)

	if info.Error != "panic in job: boom" {
		t.Errorf("error = %q", info.Error)
	}

	_ = s.RunNow("flaky")
	info = waitStatus(t, s, "flaky", StatusScheduled, 3)

	if info.Error != "" || info.LastSuccess.IsZero() {
		t.Errorf("success not recorded: %+v", info)
	}
}

func TestRemoveJob(t *testing.T) {
	s, err := NewScheduler()
	if err != nil {
		t.Fatal(err)
	}

	if err := s.AddCron(context.Background(), "a", "*/5 * * * *", func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.JobID("a"); !ok {
		t.Fatal("job a not registered")
	}

	if err := s.RemoveJobByName("a"); err != nil {
		t.Fatal(err)
	}

	if err := s.RemoveJobByName("a"); err == nil {
		t.Error("removing a missing job must fail")
	}

	if err := s.RunNow("a"); err == nil {
		t.Error("running a missing job must fail")
	}

	if len(s.GetJobInfos()) != 0 {
		t.Error("job infos not cleared")
	}
}
