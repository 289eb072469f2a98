package orchestrator

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/Azure/azure-io500/pkg/coordination"
	"github.com/Azure/azure-io500/pkg/coordination/mock_coordination"
	"github.com/Azure/azure-io500/pkg/phase"
	"github.com/Azure/azure-io500/pkg/report"
	"github.com/Azure/azure-io500/pkg/score"
)

var start = time.Date(2022, 11, 1, 10, 0, 0, 0, time.UTC)

// runFor returns a run that takes d on the fake clock and scores s.
func runFor(c *testingclock.FakeClock, d time.Duration, s float64) func(context.Context, *phase.RunContext) (float64, error) {
	return func(context.Context, *phase.RunContext) (float64, error) {
		c.Step(d)
		return s, nil
	}
}

func newRegistry(t *testing.T, phases ...phase.Descriptor) *phase.Registry {
	t.Helper()
	r, err := phase.NewRegistry(phases...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r
}

func TestExecuteValidatesBeforeRunning(t *testing.T) {
	order := 1
	step := func(want int) error {
		if order != want {
			return errors.Errorf("expected order to be %d, got %d", want, order)
		}
		order++
		return nil
	}

	registry := newRegistry(t,
		phase.Descriptor{
			Name:     "phase-1",
			Validate: func(*phase.RunContext) error { return step(1) },
			Run: func(context.Context, *phase.RunContext) (float64, error) {
				return 0, step(4)
			},
		},
		phase.Descriptor{
			Name:     "phase-2",
			Validate: func(*phase.RunContext) error { return step(2) },
		},
		phase.Descriptor{
			Name:     "phase-3",
			Validate: func(*phase.RunContext) error { return step(3) },
			Run: func(context.Context, *phase.RunContext) (float64, error) {
				return 0, step(5)
			},
		},
	)

	rc := &phase.RunContext{Coordinator: coordination.NewLocal()}
	results, valid, err := New(report.NewWriter(&bytes.Buffer{}, true), nil).Execute(context.Background(), registry, rc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !valid {
		t.Errorf("expected the run to be valid")
	}
	if results.Len() != 2 {
		t.Errorf("expected 2 results, got %d", results.Len())
	}
	if order != 6 {
		t.Errorf("expected every validate and run to be called, order = %d", order)
	}
}

func TestExecuteValidationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	// no barrier may happen once a validation failed
	provider := mock_coordination.NewMockProvider(ctrl)

	var validated []string
	validate := func(name string, err error) func(*phase.RunContext) error {
		return func(*phase.RunContext) error {
			validated = append(validated, name)
			return err
		}
	}
	ran := false
	run := func(context.Context, *phase.RunContext) (float64, error) {
		ran = true
		return 1, nil
	}

	registry := newRegistry(t,
		phase.Descriptor{Name: "opt", Validate: validate("opt", nil)},
		phase.Descriptor{Name: "ior-easy-write", Group: phase.BandwidthScore, Validate: validate("ior-easy-write", errors.New("transferSize must be positive")), Run: run},
		phase.Descriptor{Name: "find", Group: phase.MetadataScore, Validate: validate("find", nil), Run: run},
	)

	var out bytes.Buffer
	rc := &phase.RunContext{Coordinator: provider}
	_, _, err := New(report.NewWriter(&out, true), nil).Execute(context.Background(), registry, rc)
	if err == nil {
		t.Fatalf("expected error but got nil")
	}
	if err.Error() != "failed to validate phase ior-easy-write: transferSize must be positive" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
	if strings.Join(validated, ",") != "opt,ior-easy-write" {
		t.Errorf("expected validation to stop at the first failure, validated %v", validated)
	}
	if ran {
		t.Errorf("expected no phase to run after a validation failure")
	}
	if out.Len() != 0 {
		t.Errorf("expected no report output, got %q", out.String())
	}
}

func TestExecuteSkipsPhasesWithoutRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	provider := mock_coordination.NewMockProvider(ctrl)
	// one barrier per runnable phase and one after the last phase
	provider.EXPECT().Barrier(gomock.Any()).Return(nil).Times(3)

	c := testingclock.NewFakeClock(start)
	registry := newRegistry(t,
		phase.Descriptor{Name: "opt"},
		phase.Descriptor{Name: "ior-easy"},
		phase.Descriptor{Name: "ior-easy-write", Group: phase.BandwidthScore, Run: runFor(c, time.Second, 2)},
		phase.Descriptor{Name: "mdtest-easy"},
		phase.Descriptor{Name: "mdtest-easy-write", Group: phase.MetadataScore, Run: runFor(c, time.Second, 3)},
	)

	var out bytes.Buffer
	rc := &phase.RunContext{Coordinator: provider}
	results, _, err := New(report.NewWriter(&out, true), c).Execute(context.Background(), registry, rc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, name := range []string{"opt", "ior-easy", "mdtest-easy"} {
		if _, ok := results.Get(name); ok {
			t.Errorf("expected no result for phase %s", name)
		}
		if strings.Contains(out.String(), "["+name+"]") {
			t.Errorf("expected no report section for phase %s", name)
		}
	}
	if results.Len() != 2 {
		t.Errorf("expected 2 results, got %d", results.Len())
	}
}

func TestExecuteStonewall(t *testing.T) {
	tests := []struct {
		name            string
		rank            int
		dryRun          bool
		verifyStonewall bool
		runtime         time.Duration
		wantValid       bool
	}{
		{
			name:            "runtime below stonewall",
			verifyStonewall: true,
			runtime:         299 * time.Second,
			wantValid:       false,
		},
		{
			name:            "runtime equal to stonewall",
			verifyStonewall: true,
			runtime:         300 * time.Second,
			wantValid:       true,
		},
		{
			name:            "runtime above stonewall",
			verifyStonewall: true,
			runtime:         301 * time.Second,
			wantValid:       true,
		},
		{
			name:            "dry run",
			dryRun:          true,
			verifyStonewall: true,
			runtime:         time.Second,
			wantValid:       true,
		},
		{
			name:            "phase without stonewall verification",
			verifyStonewall: false,
			runtime:         time.Second,
			wantValid:       true,
		},
		{
			name:            "only the leader verifies the stonewall",
			rank:            1,
			verifyStonewall: true,
			runtime:         time.Second,
			wantValid:       true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := testingclock.NewFakeClock(start)
			registry := newRegistry(t, phase.Descriptor{
				Name:            "ior-easy-write",
				Group:           phase.BandwidthScore,
				Run:             runFor(c, test.runtime, 1),
				VerifyStonewall: test.verifyStonewall,
			})
			rc := &phase.RunContext{
				Rank:               test.rank,
				Size:               2,
				DryRun:             test.dryRun,
				StonewallThreshold: 300 * time.Second,
				Coordinator:        coordination.NewLocal(),
			}

			_, valid, err := New(report.NewWriter(&bytes.Buffer{}, rc.IsLeader()), c).Execute(context.Background(), registry, rc)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if valid != test.wantValid {
				t.Errorf("Execute() valid = %v, want %v", valid, test.wantValid)
			}
			if rc.IsValidRun() != test.wantValid {
				t.Errorf("IsValidRun() = %v, want %v", rc.IsValidRun(), test.wantValid)
			}
		})
	}
}

func TestExecuteStonewallViolationIsPermanent(t *testing.T) {
	c := testingclock.NewFakeClock(start)
	var ranAfterViolation bool
	registry := newRegistry(t,
		phase.Descriptor{Name: "ior-easy-write", Group: phase.BandwidthScore, Run: runFor(c, time.Second, 1), VerifyStonewall: true},
		phase.Descriptor{Name: "mdtest-easy-write", Group: phase.MetadataScore, Run: runFor(c, time.Hour, 1), VerifyStonewall: true},
		phase.Descriptor{
			Name:            "ior-hard-write",
			Group:           phase.BandwidthScore,
			VerifyStonewall: true,
			Run: func(ctx context.Context, rc *phase.RunContext) (float64, error) {
				ranAfterViolation = true
				c.Step(time.Hour)
				return 1, nil
			},
		},
	)
	rc := &phase.RunContext{StonewallThreshold: 300 * time.Second, Coordinator: coordination.NewLocal()}

	var out bytes.Buffer
	results, valid, err := New(report.NewWriter(&out, true), c).Execute(context.Background(), registry, rc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if valid || rc.IsValidRun() {
		t.Errorf("expected the run to stay invalid after a stonewall violation")
	}
	if !ranAfterViolation || results.Len() != 3 {
		t.Errorf("expected the run to continue after a stonewall violation")
	}
}

func TestExecuteRunFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	provider := mock_coordination.NewMockProvider(ctrl)
	provider.EXPECT().Barrier(gomock.Any()).Return(nil).Times(1)

	ranAfterFailure := false
	registry := newRegistry(t,
		phase.Descriptor{
			Name:  "ior-easy-write",
			Group: phase.BandwidthScore,
			Run: func(context.Context, *phase.RunContext) (float64, error) {
				return 0, errors.New("no space left on device")
			},
		},
		phase.Descriptor{
			Name:  "find",
			Group: phase.MetadataScore,
			Run: func(context.Context, *phase.RunContext) (float64, error) {
				ranAfterFailure = true
				return 0, nil
			},
		},
	)

	rc := &phase.RunContext{Coordinator: provider}
	_, _, err := New(report.NewWriter(&bytes.Buffer{}, true), nil).Execute(context.Background(), registry, rc)
	if err == nil || err.Error() != "failed to run phase ior-easy-write: no space left on device" {
		t.Errorf("Execute() error = %v, want failed to run phase ior-easy-write: no space left on device", err)
	}
	if ranAfterFailure {
		t.Errorf("expected no phase to run after a failed phase")
	}
}

func TestExecuteBarrierFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	provider := mock_coordination.NewMockProvider(ctrl)
	provider.EXPECT().Barrier(gomock.Any()).Return(errors.New("connection refused"))

	registry := newRegistry(t, phase.Descriptor{
		Name:  "find",
		Group: phase.MetadataScore,
		Run: func(context.Context, *phase.RunContext) (float64, error) {
			t.Errorf("expected the phase not to run")
			return 0, nil
		},
	})

	rc := &phase.RunContext{Coordinator: provider}
	_, _, err := New(report.NewWriter(&bytes.Buffer{}, true), nil).Execute(context.Background(), registry, rc)
	if err == nil || err.Error() != "failed to synchronize before phase find: connection refused" {
		t.Errorf("Execute() error = %v, want failed to synchronize before phase find: connection refused", err)
	}
}

func TestExecuteReport(t *testing.T) {
	c := testingclock.NewFakeClock(start)
	registry := newRegistry(t,
		phase.Descriptor{Name: "opt"},
		phase.Descriptor{Name: "timestamp", Run: runFor(c, 0, 0)},
		phase.Descriptor{Name: "find", Group: phase.MetadataScore, Run: runFor(c, 12*time.Second, 42.5)},
	)

	tests := []struct {
		name      string
		verbosity int
		want      string
	}{
		{
			name:      "default verbosity",
			verbosity: 0,
			want: "\n" +
				"\n[timestamp]\n" +
				"\n[find]\n" +
				"score                = 42.500000\n",
		},
		{
			name:      "verbose",
			verbosity: 1,
			want: "\n" +
				"\n[timestamp]\n" +
				"t_start              = 2022-11-01 10:00:00\n" +
				"t_delta              = 0.0000\n" +
				"t_end                = 2022-11-01 10:00:00\n" +
				"\n[find]\n" +
				"t_start              = 2022-11-01 10:00:00\n" +
				"score                = 42.500000\n" +
				"t_delta              = 12.0000\n" +
				"t_end                = 2022-11-01 10:00:12\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c.SetTime(start)
			var out bytes.Buffer
			rc := &phase.RunContext{Verbosity: test.verbosity, Coordinator: coordination.NewLocal()}
			if _, _, err := New(report.NewWriter(&out, true), c).Execute(context.Background(), registry, rc); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if out.String() != test.want {
				t.Errorf("report = %q, want %q", out.String(), test.want)
			}
		})
	}
}

func TestExecuteAndAggregate(t *testing.T) {
	c := testingclock.NewFakeClock(start)
	registry := newRegistry(t,
		phase.Descriptor{Name: "phaseA", Group: phase.MetadataScore, Run: runFor(c, time.Minute, 10)},
		phase.Descriptor{Name: "phaseB", Group: phase.MetadataScore, Run: runFor(c, time.Minute, 0)},
		phase.Descriptor{Name: "phaseC", Group: phase.BandwidthScore, Run: runFor(c, time.Minute, 5)},
	)
	rc := &phase.RunContext{Coordinator: coordination.NewLocal()}

	results, valid, err := New(report.NewWriter(&bytes.Buffer{}, true), c).Execute(context.Background(), registry, rc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !valid {
		t.Errorf("expected the run to be valid")
	}

	summary, err := score.Aggregate(registry, results)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	md, _ := summary.Get(phase.MetadataScore)
	bw, _ := summary.Get(phase.BandwidthScore)
	if md.Score != 10 {
		t.Errorf("MD = %v, want 10", md.Score)
	}
	if bw.Score != 5 {
		t.Errorf("BW = %v, want 5", bw.Score)
	}
	if math.Abs(summary.Overall-11.1803) > 1e-4 {
		t.Errorf("overall = %v, want 11.1803", summary.Overall)
	}
}
