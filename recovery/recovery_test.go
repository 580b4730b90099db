package recovery

import (
	"errors"
	"testing"

	"github.com/gogpu/shield/faultlog"
	"github.com/gogpu/shield/host"
)

func newAttached(t *testing.T) (*Manager, *host.Stub, *faultlog.Log) {
	t.Helper()
	log := faultlog.New(faultlog.Config{})
	m := NewManager(log, nil, nil)
	stub := host.NewStub()
	m.Attach(stub)
	return m, stub, log
}

func TestLostTrueOnlyBetweenLossAndRestore(t *testing.T) {
	m, stub, _ := newAttached(t)

	if m.Lost() {
		t.Error("Lost() = true before any loss")
	}

	if !stub.ForceLoss() {
		t.Fatal("ForceLoss() = false")
	}
	if !m.Lost() {
		t.Error("Lost() = false after loss notification")
	}

	if !stub.ForceRestore() {
		t.Fatal("ForceRestore() = false")
	}
	if m.Lost() {
		t.Error("Lost() = true after restoration")
	}
}

func TestLossLoggedHighRestoreMedium(t *testing.T) {
	m, stub, log := newAttached(t)
	_ = m

	stub.ForceLoss()
	stub.ForceRestore()

	stats := log.Stats()
	if stats["context_loss_high"] != 1 {
		t.Errorf("loss logged %d high faults, want 1", stats["context_loss_high"])
	}
	if stats["context_loss_medium"] != 1 {
		t.Errorf("restore logged %d medium faults, want 1", stats["context_loss_medium"])
	}
}

func TestSnapshotReplayedOnRestore(t *testing.T) {
	m, stub, _ := newAttached(t)
	_ = m

	state := host.DefaultRenderState()
	state.Viewport = [4]int{0, 0, 800, 600}
	state.BlendEnabled = true
	state.ActiveTextureUnit = 2
	stub.ApplyState(state)

	stub.ForceLoss()
	// The fresh context comes up with default state.
	if got := stub.CaptureState(); got.BlendEnabled {
		t.Fatal("stub state not reset on loss")
	}

	stub.ForceRestore()
	got := stub.CaptureState()
	if got != state {
		t.Errorf("restored state = %+v, want %+v", got, state)
	}
}

func TestCallbacksFireOnceInOrderDespiteFailure(t *testing.T) {
	m, stub, log := newAttached(t)

	var order []int
	m.RegisterCallback(func() error {
		order = append(order, 1)
		return nil
	})
	m.RegisterCallback(func() error {
		order = append(order, 2)
		return errors.New("resource re-upload failed")
	})
	m.RegisterCallback(func() error {
		order = append(order, 3)
		panic("callback exploded")
	})
	m.RegisterCallback(func() error {
		order = append(order, 4)
		return nil
	})

	stub.ForceLoss()
	stub.ForceRestore()

	want := []int{1, 2, 3, 4}
	if len(order) != len(want) {
		t.Fatalf("callbacks ran %d times, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("callback order = %v, want %v", order, want)
		}
	}

	// One medium fault per failing callback, on top of the restore entry.
	if got := log.Stats()["context_loss_medium"]; got != 3 {
		t.Errorf("medium context_loss faults = %d, want 3", got)
	}
}

func TestOnRecoveryObserver(t *testing.T) {
	log := faultlog.New(faultlog.Config{})
	var outcomes []bool
	m := NewManager(log, nil, func(success bool) { outcomes = append(outcomes, success) })
	stub := host.NewStub()
	m.Attach(stub)

	stub.ForceLoss()
	stub.ForceRestore()

	m.RegisterCallback(func() error { return errors.New("nope") })
	stub.ForceLoss()
	stub.ForceRestore()

	if len(outcomes) != 2 || outcomes[0] != true || outcomes[1] != false {
		t.Errorf("recovery outcomes = %v, want [true false]", outcomes)
	}
}

func TestForceHooksDelegate(t *testing.T) {
	m, _, _ := newAttached(t)

	if !m.ForceLoss() {
		t.Error("ForceLoss() = false on stub host")
	}
	if m.ForceLoss() {
		t.Error("ForceLoss() = true while already lost")
	}
	if !m.ForceRestore() {
		t.Error("ForceRestore() = false while lost")
	}
	if m.ForceRestore() {
		t.Error("ForceRestore() = true while active")
	}
}

func TestForceHooksWithoutContext(t *testing.T) {
	m := NewManager(faultlog.New(faultlog.Config{}), nil, nil)
	if m.ForceLoss() {
		t.Error("ForceLoss() = true with no context attached")
	}
	if m.ForceRestore() {
		t.Error("ForceRestore() = true with no context attached")
	}
}

func TestDetachIgnoresNotifications(t *testing.T) {
	m, stub, log := newAttached(t)
	m.Detach()

	stub.ForceLoss()
	if m.Lost() {
		t.Error("Lost() = true after Detach")
	}
	if log.Len() != 0 {
		t.Errorf("detached manager logged %d faults, want 0", log.Len())
	}
}
